package idm

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents an organization in the identity service.
type Tenant struct {
	ID           uuid.UUID  `json:"tenantId"               yaml:"tenant_id"`
	Name         string     `json:"name"                   yaml:"name"`
	Metadata     Metadata   `json:"metadata"               yaml:"metadata"`
	CreatorName  *string    `json:"creatorName,omitempty"  yaml:"creator_name,omitempty"`
	CreatorEmail *string    `json:"creatorEmail,omitempty" yaml:"creator_email,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"              yaml:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt"              yaml:"updated_at"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"    yaml:"deleted_at,omitempty"`
}

// User represents a person with access to one or more tenants.
type User struct {
	ID        uuid.UUID     `json:"id"        yaml:"id"`
	Name      string        `json:"name"      yaml:"name"`
	Email     string        `json:"email"     yaml:"email"`
	Metadata  Metadata      `json:"metadata"  yaml:"metadata"`
	CreatedAt time.Time     `json:"createdAt" yaml:"created_at"`
	Tenants   []RoleBinding `json:"tenants"   yaml:"tenants"`
}

// TenantIDs returns the IDs of the tenants the user belongs to, in order.
func (u *User) TenantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(u.Tenants))
	for _, b := range u.Tenants {
		ids = append(ids, b.TenantID)
	}

	return ids
}

// Binding returns the user's binding to tenantID, if any.
func (u *User) Binding(tenantID uuid.UUID) (RoleBinding, bool) {
	for _, b := range u.Tenants {
		if b.TenantID == tenantID {
			return b, true
		}
	}

	return RoleBinding{}, false
}

// RoleBinding is a user's membership in a tenant. Roles is never nil on a
// decoded binding; an empty slice means the user holds no roles there.
type RoleBinding struct {
	TenantID uuid.UUID `json:"tenantId" yaml:"tenant_id"`
	Roles    []Role    `json:"roles"    yaml:"roles"`
}

// RoleKeys returns the machine-readable keys of the bound roles.
func (b RoleBinding) RoleKeys() []string {
	keys := make([]string, 0, len(b.Roles))
	for _, r := range b.Roles {
		keys = append(keys, r.Key)
	}

	return keys
}

// Role is a named set of permissions within a tenant.
type Role struct {
	ID            uuid.UUID   `json:"id"                    yaml:"id"`
	Key           string      `json:"key"                   yaml:"key"`
	Name          string      `json:"name"                  yaml:"name"`
	Description   *string     `json:"description,omitempty" yaml:"description,omitempty"`
	Level         int         `json:"level"                 yaml:"level"`
	IsDefault     bool        `json:"isDefault"             yaml:"is_default"`
	PermissionIDs []uuid.UUID `json:"permissions"           yaml:"permissions"`
	CreatedAt     time.Time   `json:"createdAt"             yaml:"created_at"`
}

// Permission is a single grant that roles are built from.
type Permission struct {
	ID          uuid.UUID `json:"id"                    yaml:"id"`
	CategoryID  string    `json:"categoryId"            yaml:"category_id"`
	Key         string    `json:"key"                   yaml:"key"`
	Name        string    `json:"name"                  yaml:"name"`
	Description *string   `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"             yaml:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"             yaml:"updated_at"`
}

// TenantCreateRequest is the request for creating a tenant.
//
// ID is generated by the client when left as uuid.Nil. Nil optional fields
// are omitted from the request body.
type TenantCreateRequest struct {
	ID           uuid.UUID `json:"tenantId"`
	Name         string    `json:"name"`
	Metadata     *Metadata `json:"metadata,omitempty"`
	CreatorName  *string   `json:"creatorName,omitempty"`
	CreatorEmail *string   `json:"creatorEmail,omitempty"`
}

// UserCreateRequest is the request for creating a user bound to TenantID.
type UserCreateRequest struct {
	TenantID        string    `json:"-"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Metadata        *Metadata `json:"metadata,omitempty"`
	SkipInviteEmail bool      `json:"skipInviteEmail"`
}

// TenantListOptions controls tenant listing.
type TenantListOptions struct {
	// TenantID restricts the listing to a single tenant when set.
	TenantID string
	// PageSize is the number of tenants fetched per request. Zero uses the
	// client's configured page size.
	PageSize int
}

// UserListOptions controls user listing.
type UserListOptions struct {
	// TenantID restricts the listing to members of a tenant when set.
	TenantID string
	// PageSize is the number of users fetched per request. Zero uses the
	// client's configured page size.
	PageSize int
}

// Ptr returns a pointer to v. Handy for optional request fields.
func Ptr[T any](v T) *T {
	return &v
}
