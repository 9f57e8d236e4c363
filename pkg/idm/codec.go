package idm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PageMetadata is the paging envelope returned by list endpoints.
type PageMetadata struct {
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

type wirePage struct {
	Items    []json.RawMessage `json:"items"`
	Metadata PageMetadata      `json:"_metadata"`
}

type wireTenant struct {
	TenantID     *string         `json:"tenantId"`
	Name         string          `json:"name"`
	Metadata     json.RawMessage `json:"metadata"`
	CreatorName  *string         `json:"creatorName"`
	CreatorEmail *string         `json:"creatorEmail"`
	CreatedAt    *time.Time      `json:"createdAt"`
	UpdatedAt    *time.Time      `json:"updatedAt"`
	DeletedAt    *time.Time      `json:"deletedAt"`
}

type wireBinding struct {
	TenantID *string `json:"tenantId"`
	Roles    []Role  `json:"roles"`
}

type wireUser struct {
	ID        *string         `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt *time.Time      `json:"createdAt"`
	Tenants   []wireBinding   `json:"tenants"`
	Roles     []Role          `json:"roles"`
}

// DecodeTenant decodes a single tenant object.
func DecodeTenant(data []byte) (*Tenant, error) {
	var w wireTenant

	err := json.Unmarshal(data, &w)
	if err != nil {
		return nil, DecodeError(fmt.Errorf("decoding tenant: %w", err))
	}

	return w.toTenant()
}

// DecodeTenants decodes a JSON array of tenants, preserving order.
func DecodeTenants(data []byte) ([]Tenant, error) {
	var ws []wireTenant

	err := json.Unmarshal(data, &ws)
	if err != nil {
		return nil, DecodeError(fmt.Errorf("decoding tenants: %w", err))
	}

	tenants := make([]Tenant, 0, len(ws))

	for i := range ws {
		t, err := ws[i].toTenant()
		if err != nil {
			return nil, err
		}

		tenants = append(tenants, *t)
	}

	return tenants, nil
}

// DecodeTenantPage decodes one page of the paged tenant listing.
func DecodeTenantPage(data []byte) ([]Tenant, PageMetadata, error) {
	page, err := decodePage(data, "tenant")
	if err != nil {
		return nil, PageMetadata{}, err
	}

	tenants := make([]Tenant, 0, len(page.Items))

	for _, raw := range page.Items {
		t, err := DecodeTenant(raw)
		if err != nil {
			return nil, PageMetadata{}, err
		}

		tenants = append(tenants, *t)
	}

	return tenants, page.Metadata, nil
}

// DecodeUser decodes a single user object. id and createdAt are required.
func DecodeUser(data []byte) (*User, error) {
	w, err := decodeWireUser(data)
	if err != nil {
		return nil, err
	}

	return w.toUser()
}

// DecodeCreatedUser decodes the response to a user creation. The response
// carries the roles granted in the creating tenant rather than full
// bindings, so those are returned separately; the returned user's Tenants is
// nil unless the service included them.
func DecodeCreatedUser(data []byte) (*User, []Role, error) {
	w, err := decodeWireUser(data)
	if err != nil {
		return nil, nil, err
	}

	u, err := w.toUser()
	if err != nil {
		return nil, nil, err
	}

	if w.Tenants == nil {
		u.Tenants = nil
	}

	roles := w.Roles
	if roles == nil {
		roles = []Role{}
	}

	return u, roles, nil
}

// DecodeUserPage decodes one page of the user listing.
func DecodeUserPage(data []byte) ([]User, PageMetadata, error) {
	page, err := decodePage(data, "user")
	if err != nil {
		return nil, PageMetadata{}, err
	}

	users := make([]User, 0, len(page.Items))

	for _, raw := range page.Items {
		u, err := DecodeUser(raw)
		if err != nil {
			return nil, PageMetadata{}, err
		}

		users = append(users, *u)
	}

	return users, page.Metadata, nil
}

// EncodeTenantCreate encodes a create-tenant body. Unset optional fields are
// omitted rather than sent as null.
func EncodeTenantCreate(req *TenantCreateRequest) ([]byte, error) {
	if req.ID == uuid.Nil {
		return nil, InvalidInput("tenant ID must be set before encoding")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, InvalidInput("encoding tenant: %w", err)
	}

	return data, nil
}

// EncodeUserCreate encodes a create-user body. The tenant is not part of the
// body; it is sent in the tenant header.
func EncodeUserCreate(req *UserCreateRequest) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, InvalidInput("encoding user: %w", err)
	}

	return data, nil
}

// EncodeMetadataPatch encodes the body of a tenant metadata merge patch.
func EncodeMetadataPatch(patch map[string]any) ([]byte, error) {
	m, err := NewMetadata(patch)
	if err != nil {
		return nil, InvalidInput("encoding metadata: %w", err)
	}

	if m.IsNull() {
		m = MustMetadata(map[string]any{})
	}

	data, err := json.Marshal(map[string]Metadata{"metadata": m})
	if err != nil {
		return nil, InvalidInput("encoding metadata: %w", err)
	}

	return data, nil
}

// DecodeMetadata decodes a metadata field the way resource decoding does.
// Empty input is null.
func DecodeMetadata(raw json.RawMessage) (Metadata, error) {
	return decodeMetadata(raw)
}

// decodeMetadata accepts any JSON value. The service stores metadata as
// text, so a string holding a JSON object or array is unwrapped one level.
func decodeMetadata(raw json.RawMessage) (Metadata, error) {
	if len(raw) == 0 {
		return NullMetadata(), nil
	}

	m, err := ParseMetadata(raw)
	if err != nil {
		return Metadata{}, err
	}

	s, ok := m.v.(string)
	if !ok {
		return m, nil
	}

	trimmed := bytes.TrimSpace([]byte(s))
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return m, nil
	}

	nested, err := ParseMetadata(trimmed)
	if err != nil {
		return m, nil //nolint:nilerr // not JSON after all, keep the string
	}

	return nested, nil
}

func decodePage(data []byte, resource string) (*wirePage, error) {
	var page wirePage

	err := json.Unmarshal(data, &page)
	if err != nil {
		return nil, DecodeError(fmt.Errorf("decoding %s page: %w", resource, err))
	}

	return &page, nil
}

func decodeWireUser(data []byte) (*wireUser, error) {
	var w wireUser

	err := json.Unmarshal(data, &w)
	if err != nil {
		return nil, DecodeError(fmt.Errorf("decoding user: %w", err))
	}

	return &w, nil
}

func parseRequiredUUID(field string, value *string) (uuid.UUID, error) {
	if value == nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrMissingField, field)
	}

	id, err := uuid.Parse(*value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing %s: %w", field, err)
	}

	return id, nil
}

func (w *wireTenant) toTenant() (*Tenant, error) {
	id, err := parseRequiredUUID("tenantId", w.TenantID)
	if err != nil {
		return nil, DecodeError(fmt.Errorf("decoding tenant: %w", err))
	}

	metadata, err := decodeMetadata(w.Metadata)
	if err != nil {
		return nil, DecodeError(fmt.Errorf("decoding tenant %s: %w", id, err))
	}

	t := &Tenant{
		ID:           id,
		Name:         w.Name,
		Metadata:     metadata,
		CreatorName:  w.CreatorName,
		CreatorEmail: w.CreatorEmail,
		DeletedAt:    w.DeletedAt,
	}

	if w.CreatedAt != nil {
		t.CreatedAt = *w.CreatedAt
	}

	if w.UpdatedAt != nil {
		t.UpdatedAt = *w.UpdatedAt
	}

	return t, nil
}

func (w *wireUser) toUser() (*User, error) {
	id, err := parseRequiredUUID("id", w.ID)
	if err != nil {
		return nil, DecodeError(fmt.Errorf("decoding user: %w", err))
	}

	if w.CreatedAt == nil {
		return nil, DecodeError(fmt.Errorf("decoding user %s: %w: createdAt", id, ErrMissingField))
	}

	metadata, err := decodeMetadata(w.Metadata)
	if err != nil {
		return nil, DecodeError(fmt.Errorf("decoding user %s: %w", id, err))
	}

	bindings := make([]RoleBinding, 0, len(w.Tenants))

	for _, wb := range w.Tenants {
		tenantID, err := parseRequiredUUID("tenants.tenantId", wb.TenantID)
		if err != nil {
			return nil, DecodeError(fmt.Errorf("decoding user %s: %w", id, err))
		}

		roles := wb.Roles
		if roles == nil {
			roles = []Role{}
		}

		bindings = append(bindings, RoleBinding{TenantID: tenantID, Roles: roles})
	}

	return &User{
		ID:        id,
		Name:      w.Name,
		Email:     w.Email,
		Metadata:  metadata,
		CreatedAt: *w.CreatedAt,
		Tenants:   bindings,
	}, nil
}
