// Package webhook decodes frontegg.user.* webhook deliveries and routes them
// to application code, either directly over HTTP or through NATS.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/idm-client/pkg/idm"
)

// Event keys sent by the service.
const (
	EventUserCreated      = "frontegg.user.created"
	EventUserUpdated      = "frontegg.user.updated"
	EventUserDeleted      = "frontegg.user.deleted"
	EventUserInvited      = "frontegg.user.invitedToTenant"
	EventUserRemoved      = "frontegg.user.removedFromTenant"
	EventUserEnrolledMFA  = "frontegg.user.enrolledMFA"
	EventUserDisabledMFA  = "frontegg.user.disabledMFA"
	EventUserAuthenticate = "frontegg.user.authenticated"

	userEventPrefix = "frontegg.user."
)

// Static errors for err113 compliance.
var (
	ErrMissingEventKey = errors.New("event key is missing")
	ErrMissingUser     = errors.New("user event carries no user")
)

// Event is one webhook delivery.
type Event struct {
	Key     string       `json:"eventKey"`
	Context EventContext `json:"eventContext"`
	// User is set for frontegg.user.* events.
	User *WebhookUser `json:"user,omitempty"`
	// Raw is the delivery as received.
	Raw json.RawMessage `json:"-"`
}

// EventContext identifies where an event originated.
type EventContext struct {
	VendorID string `json:"vendorId,omitempty"`
	TenantID string `json:"tenantId,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

// IsUserEvent reports whether the event concerns a user.
func (e *Event) IsUserEvent() bool {
	return strings.HasPrefix(e.Key, userEventPrefix)
}

// WebhookUser is the view of a user carried by user events. It has more
// fields than idm.User, most of them optional.
type WebhookUser struct {
	ID                 uuid.UUID        `json:"id"`
	Name               *string          `json:"name,omitempty"`
	Email              string           `json:"email"`
	Metadata           idm.Metadata     `json:"metadata"`
	Roles              []idm.Role       `json:"roles"`
	Permissions        []idm.Permission `json:"permissions"`
	CreatedAt          time.Time        `json:"createdAt"`
	ActivatedForTenant *bool            `json:"activatedForTenant,omitempty"`
	IsLocked           *bool            `json:"isLocked,omitempty"`
	ManagedBy          string           `json:"managedBy"`
	MFAEnrolled        bool             `json:"mfaEnrolled"`
	MFABypass          *bool            `json:"mfaBypass,omitempty"`
	PhoneNumber        *string          `json:"phoneNumber,omitempty"`
	ProfilePictureURL  *string          `json:"profilePictureUrl,omitempty"`
	Provider           string           `json:"provider"`
	Sub                uuid.UUID        `json:"sub"`
	TenantID           uuid.UUID        `json:"tenantId"`
	// TenantIDs and Tenants are nil when the event omits them, as
	// frontegg.user.disabledMFA does.
	TenantIDs []uuid.UUID     `json:"tenantIds,omitempty"`
	Tenants   []TenantBinding `json:"tenants,omitempty"`
	Verified  *bool           `json:"verified,omitempty"`
}

// TenantBinding is a user's membership in a tenant as reported by an event.
// Roles is nil when the event omits it, as frontegg.user.enrolledMFA does.
type TenantBinding struct {
	TenantID uuid.UUID  `json:"tenantId"`
	Roles    []idm.Role `json:"roles,omitempty"`
}

type wireEvent struct {
	Key     string          `json:"eventKey"`
	Context EventContext    `json:"eventContext"`
	User    json.RawMessage `json:"user"`
}

type wireUser struct {
	ID                 *string          `json:"id"`
	Name               *string          `json:"name"`
	Email              string           `json:"email"`
	Metadata           json.RawMessage  `json:"metadata"`
	Roles              []idm.Role       `json:"roles"`
	Permissions        []idm.Permission `json:"permissions"`
	CreatedAt          *time.Time       `json:"createdAt"`
	ActivatedForTenant *bool            `json:"activatedForTenant"`
	IsLocked           *bool            `json:"isLocked"`
	ManagedBy          string           `json:"managedBy"`
	MFAEnrolled        bool             `json:"mfaEnrolled"`
	MFABypass          *bool            `json:"mfaBypass"`
	PhoneNumber        *string          `json:"phoneNumber"`
	ProfilePictureURL  *string          `json:"profilePictureUrl"`
	Provider           string           `json:"provider"`
	Sub                uuid.UUID        `json:"sub"`
	TenantID           uuid.UUID        `json:"tenantId"`
	TenantIDs          []uuid.UUID      `json:"tenantIds"`
	Tenants            []TenantBinding  `json:"tenants"`
	Verified           *bool            `json:"verified"`
}

// ParseEvent decodes a webhook body. User events must carry a user with an
// id and createdAt; decoding failures are idm.KindDecode errors.
func ParseEvent(data []byte) (*Event, error) {
	var w wireEvent

	err := json.Unmarshal(data, &w)
	if err != nil {
		return nil, idm.DecodeError(fmt.Errorf("decoding event: %w", err))
	}

	if w.Key == "" {
		return nil, idm.DecodeError(ErrMissingEventKey)
	}

	event := &Event{
		Key:     w.Key,
		Context: w.Context,
		Raw:     append(json.RawMessage(nil), data...),
	}

	if !event.IsUserEvent() {
		return event, nil
	}

	if len(w.User) == 0 || string(w.User) == "null" {
		return nil, idm.DecodeError(fmt.Errorf("%w: %s", ErrMissingUser, w.Key))
	}

	user, err := ParseUser(w.User)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", w.Key, err)
	}

	event.User = user

	return event, nil
}

// ParseUser decodes the user object of a user event.
func ParseUser(data []byte) (*WebhookUser, error) {
	var w wireUser

	err := json.Unmarshal(data, &w)
	if err != nil {
		return nil, idm.DecodeError(fmt.Errorf("decoding webhook user: %w", err))
	}

	if w.ID == nil {
		return nil, idm.DecodeError(fmt.Errorf("decoding webhook user: %w: id", idm.ErrMissingField))
	}

	id, err := uuid.Parse(*w.ID)
	if err != nil {
		return nil, idm.DecodeError(fmt.Errorf("decoding webhook user: parsing id: %w", err))
	}

	if w.CreatedAt == nil {
		return nil, idm.DecodeError(fmt.Errorf("decoding webhook user %s: %w: createdAt", id, idm.ErrMissingField))
	}

	metadata, err := idm.DecodeMetadata(w.Metadata)
	if err != nil {
		return nil, idm.DecodeError(fmt.Errorf("decoding webhook user %s: %w", id, err))
	}

	return &WebhookUser{
		ID:                 id,
		Name:               w.Name,
		Email:              w.Email,
		Metadata:           metadata,
		Roles:              nonNil(w.Roles),
		Permissions:        nonNil(w.Permissions),
		CreatedAt:          *w.CreatedAt,
		ActivatedForTenant: w.ActivatedForTenant,
		IsLocked:           w.IsLocked,
		ManagedBy:          w.ManagedBy,
		MFAEnrolled:        w.MFAEnrolled,
		MFABypass:          w.MFABypass,
		PhoneNumber:        w.PhoneNumber,
		ProfilePictureURL:  w.ProfilePictureURL,
		Provider:           w.Provider,
		Sub:                w.Sub,
		TenantID:           w.TenantID,
		TenantIDs:          w.TenantIDs,
		Tenants:            w.Tenants,
		Verified:           w.Verified,
	}, nil
}

// Binding returns the user's binding to tenantID. ok is false when the event
// carries no bindings or none for that tenant.
func (u *WebhookUser) Binding(tenantID uuid.UUID) (TenantBinding, bool) {
	for _, b := range u.Tenants {
		if b.TenantID == tenantID {
			return b, true
		}
	}

	return TenantBinding{}, false
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
