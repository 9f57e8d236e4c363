package idm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Client is the entry point to the identity service API.
type Client interface {
	Tenants() TenantsClient
	Users() UsersClient
}

// TenantsClient manages tenants and their metadata.
type TenantsClient interface {
	Create(ctx context.Context, req *TenantCreateRequest) (*Tenant, error)
	Get(ctx context.Context, id string) (*Tenant, error)
	List(ctx context.Context, opts *TenantListOptions) ([]Tenant, error)
	Iterate(ctx context.Context, opts *TenantListOptions) *PageIterator[Tenant]
	Delete(ctx context.Context, id string) error
	// SetMetadata merges patch into the tenant's metadata. Keys not named in
	// patch are left untouched.
	SetMetadata(ctx context.Context, id string, patch map[string]any) (*Tenant, error)
	// DeleteMetadata removes key from the tenant's metadata. Removing a key
	// that is not present succeeds and returns the unchanged tenant.
	DeleteMetadata(ctx context.Context, id string, key string) (*Tenant, error)
}

// UsersClient manages users.
type UsersClient interface {
	Create(ctx context.Context, req *UserCreateRequest) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, opts *UserListOptions) ([]User, error)
	Iterate(ctx context.Context, opts *UserListOptions) *PageIterator[User]
	Delete(ctx context.Context, id string) error
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building an idm.Client.
//
// Only ClientID and Secret are required. Zero values select the defaults
// documented on each field.
type Config struct {
	// ClientID: vendor client ID exchanged for a bearer token.
	ClientID string
	// Secret: vendor secret paired with ClientID.
	Secret string
	// Endpoint: base URL of the vendor API. Defaults to
	// https://api.frontegg.com. idmclient.New trims a trailing slash and adds
	// "https://" if no scheme is present.
	Endpoint string

	// RequestTimeout: bound on a single HTTP request. Defaults to 60s.
	RequestTimeout time.Duration
	// PageSize: items requested per page when listing. Defaults to 50.
	PageSize int

	// RetryMax: retries for idempotent requests on connection errors, 429 and
	// 5xx. Zero disables retries.
	RetryMax int
	// RetryWaitMin and RetryWaitMax bound the exponential backoff.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// RateLimit: maximum requests per second. Zero means unlimited.
	RateLimit float64

	// Logger: optional structured logger used by the HTTP and auth layers.
	Logger Logger
	// Debug: enables request/response logging when a Logger is provided.
	Debug bool
	// UserAgent: overrides the default User-Agent header.
	UserAgent string
	// MetricsRegisterer: when set, request metrics are registered with it.
	MetricsRegisterer prometheus.Registerer
}
