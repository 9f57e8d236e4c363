package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// Endpoints.
const (
	// DefaultEndpoint is the vendor API used when no endpoint is configured.
	DefaultEndpoint = "https://api.frontegg.com"

	// DefaultUserAgent is sent unless overridden by configuration.
	DefaultUserAgent = "idm-client-go/1.0"
)

// HTTP and network timeouts.
const (
	// DefaultRequestTimeout bounds a single HTTP request including retries.
	DefaultRequestTimeout = 60 * time.Second
)

// Retry limits. Retries are disabled unless RetryMax is configured.
const (
	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 30 * time.Second
)

// Credential lifetime.
const (
	// TokenRefreshMargin is how long before expiry a cached token is replaced.
	TokenRefreshMargin = 30 * time.Second

	// DefaultTokenLifetime is assumed when the identity endpoint omits expiresIn.
	DefaultTokenLifetime = 5 * time.Minute
)

// Pagination.
const (
	// DefaultPageSize is the number of items requested per page.
	DefaultPageSize = 50
)

// API paths.
const (
	AuthVendorPath     = "/auth/vendor"
	TenantsPath        = "/tenants/resources/tenants/v1"
	TenantsPagedPath   = "/tenants/resources/tenants/v2"
	UsersPath          = "/identity/resources/users/v1"
	VendorOnlyUserPath = "/identity/resources/vendor-only/users/v1"
)

// Headers and query parameters understood by the vendor API.
const (
	TenantIDHeader = "frontegg-tenant-id"

	QueryLimit    = "_limit"
	QueryOffset   = "_offset"
	QueryTenantID = "_tenantId"
)

// CLI configuration.
const (
	// EnvPrefix prefixes environment variables read by the CLI, e.g. IDM_SECRET.
	EnvPrefix = "IDM"

	ConfigDirName  = ".idm"
	ConfigFileName = "config.yml"

	// MaskedSecret replaces secrets in displayed configuration.
	MaskedSecret = "***"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"

	// TimeFormat is used for timestamps in table output.
	TimeFormat = "2006-01-02 15:04:05"
)
