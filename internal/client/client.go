package client

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/idm-client/internal/auth"
	"github.com/fivetwenty-io/idm-client/internal/constants"
	"github.com/fivetwenty-io/idm-client/internal/http"
	"github.com/fivetwenty-io/idm-client/pkg/idm"
)

// Client implements the idm.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	baseURL      string
	logger       idm.Logger

	tenants *TenantsClient
	users   *UsersClient
}

// New creates a client for config. Credentials are not exchanged until the
// first request.
func New(config *idm.Config) (*Client, error) {
	if config == nil {
		return nil, idm.ErrConfigRequired
	}

	if config.ClientID == "" {
		return nil, idm.ErrClientIDRequired
	}

	if config.Secret == "" {
		return nil, idm.ErrSecretRequired
	}

	endpoint := normalizeEndpoint(config.Endpoint)

	httpOpts, err := createHTTPClientOptions(config)
	if err != nil {
		return nil, err
	}

	// The exchange shares the transport settings but carries no bearer token.
	exchange := http.NewClient(endpoint, nil, httpOpts...)

	tokenManager := auth.NewVendorTokenManager(&auth.VendorConfig{
		Endpoint:   endpoint,
		ClientID:   config.ClientID,
		Secret:     config.Secret,
		HTTPClient: exchange.StandardClient(),
		Timeout:    config.RequestTimeout,
		UserAgent:  config.UserAgent,
		Logger:     config.Logger,
	})

	return NewWithTokenManager(config, tokenManager)
}

// NewWithTokenManager creates a client that takes bearer tokens from
// tokenManager instead of exchanging the configured credentials.
func NewWithTokenManager(config *idm.Config, tokenManager auth.TokenManager) (*Client, error) {
	if config == nil {
		return nil, idm.ErrConfigRequired
	}

	endpoint := normalizeEndpoint(config.Endpoint)

	httpOpts, err := createHTTPClientOptions(config)
	if err != nil {
		return nil, err
	}

	httpClient := http.NewClient(endpoint, tokenManager, httpOpts...)

	client := &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		baseURL:      endpoint,
		logger:       config.Logger,
	}

	client.initializeResourceClients(idm.NormalizePageSize(config.PageSize))

	return client, nil
}

func (c *Client) initializeResourceClients(pageSize int) {
	c.tenants = NewTenantsClient(c.httpClient, pageSize)
	c.users = NewUsersClient(c.httpClient, pageSize)
}

// Tenants implements idm.Client.Tenants.
func (c *Client) Tenants() idm.TenantsClient {
	return c.tenants
}

// Users implements idm.Client.Users.
func (c *Client) Users() idm.UsersClient {
	return c.users
}

// TokenManager returns the manager supplying bearer tokens.
func (c *Client) TokenManager() auth.TokenManager {
	return c.tokenManager
}

// BaseURL returns the normalised API endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// normalizeEndpoint applies the default endpoint, trims trailing slashes and
// adds https:// when no scheme is given.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = constants.DefaultEndpoint
	}

	endpoint = strings.TrimRight(endpoint, "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *idm.Config) ([]http.Option, error) {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.RequestTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.RequestTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	if config.RateLimit > 0 {
		httpOpts = append(httpOpts, http.WithRateLimit(config.RateLimit, int(config.RateLimit)))
	}

	if config.MetricsRegisterer != nil {
		metrics, err := http.NewMetrics(config.MetricsRegisterer)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}

		httpOpts = append(httpOpts, http.WithMetrics(metrics))
	}

	return httpOpts, nil
}
