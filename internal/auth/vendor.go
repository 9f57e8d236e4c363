package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fivetwenty-io/idm-client/internal/constants"
	"github.com/fivetwenty-io/idm-client/pkg/idm"
)

// Static errors for err113 compliance.
var (
	ErrMissingAccessToken = errors.New("identity endpoint returned no token")
	ErrNoTokenAvailable   = errors.New("no token available")
)

// TokenManager manages bearer tokens for the transport.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) error
	SetToken(token string, expiresAt time.Time)
}

// VendorConfig holds the configuration for a VendorTokenManager.
type VendorConfig struct {
	// Endpoint is the vendor API base URL without a trailing slash.
	Endpoint string
	ClientID string
	Secret   string
	// HTTPClient performs the exchange. Defaults to a client with Timeout.
	HTTPClient *http.Client
	// Timeout bounds a single exchange. Defaults to 60s.
	Timeout   time.Duration
	UserAgent string
	Logger    idm.Logger
}

// VendorTokenManager exchanges a client ID and secret for a bearer token at
// the vendor auth endpoint and caches it until shortly before expiry.
//
// Concurrent callers that find no usable token share a single exchange. The
// store lock is never held while the exchange is on the wire.
type VendorTokenManager struct {
	config *VendorConfig
	client *http.Client
	store  *TokenStore
	group  singleflight.Group
	now    func() time.Time
}

type vendorAuthRequest struct {
	ClientID string `json:"clientId"`
	Secret   string `json:"secret"`
}

type vendorAuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// NewVendorTokenManager creates a token manager for cfg.
func NewVendorTokenManager(cfg *VendorConfig) *VendorTokenManager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultRequestTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &VendorTokenManager{
		config: cfg,
		client: client,
		store:  NewTokenStore(),
		now:    time.Now,
	}
}

// GetToken returns a cached token if it is still fresh, otherwise it waits
// for a new one.
func (m *VendorTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token.ValidAt(m.now()) {
		return token.AccessToken, nil
	}

	token, err := m.exchange(ctx)
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// RefreshToken discards the cached token and performs a new exchange.
func (m *VendorTokenManager) RefreshToken(ctx context.Context) error {
	m.store.Clear()

	_, err := m.exchange(ctx)

	return err
}

// SetToken installs a token obtained elsewhere.
func (m *VendorTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{
		AccessToken: token,
		ExpiresAt:   expiresAt,
	})
}

// Current returns the cached token without refreshing it.
func (m *VendorTokenManager) Current() *Token {
	return m.store.Get()
}

// exchange joins the in-flight exchange or starts one. The exchange itself
// runs detached from ctx so that one caller giving up does not fail the
// others; ctx only bounds how long this caller waits.
func (m *VendorTokenManager) exchange(ctx context.Context) (*Token, error) {
	err := ctx.Err()
	if err != nil {
		return nil, idm.TransportError(fmt.Errorf("waiting for vendor token: %w", err))
	}

	ch := m.group.DoChan("vendor-token", func() (interface{}, error) {
		exCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.Timeout)
		defer cancel()

		return m.fetchToken(exCtx)
	})

	select {
	case <-ctx.Done():
		return nil, idm.TransportError(fmt.Errorf("waiting for vendor token: %w", ctx.Err()))
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		token, ok := res.Val.(*Token)
		if !ok {
			return nil, idm.DecodeError(ErrNoTokenAvailable)
		}

		return token, nil
	}
}

func (m *VendorTokenManager) fetchToken(ctx context.Context) (*Token, error) {
	body, err := json.Marshal(vendorAuthRequest{
		ClientID: m.config.ClientID,
		Secret:   m.config.Secret,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding auth request: %w", err)
	}

	url := strings.TrimRight(m.config.Endpoint, "/") + constants.AuthVendorPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, idm.InvalidInput("building auth request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if m.config.UserAgent != "" {
		req.Header.Set("User-Agent", m.config.UserAgent)
	}

	m.logDebug("Exchanging vendor credentials", map[string]interface{}{
		"url":       url,
		"client_id": m.config.ClientID,
	})

	issuedAt := m.now()

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, idm.TransportError(fmt.Errorf("exchanging vendor credentials: %w", err))
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, idm.TransportError(fmt.Errorf("reading auth response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := idm.Classify(resp.StatusCode, respBody, "", "")
		// Any client error from the identity endpoint means the credentials
		// were rejected.
		if resp.StatusCode < 500 {
			apiErr.Kind = idm.KindAuth
		}

		m.logWarn("Vendor credential exchange failed", map[string]interface{}{
			"status": resp.StatusCode,
		})

		return nil, apiErr
	}

	var ar vendorAuthResponse

	err = json.Unmarshal(respBody, &ar)
	if err != nil {
		return nil, idm.DecodeError(fmt.Errorf("decoding auth response: %w", err))
	}

	if ar.Token == "" {
		return nil, idm.DecodeError(ErrMissingAccessToken)
	}

	lifetime := time.Duration(ar.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = constants.DefaultTokenLifetime
	}

	expiresAt := issuedAt.Add(lifetime)
	token := &Token{
		AccessToken: ar.Token,
		ExpiresAt:   expiresAt,
		RefreshAt:   expiresAt.Add(-RefreshMargin(lifetime)),
	}

	m.store.Set(token)

	m.logDebug("Vendor token issued", map[string]interface{}{
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	return token, nil
}

func (m *VendorTokenManager) logDebug(msg string, fields map[string]interface{}) {
	if m.config.Logger != nil {
		m.config.Logger.Debug(msg, fields)
	}
}

func (m *VendorTokenManager) logWarn(msg string, fields map[string]interface{}) {
	if m.config.Logger != nil {
		m.config.Logger.Warn(msg, fields)
	}
}
