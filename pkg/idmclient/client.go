package idmclient

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/fivetwenty-io/idm-client/internal/auth"
	"github.com/fivetwenty-io/idm-client/internal/client"
	"github.com/fivetwenty-io/idm-client/pkg/idm"
)

// Static errors for err113 compliance.
var (
	ErrNoTokenSource = errors.New("client does not exchange vendor credentials")
)

// New creates an identity service client. config is not modified.
//
// No request is made until the first call on a resource client; bad
// credentials surface as an idm.KindAuth error from that call.
func New(ctx context.Context, config *idm.Config) (idm.Client, error) {
	c, err := newClient(ctx, config)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// NewWithCredentials creates a client for the default endpoint.
func NewWithCredentials(ctx context.Context, clientID, secret string) (idm.Client, error) {
	return New(ctx, &idm.Config{
		ClientID: clientID,
		Secret:   secret,
	})
}

// NewWithEndpoint creates a client for a regional or self-hosted endpoint.
func NewWithEndpoint(ctx context.Context, endpoint, clientID, secret string) (idm.Client, error) {
	return New(ctx, &idm.Config{
		Endpoint: endpoint,
		ClientID: clientID,
		Secret:   secret,
	})
}

// NewTokenSource returns an oauth2.TokenSource yielding vendor bearer tokens
// for config. Tokens are cached and renewed shortly before they expire.
func NewTokenSource(ctx context.Context, config *idm.Config) (oauth2.TokenSource, error) {
	c, err := newClient(ctx, config)
	if err != nil {
		return nil, err
	}

	manager, ok := c.TokenManager().(*auth.VendorTokenManager)
	if !ok {
		return nil, ErrNoTokenSource
	}

	return oauth2.ReuseTokenSource(nil, manager.TokenSource(ctx)), nil
}

func newClient(ctx context.Context, config *idm.Config) (*client.Client, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	if config == nil {
		return nil, idm.ErrConfigRequired
	}

	cfg := *config

	c, err := client.New(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}
