package auth

import (
	"context"

	"golang.org/x/oauth2"
)

type vendorTokenSource struct {
	ctx     context.Context //nolint:containedctx // oauth2.TokenSource has no context parameter
	manager *VendorTokenManager
}

// TokenSource adapts the manager to oauth2.TokenSource. Tokens are cached by
// the manager, so the source performs an exchange only when needed.
func (m *VendorTokenManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &vendorTokenSource{ctx: ctx, manager: m}
}

// Token implements oauth2.TokenSource.
func (s *vendorTokenSource) Token() (*oauth2.Token, error) {
	access, err := s.manager.GetToken(s.ctx)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
	}

	if current := s.manager.Current(); current != nil && current.AccessToken == access {
		token.Expiry = current.ExpiresAt
	}

	return token, nil
}
