package auth

import (
	"sync"
	"time"

	"github.com/fivetwenty-io/idm-client/internal/constants"
)

// Token is a cached bearer credential.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
	// RefreshAt is when the token should be replaced. Zero means
	// ExpiresAt minus the default refresh margin.
	RefreshAt time.Time
}

// Valid reports whether the token can still be used.
func (t *Token) Valid() bool {
	return t.ValidAt(time.Now())
}

// ValidAt reports whether the token can be used at now. A token without an
// expiry never goes stale.
func (t *Token) ValidAt(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	refreshAt := t.RefreshAt
	if refreshAt.IsZero() {
		refreshAt = t.ExpiresAt.Add(-constants.TokenRefreshMargin)
	}

	return now.Before(refreshAt)
}

// RefreshMargin returns how long before expiry a token with the given
// lifetime is replaced: 30s, or half the lifetime for short-lived tokens.
func RefreshMargin(lifetime time.Duration) time.Duration {
	return min(constants.TokenRefreshMargin, lifetime/2)
}

// TokenStore holds the current token for one client.
type TokenStore struct {
	mutex sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the current token or nil.
func (s *TokenStore) Get() *Token {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.token
}

// Set replaces the current token.
func (s *TokenStore) Set(token *Token) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token = token
}

// Clear drops the current token.
func (s *TokenStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token = nil
}
