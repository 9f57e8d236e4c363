package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/idm-client/internal/auth"
	"github.com/fivetwenty-io/idm-client/pkg/idm"
)

func TestToken_ValidAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token *auth.Token
		want  bool
	}{
		{name: "nil", token: nil, want: false},
		{name: "no access token", token: &auth.Token{ExpiresAt: now.Add(time.Hour)}, want: false},
		{name: "no expiry", token: &auth.Token{AccessToken: "t"}, want: true},
		{
			name:  "default margin not reached",
			token: &auth.Token{AccessToken: "t", ExpiresAt: now.Add(31 * time.Second)},
			want:  true,
		},
		{
			name:  "inside default margin",
			token: &auth.Token{AccessToken: "t", ExpiresAt: now.Add(30 * time.Second)},
			want:  false,
		},
		{
			name: "refresh instant wins over default margin",
			token: &auth.Token{
				AccessToken: "t",
				ExpiresAt:   now.Add(time.Hour),
				RefreshAt:   now,
			},
			want: false,
		},
		{
			name: "short-lived token before its refresh instant",
			token: &auth.Token{
				AccessToken: "t",
				ExpiresAt:   now.Add(20 * time.Second),
				RefreshAt:   now.Add(10 * time.Second),
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.token.ValidAt(now))
		})
	}
}

func TestRefreshMargin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		lifetime time.Duration
		want     time.Duration
	}{
		{time.Hour, 30 * time.Second},
		{time.Minute, 30 * time.Second},
		{20 * time.Second, 10 * time.Second},
		{0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, auth.RefreshMargin(tt.lifetime), "lifetime %s", tt.lifetime)
	}
}

func TestTokenStore_ConcurrentUse(t *testing.T) {
	t.Parallel()

	store := auth.NewTokenStore()
	assert.Nil(t, store.Get())

	var wg sync.WaitGroup

	for i := range 4 {
		wg.Add(2)

		go func() {
			defer wg.Done()

			store.Set(&auth.Token{AccessToken: fmt.Sprintf("token-%d", i)})
		}()

		go func() {
			defer wg.Done()

			_ = store.Get()
		}()
	}

	wg.Wait()
	require.NotNil(t, store.Get())

	store.Clear()
	assert.Nil(t, store.Get())
}

// unreachable is an endpoint nothing listens on, so any exchange fails.
const unreachable = "http://127.0.0.1:1"

func newUnreachableManager() *auth.VendorTokenManager {
	return auth.NewVendorTokenManager(&auth.VendorConfig{
		Endpoint: unreachable,
		ClientID: "client-id",
		Secret:   "secret",
		Timeout:  time.Second,
	})
}

func TestVendorTokenManager_SetTokenWithoutExpiry(t *testing.T) {
	t.Parallel()

	m := newUnreachableManager()
	m.SetToken("static", time.Time{})

	token, err := m.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", token)
	assert.True(t, m.Current().ExpiresAt.IsZero())
}

func TestVendorTokenManager_SetTokenAlreadyStale(t *testing.T) {
	t.Parallel()

	m := newUnreachableManager()
	m.SetToken("stale", time.Now().Add(10*time.Second))

	_, err := m.GetToken(context.Background())
	require.Error(t, err)
	assert.True(t, idm.IsTransport(err))
}

func TestVendorTokenManager_RefreshDropsCachedToken(t *testing.T) {
	t.Parallel()

	m := newUnreachableManager()
	m.SetToken("revoked", time.Time{})

	err := m.RefreshToken(context.Background())
	require.Error(t, err)
	assert.True(t, idm.IsTransport(err))
	assert.Nil(t, m.Current())
}
