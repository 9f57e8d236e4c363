package idmclient_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/fivetwenty-io/idm-client/internal/fakeidm"
	"github.com/fivetwenty-io/idm-client/pkg/idm"
	"github.com/fivetwenty-io/idm-client/pkg/idmclient"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires config", func(t *testing.T) {
		t.Parallel()

		_, err := idmclient.New(context.Background(), nil)
		require.ErrorIs(t, err, idm.ErrConfigRequired)
	})

	t.Run("requires credentials", func(t *testing.T) {
		t.Parallel()

		_, err := idmclient.New(context.Background(), &idm.Config{ClientID: "id"})
		require.ErrorIs(t, err, idm.ErrSecretRequired)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := idmclient.New(ctx, &idm.Config{ClientID: "id", Secret: "secret"})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("does not modify config", func(t *testing.T) {
		t.Parallel()

		config := &idm.Config{ClientID: "id", Secret: "secret", Endpoint: "api.example.com/"}

		client, err := idmclient.New(context.Background(), config)
		require.NoError(t, err)
		assert.NotNil(t, client)
		assert.Equal(t, "api.example.com/", config.Endpoint)
	})
}

func TestNewWithCredentials(t *testing.T) {
	t.Parallel()

	client, err := idmclient.NewWithCredentials(context.Background(), "client-id", "secret")
	require.NoError(t, err)
	assert.NotNil(t, client.Tenants())
	assert.NotNil(t, client.Users())
}

func TestNewWithEndpoint_EndToEnd(t *testing.T) {
	t.Parallel()

	svc, server := fakeidm.NewServer()
	defer server.Close()

	ctx := context.Background()

	client, err := idmclient.NewWithEndpoint(ctx, server.URL, fakeidm.DefaultClientID, fakeidm.DefaultSecret)
	require.NoError(t, err)

	tenant, err := client.Tenants().Create(ctx, &idm.TenantCreateRequest{Name: "acme"})
	require.NoError(t, err)

	user, err := client.Users().Create(ctx, &idm.UserCreateRequest{
		TenantID: tenant.ID.String(),
		Name:     "Ada",
		Email:    "ada@example.com",
	})
	require.NoError(t, err)

	users, err := client.Users().List(ctx, &idm.UserListOptions{TenantID: tenant.ID.String()})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, user.ID, users[0].ID)

	require.NoError(t, client.Users().Delete(ctx, user.ID.String()))
	require.NoError(t, client.Tenants().Delete(ctx, tenant.ID.String()))

	_, err = client.Tenants().Get(ctx, tenant.ID.String())
	assert.True(t, idm.IsNotFound(err))
	assert.Equal(t, 1, svc.AuthCount())
}

func TestNewTokenSource(t *testing.T) {
	t.Parallel()

	svc, server := fakeidm.NewServer()
	defer server.Close()

	ts, err := idmclient.NewTokenSource(context.Background(), &idm.Config{
		ClientID: fakeidm.DefaultClientID,
		Secret:   fakeidm.DefaultSecret,
		Endpoint: server.URL,
	})
	require.NoError(t, err)

	token, err := ts.Token()
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.True(t, token.Valid())

	again, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, token.AccessToken, again.AccessToken)
	assert.Equal(t, 1, svc.AuthCount())

	// The token authenticates plain HTTP calls too.
	httpClient := oauth2.NewClient(context.Background(), ts)

	resp, err := httpClient.Get(server.URL + "/tenants/resources/tenants/v1")
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
