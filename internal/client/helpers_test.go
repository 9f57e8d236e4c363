package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/idm-client/internal/fakeidm"
	"github.com/fivetwenty-io/idm-client/pkg/idm"
)

// newTestClient starts a fake service and returns a client bound to it.
func newTestClient(t *testing.T, opts ...fakeidm.Option) (*Client, *fakeidm.Service) {
	t.Helper()

	return newTestClientWithConfig(t, &idm.Config{}, opts...)
}

func newTestClientWithConfig(t *testing.T, config *idm.Config, opts ...fakeidm.Option) (*Client, *fakeidm.Service) {
	t.Helper()

	svc, server := fakeidm.NewServer(opts...)
	t.Cleanup(server.Close)

	if config.ClientID == "" {
		config.ClientID = fakeidm.DefaultClientID
	}

	if config.Secret == "" {
		config.Secret = fakeidm.DefaultSecret
	}

	config.Endpoint = server.URL

	client, err := New(config)
	require.NoError(t, err)

	return client, svc
}

// createTenant creates a tenant named name and fails the test on error.
func createTenant(t *testing.T, client *Client, name string, metadata any) *idm.Tenant {
	t.Helper()

	req := &idm.TenantCreateRequest{ID: uuid.New(), Name: name}
	if metadata != nil {
		m := idm.MustMetadata(metadata)
		req.Metadata = &m
	}

	tenant, err := client.Tenants().Create(context.Background(), req)
	require.NoError(t, err)

	return tenant
}

// countRequests counts recorded requests with the given method and path.
func countRequests(svc *fakeidm.Service, method, path string) int {
	n := 0

	for _, r := range svc.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}

	return n
}

// ErrorKindTest is one row of a status-to-kind table.
type ErrorKindTest struct {
	Name       string
	StatusCode int
	Body       string
	Check      func(error) bool
	Messages   []string
}

// runErrorKindTests injects each failure into the fake service and checks the
// kind of the error returned by call.
func runErrorKindTests(t *testing.T, tests []ErrorKindTest, call func(*Client) error) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			t.Parallel()

			client, svc := newTestClient(t)
			svc.FailNext(1, tt.StatusCode, tt.Body)

			err := call(client)
			require.Error(t, err)
			assert.True(t, tt.Check(err), "unexpected error kind for %v", err)

			var idmErr *idm.Error

			require.ErrorAs(t, err, &idmErr)
			assert.Equal(t, tt.StatusCode, idmErr.StatusCode)

			if tt.Messages != nil {
				assert.Equal(t, tt.Messages, idmErr.Messages)
			}
		})
	}
}

var standardErrorKindTests = []ErrorKindTest{
	{
		Name:       "bad request",
		StatusCode: http.StatusBadRequest,
		Body:       `{"message":"Validation failed","errors":["name should not be empty"]}`,
		Check:      idm.IsValidation,
		Messages:   []string{"name should not be empty", "Validation failed"},
	},
	{
		Name:       "conflict",
		StatusCode: http.StatusConflict,
		Body:       `{"errors":["already exists"]}`,
		Check:      idm.IsValidation,
		Messages:   []string{"already exists"},
	},
	{
		Name:       "forbidden",
		StatusCode: http.StatusForbidden,
		Body:       `{"message":"Forbidden"}`,
		Check:      idm.IsAuth,
	},
	{
		Name:       "server error",
		StatusCode: http.StatusInternalServerError,
		Body:       `oops`,
		Check:      idm.IsServer,
		Messages:   []string{"unable to decode error details"},
	},
	{
		Name:       "bad gateway",
		StatusCode: http.StatusBadGateway,
		Body:       ``,
		Check:      idm.IsServer,
	},
}
