package fakeidm_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/idm-client/internal/fakeidm"
)

type harness struct {
	t     *testing.T
	url   string
	token string
	svc   *fakeidm.Service
}

func newHarness(t *testing.T, opts ...fakeidm.Option) *harness {
	t.Helper()

	svc, server := fakeidm.NewServer(opts...)
	t.Cleanup(server.Close)

	h := &harness{t: t, url: server.URL, svc: svc}

	status, body := h.do(http.MethodPost, "/auth/vendor", map[string]string{
		"clientId": fakeidm.DefaultClientID,
		"secret":   fakeidm.DefaultSecret,
	}, nil)
	require.Equal(t, http.StatusOK, status)

	var auth struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expiresIn"`
	}
	require.NoError(t, json.Unmarshal(body, &auth))
	require.NotEmpty(t, auth.Token)
	assert.Equal(t, 3600, auth.ExpiresIn)

	h.token = auth.Token

	return h
}

func (h *harness) do(method, path string, body interface{}, headers map[string]string) (int, []byte) {
	h.t.Helper()

	var reader *bytes.Reader

	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)

		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, h.url+path, reader)
	require.NoError(h.t, err)

	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)

	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)

	return resp.StatusCode, buf.Bytes()
}

func TestAuth_RejectsBadCredentials(t *testing.T) {
	t.Parallel()

	svc, server := fakeidm.NewServer()
	defer server.Close()

	h := &harness{t: t, url: server.URL, svc: svc}

	status, body := h.do(http.MethodPost, "/auth/vendor", map[string]string{"clientId": "x", "secret": "y"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"message":"Unauthorized","errors":[]}`, string(body))
	assert.Equal(t, 1, svc.AuthCount())

	status, _ = h.do(http.MethodGet, "/tenants/resources/tenants/v1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTenants_Lifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	id := uuid.New()

	status, body := h.do(http.MethodPost, "/tenants/resources/tenants/v1", map[string]interface{}{
		"tenantId": id.String(),
		"name":     "acme",
		"metadata": map[string]int{"a": 1},
	}, nil)
	require.Equal(t, http.StatusCreated, status, string(body))

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, `{"a":1}`, created["metadata"])
	assert.Nil(t, created["creatorName"])

	status, body = h.do(http.MethodGet, "/tenants/resources/tenants/v1/"+id.String(), nil, nil)
	require.Equal(t, http.StatusOK, status)

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "acme", got[0]["name"])

	status, body = h.do(http.MethodPost, "/tenants/resources/tenants/v1/"+id.String()+"/metadata",
		map[string]interface{}{"metadata": map[string]int{"b": 2}}, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	raw, ok := h.svc.TenantMetadata(id)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1,"b":2}`, string(raw))

	status, _ = h.do(http.MethodDelete, "/tenants/resources/tenants/v1/"+id.String()+"/metadata/a", nil, nil)
	require.Equal(t, http.StatusOK, status)

	raw, _ = h.svc.TenantMetadata(id)
	assert.JSONEq(t, `{"b":2}`, string(raw))

	status, _ = h.do(http.MethodDelete, "/tenants/resources/tenants/v1/"+id.String(), nil, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = h.do(http.MethodGet, "/tenants/resources/tenants/v1/"+id.String(), nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, _ = h.do(http.MethodDelete, "/tenants/resources/tenants/v1/"+id.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTenants_MetadataOnScalarIsRejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	id := uuid.New()

	status, _ := h.do(http.MethodPost, "/tenants/resources/tenants/v1", map[string]interface{}{
		"tenantId": id.String(),
		"name":     "scalar",
		"metadata": 42,
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	status, _ = h.do(http.MethodDelete, "/tenants/resources/tenants/v1/"+id.String()+"/metadata/a", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodPost, "/tenants/resources/tenants/v1/"+id.String()+"/metadata",
		map[string]interface{}{"metadata": []int{1}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTenants_MissingMetadataKey(t *testing.T) {
	t.Parallel()

	for _, strict := range []bool{false, true} {
		h := newHarness(t, fakeidm.WithStrictMetadataKeys(strict))
		id := uuid.New()

		status, _ := h.do(http.MethodPost, "/tenants/resources/tenants/v1", map[string]interface{}{
			"tenantId": id.String(),
			"name":     "keys",
			"metadata": map[string]int{"a": 1},
		}, nil)
		require.Equal(t, http.StatusCreated, status)

		want := http.StatusOK
		if strict {
			want = http.StatusNotFound
		}

		status, _ = h.do(http.MethodDelete, "/tenants/resources/tenants/v1/"+id.String()+"/metadata/missing", nil, nil)
		assert.Equal(t, want, status, "strict=%v", strict)

		raw, _ := h.svc.TenantMetadata(id)
		assert.JSONEq(t, `{"a":1}`, string(raw))
	}
}

func TestTenants_CreateValidation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	status, _ := h.do(http.MethodPost, "/tenants/resources/tenants/v1", map[string]string{"name": "no id"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	id := uuid.New().String()

	status, _ = h.do(http.MethodPost, "/tenants/resources/tenants/v1", map[string]string{"tenantId": id, "name": "a"}, nil)
	require.Equal(t, http.StatusCreated, status)

	status, _ = h.do(http.MethodPost, "/tenants/resources/tenants/v1", map[string]string{"tenantId": id, "name": "a"}, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestTenants_PagedListing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	var ids []string

	for range 5 {
		id := uuid.New().String()
		ids = append(ids, id)

		status, _ := h.do(http.MethodPost, "/tenants/resources/tenants/v1", map[string]string{"tenantId": id, "name": id}, nil)
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := h.do(http.MethodGet, "/tenants/resources/tenants/v2?_limit=2&_offset=2", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"totalItems":5,"totalPages":3}`, string(extract(t, body, "_metadata")))

	var page struct {
		Items []map[string]interface{} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, ids[4], page.Items[0]["tenantId"])

	status, body = h.do(http.MethodGet, "/tenants/resources/tenants/v2?_tenantId="+ids[1], nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, ids[1], page.Items[0]["tenantId"])
}

func TestUsers_CreateGetListDelete(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	tenantA := uuid.New().String()
	tenantB := uuid.New().String()

	for _, id := range []string{tenantA, tenantB} {
		status, _ := h.do(http.MethodPost, "/tenants/resources/tenants/v1", map[string]string{"tenantId": id, "name": id}, nil)
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := h.do(http.MethodPost, "/identity/resources/users/v1", map[string]interface{}{
		"name": "Ada", "email": "ada@example.com", "skipInviteEmail": true,
	}, map[string]string{"frontegg-tenant-id": tenantA})
	require.Equal(t, http.StatusCreated, status, string(body))

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotContains(t, created, "tenants")
	assert.Equal(t, []interface{}{}, created["roles"])

	userID := created["id"].(string)

	status, _ = h.do(http.MethodPost, "/identity/resources/users/v1", map[string]interface{}{
		"name": "Bob", "email": "bob@example.com",
	}, map[string]string{"frontegg-tenant-id": tenantB})
	require.Equal(t, http.StatusCreated, status)

	status, body = h.do(http.MethodGet, "/identity/resources/vendor-only/users/v1/"+userID, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"tenantId":"`+tenantA+`","roles":[]}]`, string(extract(t, body, "tenants")))

	status, body = h.do(http.MethodGet, "/identity/resources/users/v1?_limit=1&_offset=0", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"totalItems":2,"totalPages":2}`, string(extract(t, body, "_metadata")))

	status, body = h.do(http.MethodGet, "/identity/resources/users/v1", nil, map[string]string{"frontegg-tenant-id": tenantB})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"totalItems":1,"totalPages":1}`, string(extract(t, body, "_metadata")))

	status, _ = h.do(http.MethodDelete, "/identity/resources/users/v1/"+userID, nil, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = h.do(http.MethodGet, "/identity/resources/vendor-only/users/v1/"+userID, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	requests := h.svc.Requests()
	require.NotEmpty(t, requests)
	assert.Equal(t, "/auth/vendor", requests[0].Path)
}

func TestUsers_CreateValidation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	status, _ := h.do(http.MethodPost, "/identity/resources/users/v1", map[string]string{"name": "a", "email": "a@b.c"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.do(http.MethodPost, "/identity/resources/users/v1", map[string]string{"name": "a", "email": "a@b.c"},
		map[string]string{"frontegg-tenant-id": uuid.New().String()})
	assert.Equal(t, http.StatusNotFound, status)

	tenant := uuid.New().String()
	status, _ = h.do(http.MethodPost, "/tenants/resources/tenants/v1", map[string]string{"tenantId": tenant, "name": "t"}, nil)
	require.Equal(t, http.StatusCreated, status)

	status, body := h.do(http.MethodPost, "/identity/resources/users/v1", map[string]string{"name": "", "email": "nope"},
		map[string]string{"frontegg-tenant-id": tenant})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `["name should not be empty","email must be an email"]`, string(extract(t, body, "errors")))
}

func TestFailNextAndRevoke(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.svc.FailNext(1, http.StatusServiceUnavailable, `{"message":"try later"}`)

	status, _ := h.do(http.MethodGet, "/tenants/resources/tenants/v1", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = h.do(http.MethodGet, "/tenants/resources/tenants/v1", nil, nil)
	assert.Equal(t, http.StatusOK, status)

	h.svc.RevokeTokens()

	status, _ = h.do(http.MethodGet, "/tenants/resources/tenants/v1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func extract(t *testing.T, body []byte, key string) json.RawMessage {
	t.Helper()

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))

	return m[key]
}
