package idm

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTenantID = "4b5b8f7c-3e1d-4f0a-9c2b-0d6e8a1f2b3c"
	testUserID   = "9f1e2d3c-4b5a-4968-8776-a5b4c3d2e1f0"
	testRoleID   = "11111111-2222-4333-8444-555555555555"
)

func TestDecodeTenant(t *testing.T) {
	t.Parallel()

	body := `{
		"tenantId": "` + testTenantID + `",
		"name": "acme",
		"metadata": {"tier": "gold"},
		"creatorName": "",
		"createdAt": "2024-01-02T03:04:05Z",
		"updatedAt": "2024-01-03T03:04:05Z",
		"deletedAt": null
	}`

	tenant, err := DecodeTenant([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, uuid.MustParse(testTenantID), tenant.ID)
	assert.Equal(t, "acme", tenant.Name)
	assert.True(t, tenant.Metadata.Equal(MustMetadata(map[string]any{"tier": "gold"})))
	require.NotNil(t, tenant.CreatorName)
	assert.Empty(t, *tenant.CreatorName)
	assert.Nil(t, tenant.CreatorEmail)
	assert.Nil(t, tenant.DeletedAt)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), tenant.CreatedAt)
	assert.Equal(t, time.Date(2024, 1, 3, 3, 4, 5, 0, time.UTC), tenant.UpdatedAt)
}

func TestDecodeTenant_MetadataShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		metadata string
		expected Metadata
	}{
		{name: "absent", metadata: ``, expected: NullMetadata()},
		{name: "null", metadata: `,"metadata":null`, expected: NullMetadata()},
		{name: "number", metadata: `,"metadata":42`, expected: MustMetadata(42)},
		{name: "array", metadata: `,"metadata":[1,2]`, expected: MustMetadata([]int{1, 2})},
		{name: "nested object text", metadata: `,"metadata":"{\"a\":1}"`, expected: MustMetadata(map[string]any{"a": 1})},
		{name: "nested array text", metadata: `,"metadata":" [true] "`, expected: MustMetadata([]bool{true})},
		{name: "plain string", metadata: `,"metadata":"hello"`, expected: MustMetadata("hello")},
		{name: "string that looks like a number", metadata: `,"metadata":"42"`, expected: MustMetadata("42")},
		{name: "broken nested text", metadata: `,"metadata":"{oops"`, expected: MustMetadata("{oops")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body := `{"tenantId":"` + testTenantID + `","name":"n"` + tt.metadata + `}`

			tenant, err := DecodeTenant([]byte(body))
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(tenant.Metadata), "got %s", tenant.Metadata)
		})
	}
}

func TestDecodeTenant_InvalidID(t *testing.T) {
	t.Parallel()

	for _, body := range []string{
		`{"name":"missing id"}`,
		`{"tenantId":"not-a-uuid","name":"x"}`,
		`{"tenantId":42}`,
		`[]`,
	} {
		_, err := DecodeTenant([]byte(body))
		require.Error(t, err, body)
		assert.True(t, IsDecode(err), body)
	}
}

func TestDecodeTenants_PreservesOrder(t *testing.T) {
	t.Parallel()

	second := uuid.New()
	body := `[{"tenantId":"` + testTenantID + `","name":"a"},{"tenantId":"` + second.String() + `","name":"b"}]`

	tenants, err := DecodeTenants([]byte(body))
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "a", tenants[0].Name)
	assert.Equal(t, second, tenants[1].ID)

	tenants, err = DecodeTenants([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, tenants)
}

func TestDecodeTenantPage(t *testing.T) {
	t.Parallel()

	body := `{"items":[{"tenantId":"` + testTenantID + `","name":"a"}],"_metadata":{"totalItems":3,"totalPages":3}}`

	tenants, meta, err := DecodeTenantPage([]byte(body))
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, PageMetadata{TotalItems: 3, TotalPages: 3}, meta)
}

func TestDecodeUser(t *testing.T) {
	t.Parallel()

	body := `{
		"id": "` + testUserID + `",
		"name": "Ada",
		"email": "ada@example.com",
		"createdAt": "2024-05-06T07:08:09.123Z",
		"tenants": [
			{"tenantId": "` + testTenantID + `", "roles": [{
				"id": "` + testRoleID + `", "key": "admin", "name": "Admin",
				"level": 0, "isDefault": true, "permissions": [],
				"createdAt": "2024-01-01T00:00:00Z"
			}]},
			{"tenantId": "` + testRoleID + `"}
		]
	}`

	user, err := DecodeUser([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, uuid.MustParse(testUserID), user.ID)
	assert.Equal(t, "Ada", user.Name)
	assert.True(t, user.Metadata.IsNull())
	require.Len(t, user.Tenants, 2)
	assert.Equal(t, uuid.MustParse(testTenantID), user.Tenants[0].TenantID)
	assert.Equal(t, []string{"admin"}, user.Tenants[0].RoleKeys())
	assert.True(t, user.Tenants[0].Roles[0].IsDefault)
	assert.NotNil(t, user.Tenants[1].Roles)
	assert.Empty(t, user.Tenants[1].Roles)
	assert.Equal(t, []uuid.UUID{uuid.MustParse(testTenantID), uuid.MustParse(testRoleID)}, user.TenantIDs())

	binding, ok := user.Binding(uuid.MustParse(testTenantID))
	require.True(t, ok)
	assert.Len(t, binding.Roles, 1)
}

func TestDecodeUser_Strictness(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"missing id":        `{"name":"a","createdAt":"2024-01-01T00:00:00Z"}`,
		"bad id":            `{"id":"nope","createdAt":"2024-01-01T00:00:00Z"}`,
		"missing createdAt": `{"id":"` + testUserID + `"}`,
		"bad createdAt":     `{"id":"` + testUserID + `","createdAt":"yesterday"}`,
		"bad binding":       `{"id":"` + testUserID + `","createdAt":"2024-01-01T00:00:00Z","tenants":[{"tenantId":"x"}]}`,
		"not an object":     `"user"`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeUser([]byte(body))
			require.Error(t, err)
			assert.True(t, IsDecode(err))
		})
	}
}

func TestDecodeCreatedUser(t *testing.T) {
	t.Parallel()

	body := `{"id":"` + testUserID + `","name":"Ada","email":"ada@example.com","metadata":"{\"team\":\"core\"}","createdAt":"2024-01-01T00:00:00Z","roles":[],"permissions":[]}`

	user, roles, err := DecodeCreatedUser([]byte(body))
	require.NoError(t, err)

	assert.Nil(t, user.Tenants)
	assert.NotNil(t, roles)
	assert.Empty(t, roles)
	assert.True(t, user.Metadata.Equal(MustMetadata(map[string]any{"team": "core"})))

	body = `{"id":"` + testUserID + `","createdAt":"2024-01-01T00:00:00Z","tenants":[{"tenantId":"` + testTenantID + `","roles":[]}]}`

	user, _, err = DecodeCreatedUser([]byte(body))
	require.NoError(t, err)
	require.Len(t, user.Tenants, 1)
}

func TestDecodeUserPage(t *testing.T) {
	t.Parallel()

	body := `{"items":[{"id":"` + testUserID + `","createdAt":"2024-01-01T00:00:00Z","tenants":[]}],"_metadata":{"totalItems":1,"totalPages":1}}`

	users, meta, err := DecodeUserPage([]byte(body))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 1, meta.TotalPages)

	_, _, err = DecodeUserPage([]byte(`{"items":[{"id":"bad"}]}`))
	assert.True(t, IsDecode(err))
}

func TestEncodeTenantCreate_OmitsUnsetFields(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse(testTenantID)

	data, err := EncodeTenantCreate(&TenantCreateRequest{ID: id, Name: "acme"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tenantId":"`+testTenantID+`","name":"acme"}`, string(data))

	metadata := MustMetadata(map[string]any{"tier": 1})

	data, err = EncodeTenantCreate(&TenantCreateRequest{
		ID:           id,
		Name:         "acme",
		Metadata:     &metadata,
		CreatorName:  Ptr(""),
		CreatorEmail: Ptr("ops@example.com"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tenantId":"`+testTenantID+`","name":"acme","metadata":{"tier":1},"creatorName":"","creatorEmail":"ops@example.com"}`, string(data))

	_, err = EncodeTenantCreate(&TenantCreateRequest{Name: "no id"})
	assert.True(t, IsInvalidInput(err))
}

func TestEncodeUserCreate_KeepsTenantOutOfBody(t *testing.T) {
	t.Parallel()

	data, err := EncodeUserCreate(&UserCreateRequest{
		TenantID:        testTenantID,
		Name:            "Ada",
		Email:           "ada@example.com",
		SkipInviteEmail: true,
	})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, map[string]any{"name": "Ada", "email": "ada@example.com", "skipInviteEmail": true}, body)
}

func TestEncodeMetadataPatch(t *testing.T) {
	t.Parallel()

	data, err := EncodeMetadataPatch(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"metadata":{"a":1}}`, string(data))

	data, err = EncodeMetadataPatch(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"metadata":{}}`, string(data))
}
