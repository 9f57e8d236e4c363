package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/idm-client/internal/constants"
	"github.com/fivetwenty-io/idm-client/internal/http"
	"github.com/fivetwenty-io/idm-client/pkg/idm"
)

const tenantResource = "tenant"

// TenantsClient implements idm.TenantsClient.
type TenantsClient struct {
	httpClient *http.Client
	pageSize   int
	newID      func() uuid.UUID
}

// NewTenantsClient creates a new tenants client.
func NewTenantsClient(httpClient *http.Client, pageSize int) *TenantsClient {
	return &TenantsClient{
		httpClient: httpClient,
		pageSize:   idm.NormalizePageSize(pageSize),
		newID:      uuid.New,
	}
}

// Create implements idm.TenantsClient.Create. A v4 ID is generated when the
// request leaves ID unset.
func (c *TenantsClient) Create(ctx context.Context, request *idm.TenantCreateRequest) (*idm.Tenant, error) {
	if request == nil {
		return nil, fmt.Errorf("creating tenant: %w", idm.InvalidInput("request is required"))
	}

	req := *request
	if req.ID == uuid.Nil {
		req.ID = c.newID()
	}

	body, err := idm.EncodeTenantCreate(&req)
	if err != nil {
		return nil, fmt.Errorf("creating tenant: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, &http.Request{
		Method:     "POST",
		Path:       constants.TenantsPath,
		Body:       json.RawMessage(body),
		Resource:   tenantResource,
		ResourceID: req.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating tenant: %w", err)
	}

	tenant, err := idm.DecodeTenant(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing tenant response: %w", err)
	}

	return tenant, nil
}

// Get implements idm.TenantsClient.Get. The service answers with an array
// that is empty when the tenant does not exist.
func (c *TenantsClient) Get(ctx context.Context, id string) (*idm.Tenant, error) {
	tenantID, err := parseID(tenantResource, id)
	if err != nil {
		return nil, fmt.Errorf("getting tenant: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, &http.Request{
		Method:     "GET",
		Path:       tenantPath(tenantID),
		Resource:   tenantResource,
		ResourceID: tenantID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("getting tenant: %w", err)
	}

	tenants, err := idm.DecodeTenants(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing tenant response: %w", err)
	}

	if len(tenants) == 0 {
		notFound := idm.NotFound(tenantResource, tenantID.String())
		notFound.Messages = []string{"Tenant not found"}

		return nil, fmt.Errorf("getting tenant: %w", notFound)
	}

	return &tenants[0], nil
}

// List implements idm.TenantsClient.List.
func (c *TenantsClient) List(ctx context.Context, opts *idm.TenantListOptions) ([]idm.Tenant, error) {
	fetch, pageSize, err := c.pages(opts)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}

	tenants, err := idm.FetchAll(ctx, fetch, pageSize)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}

	return tenants, nil
}

// Iterate implements idm.TenantsClient.Iterate. Invalid options surface as
// the iterator's error without any request being sent.
func (c *TenantsClient) Iterate(ctx context.Context, opts *idm.TenantListOptions) *idm.PageIterator[idm.Tenant] {
	fetch, pageSize, err := c.pages(opts)
	if err != nil {
		return idm.NewPageIterator(ctx, failingPages[idm.Tenant](fmt.Errorf("listing tenants: %w", err)), pageSize)
	}

	return idm.NewPageIterator(ctx, fetch, pageSize)
}

// Delete implements idm.TenantsClient.Delete.
func (c *TenantsClient) Delete(ctx context.Context, id string) error {
	tenantID, err := parseID(tenantResource, id)
	if err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}

	_, err = c.httpClient.Do(ctx, &http.Request{
		Method:     "DELETE",
		Path:       tenantPath(tenantID),
		Resource:   tenantResource,
		ResourceID: tenantID.String(),
	})
	if err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}

	return nil
}

// SetMetadata implements idm.TenantsClient.SetMetadata.
func (c *TenantsClient) SetMetadata(ctx context.Context, id string, patch map[string]any) (*idm.Tenant, error) {
	tenantID, err := parseID(tenantResource, id)
	if err != nil {
		return nil, fmt.Errorf("setting tenant metadata: %w", err)
	}

	body, err := idm.EncodeMetadataPatch(patch)
	if err != nil {
		return nil, fmt.Errorf("setting tenant metadata: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, &http.Request{
		Method:     "POST",
		Path:       tenantPath(tenantID) + "/metadata",
		Body:       json.RawMessage(body),
		Resource:   tenantResource,
		ResourceID: tenantID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("setting tenant metadata: %w", err)
	}

	tenant, err := idm.DecodeTenant(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing tenant response: %w", err)
	}

	return tenant, nil
}

// DeleteMetadata implements idm.TenantsClient.DeleteMetadata.
func (c *TenantsClient) DeleteMetadata(ctx context.Context, id string, key string) (*idm.Tenant, error) {
	tenantID, err := parseID(tenantResource, id)
	if err != nil {
		return nil, fmt.Errorf("deleting tenant metadata: %w", err)
	}

	if key == "" {
		return nil, fmt.Errorf("deleting tenant metadata: %w", idm.InvalidInput("%w", idm.ErrEmptyMetadataKey))
	}

	resp, err := c.httpClient.Do(ctx, &http.Request{
		Method:     "DELETE",
		Path:       tenantPath(tenantID) + "/metadata/" + url.PathEscape(key),
		Resource:   tenantResource,
		ResourceID: tenantID.String(),
	})
	if idm.IsNotFound(err) {
		// Some deployments answer 404 for a key that is not set. Removing an
		// absent key succeeds with the tenant as it is.
		tenant, getErr := c.Get(ctx, tenantID.String())
		if getErr == nil && !hasMetadataKey(tenant.Metadata, key) {
			return tenant, nil
		}
	}

	if err != nil {
		return nil, fmt.Errorf("deleting tenant metadata: %w", err)
	}

	tenant, err := idm.DecodeTenant(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing tenant response: %w", err)
	}

	return tenant, nil
}

// pages returns the page function for a listing. The cursor is the zero-based
// page index.
func (c *TenantsClient) pages(opts *idm.TenantListOptions) (idm.PageFunc[idm.Tenant], int, error) {
	pageSize := c.pageSize
	filter := ""

	if opts != nil {
		if opts.PageSize > 0 {
			pageSize = opts.PageSize
		}

		if opts.TenantID != "" {
			tenantID, err := parseID(tenantResource, opts.TenantID)
			if err != nil {
				return nil, pageSize, err
			}

			filter = tenantID.String()
		}
	}

	fetch := func(ctx context.Context, cursor string, size int) (*idm.Page[idm.Tenant], error) {
		page, err := parseCursor(cursor)
		if err != nil {
			return nil, err
		}

		query := pageQuery(page, size)
		if filter != "" {
			query.Set(constants.QueryTenantID, filter)
		}

		resp, err := c.httpClient.Get(ctx, constants.TenantsPagedPath, query)
		if err != nil {
			return nil, err
		}

		tenants, meta, err := idm.DecodeTenantPage(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("parsing tenants list response: %w", err)
		}

		return &idm.Page[idm.Tenant]{Items: tenants, Next: nextCursor(page, meta)}, nil
	}

	return fetch, pageSize, nil
}

// hasMetadataKey reports whether key may be present. Metadata that is
// neither null nor an object cannot be checked and counts as present.
func hasMetadataKey(m idm.Metadata, key string) bool {
	switch m.Kind() {
	case idm.MetadataNull:
		return false
	case idm.MetadataObject:
		obj, _ := m.Object()
		_, present := obj[key]

		return present
	default:
		return true
	}
}

func tenantPath(id uuid.UUID) string {
	return constants.TenantsPath + "/" + id.String()
}

// parseID validates a caller-supplied identifier.
func parseID(resource, id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, idm.InvalidInput("invalid %s ID %q: %w", resource, id, err)
	}

	return parsed, nil
}

func parseCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}

	page, err := strconv.Atoi(cursor)
	if err != nil || page < 0 {
		return 0, idm.InvalidInput("invalid page cursor %q", cursor)
	}

	return page, nil
}

func pageQuery(page, size int) url.Values {
	query := url.Values{}
	query.Set(constants.QueryLimit, strconv.Itoa(size))
	query.Set(constants.QueryOffset, strconv.Itoa(page))

	return query
}

func nextCursor(page int, meta idm.PageMetadata) string {
	if page+1 >= meta.TotalPages {
		return ""
	}

	return strconv.Itoa(page + 1)
}

func failingPages[T any](err error) idm.PageFunc[T] {
	return func(context.Context, string, int) (*idm.Page[T], error) {
		return nil, err
	}
}
