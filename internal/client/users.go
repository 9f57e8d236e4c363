package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/idm-client/internal/constants"
	"github.com/fivetwenty-io/idm-client/internal/http"
	"github.com/fivetwenty-io/idm-client/pkg/idm"
)

const userResource = "user"

// UsersClient implements idm.UsersClient.
type UsersClient struct {
	httpClient *http.Client
	pageSize   int
}

// NewUsersClient creates a new users client.
func NewUsersClient(httpClient *http.Client, pageSize int) *UsersClient {
	return &UsersClient{
		httpClient: httpClient,
		pageSize:   idm.NormalizePageSize(pageSize),
	}
}

// Create implements idm.UsersClient.Create.
//
// The service reports only the roles granted in the creating tenant, so the
// returned user gets a single binding to that tenant carrying those roles.
func (c *UsersClient) Create(ctx context.Context, request *idm.UserCreateRequest) (*idm.User, error) {
	if request == nil {
		return nil, fmt.Errorf("creating user: %w", idm.InvalidInput("request is required"))
	}

	tenantID, err := parseID(tenantResource, request.TenantID)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	body, err := idm.EncodeUserCreate(request)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, &http.Request{
		Method:  "POST",
		Path:    constants.UsersPath,
		Body:    json.RawMessage(body),
		Headers: map[string]string{constants.TenantIDHeader: tenantID.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	user, roles, err := idm.DecodeCreatedUser(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing user response: %w", err)
	}

	if user.Tenants == nil {
		user.Tenants = []idm.RoleBinding{{TenantID: tenantID, Roles: roles}}
	}

	return user, nil
}

// Get implements idm.UsersClient.Get.
func (c *UsersClient) Get(ctx context.Context, id string) (*idm.User, error) {
	userID, err := parseID(userResource, id)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, &http.Request{
		Method:     "GET",
		Path:       constants.VendorOnlyUserPath + "/" + userID.String(),
		Resource:   userResource,
		ResourceID: userID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	user, err := idm.DecodeUser(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing user response: %w", err)
	}

	return user, nil
}

// List implements idm.UsersClient.List.
func (c *UsersClient) List(ctx context.Context, opts *idm.UserListOptions) ([]idm.User, error) {
	fetch, pageSize, err := c.pages(opts)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	users, err := idm.FetchAll(ctx, fetch, pageSize)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	return users, nil
}

// Iterate implements idm.UsersClient.Iterate.
func (c *UsersClient) Iterate(ctx context.Context, opts *idm.UserListOptions) *idm.PageIterator[idm.User] {
	fetch, pageSize, err := c.pages(opts)
	if err != nil {
		return idm.NewPageIterator(ctx, failingPages[idm.User](fmt.Errorf("listing users: %w", err)), pageSize)
	}

	return idm.NewPageIterator(ctx, fetch, pageSize)
}

// Delete implements idm.UsersClient.Delete.
func (c *UsersClient) Delete(ctx context.Context, id string) error {
	userID, err := parseID(userResource, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	_, err = c.httpClient.Do(ctx, &http.Request{
		Method:     "DELETE",
		Path:       constants.UsersPath + "/" + userID.String(),
		Resource:   userResource,
		ResourceID: userID.String(),
	})
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	return nil
}

// pages returns the page function for a listing. Tenant filtering is done by
// the service through the tenant header.
func (c *UsersClient) pages(opts *idm.UserListOptions) (idm.PageFunc[idm.User], int, error) {
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

	fetch := func(ctx context.Context, cursor string, size int) (*idm.Page[idm.User], error) {
		page, err := parseCursor(cursor)
		if err != nil {
			return nil, err
		}

		req := &http.Request{
			Method: "GET",
			Path:   constants.UsersPath,
			Query:  pageQuery(page, size),
		}

		if filter != "" {
			req.Headers = map[string]string{constants.TenantIDHeader: filter}
		}

		resp, err := c.httpClient.Do(ctx, req)
		if err != nil {
			return nil, err
		}

		users, meta, err := idm.DecodeUserPage(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("parsing users list response: %w", err)
		}

		return &idm.Page[idm.User]{Items: users, Next: nextCursor(page, meta)}, nil
	}

	return fetch, pageSize, nil
}
