// Package idm provides types, interfaces, and helpers for working with a
// multi-tenant identity management vendor API.
//
// # Overview
//
// The idm package defines the domain types (Tenant, User, RoleBinding, Role,
// Metadata) and the interfaces for the resource clients (TenantsClient,
// UsersClient). A concrete implementation is provided by the idmclient
// package, which wires configuration, transport and authentication. Most
// consumers should import idmclient to construct a client and then use the
// interfaces exposed here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/idm-client/pkg/idm"
//	  "github.com/fivetwenty-io/idm-client/pkg/idmclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := idmclient.NewWithCredentials(ctx, "client-id", "secret")
//	  if err != nil { log.Fatal(err) }
//
//	  tenant, err := cli.Tenants().Create(ctx, &idm.TenantCreateRequest{Name: "acme"})
//	  if err != nil { log.Fatal(err) }
//	  _ = tenant
//	}
//
// # Metadata
//
// Tenants and users carry an arbitrary JSON value as metadata. Metadata is a
// tagged union over null, bool, number, string, array and object; use Kind
// to branch and Object to read an object value. Numbers keep their textual
// form as json.Number.
//
// # Pagination
//
// List fetches every page eagerly. Iterate returns a PageIterator that
// fetches pages on demand:
//
//	it := cli.Users().Iterate(ctx, &idm.UserListOptions{PageSize: 100})
//	for user, err := range it.Seq() {
//	  if err != nil { break }
//	  _ = user
//	}
//
// # Errors
//
// Every failure is an *Error with a Kind. Use errors.Is with ErrNotFound,
// ErrAuth and the other sentinels, or the Is* helpers. Invalid identifiers
// fail with KindInvalidInput before any request is sent.
package idm
