// Package idmclient provides the primary entry point for constructing an
// identity service client that implements the idm.Client interface.
//
// It wires the vendor credential exchange, the HTTP transport and the
// resource clients together. Most applications import idmclient to build a
// client and then use the returned idm.Client.
//
// Quick start
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
//
//	  cli, err := idmclient.NewWithCredentials(ctx, "client-id", "secret")
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with the full configuration:
//	  cli, err = idmclient.New(ctx, &idm.Config{
//	    ClientID: "client-id",
//	    Secret:   "secret",
//	    Endpoint: "api.eu.frontegg.com", // https:// is added
//	    PageSize: 100,
//	    RetryMax: 3,                     // retries GETs on 429/5xx
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  tenant, err := cli.Tenants().Create(ctx, &idm.TenantCreateRequest{Name: "acme"})
//	  if err != nil { log.Fatal(err) }
//
//	  _, err = cli.Tenants().SetMetadata(ctx, tenant.ID.String(), map[string]any{"tier": "gold"})
//	  if idm.IsNotFound(err) { log.Print("tenant vanished") }
//	}
//
// # Helpers
//
// NewWithCredentials and NewWithEndpoint wrap New with the corresponding
// configuration. NewTokenSource exposes the cached vendor token as an
// oauth2.TokenSource for callers that talk to the API directly.
package idmclient
