package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/idm-client/pkg/idm"
)

// NewTenantsCommand creates the tenants command group.
func NewTenantsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tenants",
		Aliases: []string{"tenant", "t"},
		Short:   "Manage tenants",
		Long:    "List, create, delete tenants and edit their metadata",
	}

	cmd.AddCommand(newTenantsListCommand())
	cmd.AddCommand(newTenantsGetCommand())
	cmd.AddCommand(newTenantsCreateCommand())
	cmd.AddCommand(newTenantsDeleteCommand())
	cmd.AddCommand(newTenantsSetMetadataCommand())
	cmd.AddCommand(newTenantsDeleteMetadataCommand())

	return cmd
}

func newTenantsListCommand() *cobra.Command {
	var (
		tenantID string
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		Long:  "List all tenants, fetching every page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			tenants, err := client.Tenants().List(cmd.Context(), &idm.TenantListOptions{
				TenantID: tenantID,
				PageSize: pageSize,
			})
			if err != nil {
				return fmt.Errorf("failed to list tenants: %w", err)
			}

			return render(cmd, tenants, func(table *tablewriter.Table) {
				table.Header("ID", "Name", "Created", "Metadata")

				for _, t := range tenants {
					_ = table.Append(t.ID.String(), t.Name, formatTime(t.CreatedAt), t.Metadata.String())
				}
			})
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "only list the tenant with this ID")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "tenants fetched per request (default from config, 50)")

	return cmd
}

func newTenantsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get TENANT_ID",
		Short: "Get tenant details",
		Long:  "Display detailed information about a specific tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			tenant, err := client.Tenants().Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get tenant: %w", err)
			}

			return renderTenant(cmd, tenant)
		},
	}
}

func newTenantsCreateCommand() *cobra.Command {
	var (
		id           string
		name         string
		metadata     string
		creatorName  string
		creatorEmail string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant",
		Long:  "Create a tenant. An ID is generated unless --id is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &idm.TenantCreateRequest{Name: name}

			if id != "" {
				parsed, err := uuid.Parse(id)
				if err != nil {
					return fmt.Errorf("invalid tenant ID %q: %w", id, err)
				}

				req.ID = parsed
			}

			meta, err := parseMetadataFlag(metadata)
			if err != nil {
				return err
			}

			req.Metadata = meta

			if creatorName != "" {
				req.CreatorName = &creatorName
			}

			if creatorEmail != "" {
				req.CreatorEmail = &creatorEmail
			}

			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			tenant, err := client.Tenants().Create(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to create tenant: %w", err)
			}

			return renderTenant(cmd, tenant)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "tenant ID (UUID)")
	cmd.Flags().StringVar(&name, "name", "", "tenant name")
	cmd.Flags().StringVar(&metadata, "metadata", "", "metadata as JSON")
	cmd.Flags().StringVar(&creatorName, "creator-name", "", "name of the creator")
	cmd.Flags().StringVar(&creatorEmail, "creator-email", "", "email of the creator")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newTenantsDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete TENANT_ID",
		Short: "Delete a tenant",
		Long:  "Delete a tenant. Users lose their binding to it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID := args[0]

			if !force && !confirm(cmd, fmt.Sprintf("Really delete tenant '%s'?", tenantID)) {
				printf(cmd.OutOrStdout(), "Cancelled\n")

				return nil
			}

			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			err = client.Tenants().Delete(cmd.Context(), tenantID)
			if err != nil {
				return fmt.Errorf("failed to delete tenant: %w", err)
			}

			printf(cmd.OutOrStdout(), "Successfully deleted tenant '%s'\n", tenantID)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "delete without confirmation")

	return cmd
}

func newTenantsSetMetadataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-metadata TENANT_ID JSON_OBJECT",
		Short: "Merge keys into tenant metadata",
		Long: `Merge the keys of a JSON object into the tenant's metadata. Keys not
named in the object are left untouched.

Example:
  idm tenants set-metadata 3f0c... '{"plan":"pro","seats":10}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseMetadataPatch(args[1])
			if err != nil {
				return err
			}

			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			tenant, err := client.Tenants().SetMetadata(cmd.Context(), args[0], patch)
			if err != nil {
				return fmt.Errorf("failed to set tenant metadata: %w", err)
			}

			return renderTenant(cmd, tenant)
		},
	}
}

func newTenantsDeleteMetadataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-metadata TENANT_ID KEY",
		Short: "Remove a key from tenant metadata",
		Long:  "Remove a top-level key from the tenant's metadata. Removing a missing key succeeds.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			tenant, err := client.Tenants().DeleteMetadata(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to delete tenant metadata: %w", err)
			}

			return renderTenant(cmd, tenant)
		},
	}
}

func renderTenant(cmd *cobra.Command, tenant *idm.Tenant) error {
	return render(cmd, tenant, func(table *tablewriter.Table) {
		table.Header("Property", "Value")

		_ = table.Append("ID", tenant.ID.String())
		_ = table.Append("Name", tenant.Name)
		_ = table.Append("Metadata", tenant.Metadata.String())
		_ = table.Append("Creator Name", formatOptional(tenant.CreatorName))
		_ = table.Append("Creator Email", formatOptional(tenant.CreatorEmail))
		_ = table.Append("Created", formatTime(tenant.CreatedAt))
		_ = table.Append("Updated", formatTime(tenant.UpdatedAt))

		if tenant.DeletedAt != nil {
			_ = table.Append("Deleted", formatTime(*tenant.DeletedAt))
		}
	})
}
