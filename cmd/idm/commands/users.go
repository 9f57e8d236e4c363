package commands

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/idm-client/pkg/idm"
)

// NewUsersCommand creates the users command group.
func NewUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user", "u"},
		Short:   "Manage users",
		Long:    "List, create and delete users and inspect their tenant memberships",
	}

	cmd.AddCommand(newUsersListCommand())
	cmd.AddCommand(newUsersGetCommand())
	cmd.AddCommand(newUsersCreateCommand())
	cmd.AddCommand(newUsersDeleteCommand())

	return cmd
}

func newUsersListCommand() *cobra.Command {
	var (
		tenantID string
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Long:  "List all users, or the members of one tenant with --tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			users, err := client.Users().List(cmd.Context(), &idm.UserListOptions{
				TenantID: tenantID,
				PageSize: pageSize,
			})
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			return render(cmd, users, func(table *tablewriter.Table) {
				table.Header("ID", "Name", "Email", "Tenants", "Created")

				for _, u := range users {
					_ = table.Append(u.ID.String(), u.Name, u.Email, formatCount(len(u.Tenants)), formatTime(u.CreatedAt))
				}
			})
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "only list members of this tenant")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "users fetched per request (default from config, 50)")

	return cmd
}

func newUsersGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get USER_ID",
		Short: "Get user details",
		Long:  "Display a user and the roles they hold in each tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			user, err := client.Users().Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get user: %w", err)
			}

			return renderUser(cmd, user)
		},
	}
}

func newUsersCreateCommand() *cobra.Command {
	var (
		tenantID        string
		name            string
		email           string
		metadata        string
		skipInviteEmail bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Long:  "Create a user as a member of the tenant given with --tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := parseMetadataFlag(metadata)
			if err != nil {
				return err
			}

			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			user, err := client.Users().Create(cmd.Context(), &idm.UserCreateRequest{
				TenantID:        tenantID,
				Name:            name,
				Email:           email,
				Metadata:        meta,
				SkipInviteEmail: skipInviteEmail,
			})
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}

			return renderUser(cmd, user)
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant the user joins")
	cmd.Flags().StringVar(&name, "name", "", "user name")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&metadata, "metadata", "", "metadata as JSON")
	cmd.Flags().BoolVar(&skipInviteEmail, "skip-invite-email", false, "do not send an invitation email")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newUsersDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete USER_ID",
		Short: "Delete a user",
		Long:  "Delete a user from every tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]

			if !force && !confirm(cmd, fmt.Sprintf("Really delete user '%s'?", userID)) {
				printf(cmd.OutOrStdout(), "Cancelled\n")

				return nil
			}

			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			err = client.Users().Delete(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to delete user: %w", err)
			}

			printf(cmd.OutOrStdout(), "Successfully deleted user '%s'\n", userID)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "delete without confirmation")

	return cmd
}

func renderUser(cmd *cobra.Command, user *idm.User) error {
	return render(cmd, user, func(table *tablewriter.Table) {
		table.Header("Property", "Value")

		_ = table.Append("ID", user.ID.String())
		_ = table.Append("Name", user.Name)
		_ = table.Append("Email", user.Email)
		_ = table.Append("Metadata", user.Metadata.String())
		_ = table.Append("Created", formatTime(user.CreatedAt))

		for _, b := range user.Tenants {
			roles := "none"
			if len(b.Roles) > 0 {
				roles = strings.Join(b.RoleKeys(), ", ")
			}

			_ = table.Append("Tenant "+b.TenantID.String(), roles)
		}
	})
}
