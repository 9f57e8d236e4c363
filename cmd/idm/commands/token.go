package commands

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/idm-client/pkg/idmclient"
)

type tokenInfo struct {
	AccessToken string    `json:"access_token" yaml:"access_token"`
	TokenType   string    `json:"token_type"   yaml:"token_type"`
	Expiry      time.Time `json:"expiry"       yaml:"expiry"`
}

// NewTokenCommand creates the token command.
func NewTokenCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a vendor access token",
		Long: `Exchange the configured credentials for a bearer token and print it.

Use --raw to print only the token, e.g.
  curl -H "Authorization: Bearer $(idm token --raw)" ...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := newClientConfig()
			if err != nil {
				return err
			}

			source, err := idmclient.NewTokenSource(cmd.Context(), config)
			if err != nil {
				return err
			}

			token, err := source.Token()
			if err != nil {
				return fmt.Errorf("failed to get token: %w", err)
			}

			if raw {
				printf(cmd.OutOrStdout(), "%s\n", token.AccessToken)

				return nil
			}

			info := tokenInfo{
				AccessToken: token.AccessToken,
				TokenType:   token.Type(),
				Expiry:      token.Expiry,
			}

			return render(cmd, info, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("Access Token", info.AccessToken)
				_ = table.Append("Type", info.TokenType)
				_ = table.Append("Expires", formatTime(info.Expiry))
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print only the access token")

	return cmd
}
