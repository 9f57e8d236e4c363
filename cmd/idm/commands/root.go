package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/idm-client/internal/constants"
)

// NewRootCommand creates the idm command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "idm",
		Short: "Identity service CLI",
		Long: `A command-line interface for the multi-tenant identity service.

Credentials are read from IDM_CLIENT_ID and IDM_SECRET, or from
~/.idm/config.yml (see 'idm config set').`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			err := initConfig()
			if err != nil {
				return err
			}

			_, err = outputFormat()

			return err
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.idm/config.yml)")
	rootCmd.PersistentFlags().StringP("endpoint", "e", "", "identity service endpoint URL")
	rootCmd.PersistentFlags().String("client-id", "", "vendor client ID")
	rootCmd.PersistentFlags().StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log requests and responses")

	// Bind flags to viper
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
	_ = viper.BindPFlag("client_id", rootCmd.PersistentFlags().Lookup("client-id"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewTokenCommand())
	rootCmd.AddCommand(NewTenantsCommand())
	rootCmd.AddCommand(NewUsersCommand())

	return rootCmd
}

func initConfig() error {
	cfgFile := viper.GetString("config")
	if cfgFile == "" {
		path, err := defaultConfigPath()
		if err != nil {
			return err
		}

		cfgFile = path
	}

	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yml")

	// Read in environment variables that match
	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}

	return nil
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName, constants.ConfigFileName), nil
}

// configFilePath is the file 'config set' writes to.
func configFilePath() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}

	return defaultConfigPath()
}
