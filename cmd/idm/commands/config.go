package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/idm-client/internal/constants"
)

// Config is the persisted CLI configuration in ~/.idm/config.yml.
type Config struct {
	Endpoint       string  `json:"endpoint,omitempty"        yaml:"endpoint,omitempty"`
	ClientID       string  `json:"client_id,omitempty"       yaml:"client_id,omitempty"`
	Secret         string  `json:"secret,omitempty"          yaml:"secret,omitempty"`
	Output         string  `json:"output,omitempty"          yaml:"output,omitempty"`
	PageSize       int     `json:"page_size,omitempty"       yaml:"page_size,omitempty"`
	RetryMax       int     `json:"retry_max,omitempty"       yaml:"retry_max,omitempty"`
	RateLimit      float64 `json:"rate_limit,omitempty"      yaml:"rate_limit,omitempty"`
	RequestTimeout string  `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
	LogLevel       string  `json:"log_level,omitempty"       yaml:"log_level,omitempty"`
	LogEnv         string  `json:"log_env,omitempty"         yaml:"log_env,omitempty"`
}

// configSetters maps each settable key to a function validating and storing
// its value.
var configSetters = map[string]func(c *Config, value string) error{
	"endpoint":  func(c *Config, v string) error { c.Endpoint = v; return nil },
	"client_id": func(c *Config, v string) error { c.ClientID = v; return nil },
	"secret":    func(c *Config, v string) error { c.Secret = v; return nil },
	"output": func(c *Config, v string) error {
		switch v {
		case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
			c.Output = v

			return nil
		default:
			return constants.ErrInvalidOutput
		}
	},
	"page_size": func(c *Config, v string) error {
		n, err := parseNonNegativeInt(v)
		c.PageSize = n

		return err
	},
	"retry_max": func(c *Config, v string) error {
		n, err := parseNonNegativeInt(v)
		c.RetryMax = n

		return err
	},
	"rate_limit": func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %q is not a non-negative number", constants.ErrInvalidConfigValue, v)
		}

		c.RateLimit = f

		return nil
	},
	"request_timeout": func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return fmt.Errorf("%w: %q is not a duration", constants.ErrInvalidConfigValue, v)
		}

		c.RequestTimeout = v

		return nil
	},
	"log_level": func(c *Config, v string) error {
		switch v {
		case "debug", "info", "warn", "error":
			c.LogLevel = v

			return nil
		default:
			return fmt.Errorf("%w: log_level must be one of debug, info, warn, error", constants.ErrInvalidConfigValue)
		}
	},
	"log_env": func(c *Config, v string) error {
		switch v {
		case "dev", "prod":
			c.LogEnv = v

			return nil
		default:
			return fmt.Errorf("%w: log_env must be dev or prod", constants.ErrInvalidConfigValue)
		}
	},
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the settings stored in the CLI config file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration from flags, environment and config file. The secret is masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := effectiveConfig()
			if config.Secret != "" {
				config.Secret = constants.MaskedSecret
			}

			endpoint := config.Endpoint
			if endpoint == "" {
				endpoint = constants.DefaultEndpoint + " (default)"
			}

			return render(cmd, config, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("Config File", viper.ConfigFileUsed())
				_ = table.Append("Endpoint", endpoint)
				_ = table.Append("Client ID", orNotAvailable(config.ClientID))
				_ = table.Append("Secret", orNotAvailable(config.Secret))
				_ = table.Append("Output", config.Output)
				_ = table.Append("Page Size", strconv.Itoa(config.PageSize))
				_ = table.Append("Retry Max", strconv.Itoa(config.RetryMax))
				_ = table.Append("Rate Limit", strconv.FormatFloat(config.RateLimit, 'f', -1, 64))
				_ = table.Append("Request Timeout", orNotAvailable(config.RequestTimeout))
				_ = table.Append("Log Level", orNotAvailable(config.LogLevel))
				_ = table.Append("Log Env", orNotAvailable(config.LogEnv))
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY [VALUE]",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the config file.

Keys: ` + strings.Join(configKeys(), ", ") + `

When KEY is secret and VALUE is omitted, the secret is read from the
terminal without echo. A VALUE starting with "-" must follow "--".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			setter, ok := configSetters[key]
			if !ok {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
			}

			var value string

			switch {
			case len(args) == 2:
				value = args[1]
			case key == "secret":
				secret, err := readSecret(cmd)
				if err != nil {
					return err
				}

				value = secret
			default:
				return fmt.Errorf("%w: %s needs a value", constants.ErrInvalidConfigValue, key)
			}

			path, err := configFilePath()
			if err != nil {
				return err
			}

			config, err := readConfigFile(path)
			if err != nil {
				return err
			}

			err = setter(config, value)
			if err != nil {
				return err
			}

			err = writeConfigFile(path, config)
			if err != nil {
				return err
			}

			if key == "secret" {
				value = constants.MaskedSecret
			}

			printf(cmd.OutOrStdout(), "Set %s to %s in %s\n", key, value, path)

			return nil
		},
	}
}

// effectiveConfig resolves every key through viper.
func effectiveConfig() *Config {
	return &Config{
		Endpoint:       viper.GetString("endpoint"),
		ClientID:       viper.GetString("client_id"),
		Secret:         viper.GetString("secret"),
		Output:         viper.GetString("output"),
		PageSize:       viper.GetInt("page_size"),
		RetryMax:       viper.GetInt("retry_max"),
		RateLimit:      viper.GetFloat64("rate_limit"),
		RequestTimeout: viper.GetString("request_timeout"),
		LogLevel:       viper.GetString("log_level"),
		LogEnv:         viper.GetString("log_env"),
	}
}

// readConfigFile loads only what is stored in path, so that environment
// values are never written back. A missing file is an empty config.
func readConfigFile(path string) (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's config file
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}

		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return config, nil
}

func writeConfigFile(path string, config *Config) error {
	err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// readSecret prompts for a secret on the terminal.
func readSecret(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", constants.ErrSecretFromTerminal
	}

	printf(cmd.ErrOrStderr(), "Secret: ")

	secret, err := term.ReadPassword(fd)
	printf(cmd.ErrOrStderr(), "\n")

	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	return strings.TrimSpace(string(secret)), nil
}

func configKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for k := range configSetters {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func parseNonNegativeInt(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", constants.ErrInvalidConfigValue, v)
	}

	return n, nil
}

func orNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}

	return s
}
