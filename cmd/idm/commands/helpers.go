package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/idm-client/internal/constants"
	"github.com/fivetwenty-io/idm-client/pkg/idm"
	"github.com/fivetwenty-io/idm-client/pkg/idmclient"
)

// NotAvailable is shown in tables for unset optional fields.
const NotAvailable = "N/A"

const defaultJSONIndent = "  "

// outputFormat returns the validated --output value.
func outputFormat() (string, error) {
	format := strings.ToLower(strings.TrimSpace(viper.GetString("output")))

	switch format {
	case "", constants.FormatTable:
		return constants.FormatTable, nil
	case constants.FormatJSON, constants.FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %q", constants.ErrInvalidOutput, format)
	}
}

// render writes v as JSON or YAML, or calls table for table output.
func render(cmd *cobra.Command, v interface{}, table func(t *tablewriter.Table)) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", defaultJSONIndent)

		return encoder.Encode(v)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(out)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(v)
	default:
		t := tablewriter.NewWriter(out)
		table(t)

		err := t.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

// newClientConfig assembles an idm.Config from flags, environment and the
// config file.
func newClientConfig() (*idm.Config, error) {
	clientID := viper.GetString("client_id")
	secret := viper.GetString("secret")

	if clientID == "" || secret == "" {
		return nil, constants.ErrNoCredentials
	}

	config := &idm.Config{
		ClientID:       clientID,
		Secret:         secret,
		Endpoint:       viper.GetString("endpoint"),
		PageSize:       viper.GetInt("page_size"),
		RetryMax:       viper.GetInt("retry_max"),
		RateLimit:      viper.GetFloat64("rate_limit"),
		RequestTimeout: viper.GetDuration("request_timeout"),
	}

	level := viper.GetString("log_level")
	if viper.GetBool("verbose") {
		level = "debug"
		config.Debug = true
	}

	if level != "" {
		logger, err := idm.NewZapLoggerFromConfig(viper.GetString("log_env"), level)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}

		config.Logger = logger
	}

	return config, nil
}

// CreateClient builds a client from the current configuration.
func CreateClient(ctx context.Context) (idm.Client, error) {
	config, err := newClientConfig()
	if err != nil {
		return nil, err
	}

	return idmclient.New(ctx, config)
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, question string) bool {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (y/N): ", question)

	var response string

	_, _ = fmt.Fscanln(cmd.InOrStdin(), &response)

	return strings.EqualFold(strings.TrimSpace(response), "y")
}

// parseMetadataFlag parses a --metadata value. An empty value means unset.
func parseMetadataFlag(value string) (*idm.Metadata, error) {
	if value == "" {
		return nil, nil //nolint:nilnil // unset
	}

	m, err := idm.ParseMetadata([]byte(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrInvalidMetadata, err)
	}

	return &m, nil
}

// parseMetadataPatch parses a JSON object given on the command line.
func parseMetadataPatch(value string) (map[string]any, error) {
	m, err := idm.ParseMetadata([]byte(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrInvalidMetadata, err)
	}

	obj, ok := m.Object()
	if !ok {
		return nil, fmt.Errorf("%w, got %s", constants.ErrMetadataPatch, m.Kind())
	}

	return obj, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}

	return t.Format(constants.TimeFormat)
}

func formatOptional(s *string) string {
	if s == nil || *s == "" {
		return NotAvailable
	}

	return *s
}

func formatCount(n int) string {
	return strconv.Itoa(n)
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
