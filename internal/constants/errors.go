package constants

import "errors"

// Configuration errors.
var (
	ErrNoCredentials      = errors.New("no credentials configured, set IDM_CLIENT_ID and IDM_SECRET or run 'idm config set'")
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrInvalidConfigValue = errors.New("invalid configuration value")
	ErrSecretFromTerminal = errors.New("secret can only be prompted for on a terminal")
)

// Validation errors.
var (
	ErrInvalidMetadata = errors.New("metadata must be valid JSON")
	ErrMetadataPatch   = errors.New("metadata patch must be a JSON object")
	ErrInvalidOutput   = errors.New("output must be one of table, json, yaml")
)
