// Package config loads and validates the feed client configuration
// from YAML, with environment variable expansion for secrets.
package config
