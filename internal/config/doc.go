// Package config loads the modem configuration from YAML. Validate reports
// every problem in one ConfigurationError, and Settings turns a valid
// configuration into pipeline settings.
package config
