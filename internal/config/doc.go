// Package config builds the immutable process configuration.
//
// Settings are read from, in increasing precedence, built-in defaults, an
// optional TOML file, an optional dotenv file and the process environment.
// Credentials are only read from the environment layers. ValidateFor checks
// the settings a given pipeline needs and fails with *ConfigError before any
// network call is made.
package config
