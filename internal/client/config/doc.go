// Package config loads runtime configuration for the nestwatch client.
//
// Sources, later ones win:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory, if present.
//  3. An optional YAML or JSON file (-c/--config).
//  4. Environment variables prefixed NESTWATCH_ (NESTWATCH_SERVER_URL → server_url).
//  5. Command-line flags, applied by the CLI through Override.
//
// Example file:
//
//	server_url: https://nest.example.org
//	token: eyJhbGciOi...
//	data_dir: ~/.nestwatch
//	backend: indexed
//	request_timeout: 30s
package config
