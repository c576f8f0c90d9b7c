// Package config provides configuration structures and utilities for
// regionspider. Values are layered: built-in defaults, then the YAML
// configuration file, then environment variables (optionally from a .env
// file), then command-line flags.
package config
