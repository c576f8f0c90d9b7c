package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so that callers can use
// errors.Is() while still getting a readable message.
var (
	// ErrInvalidLevel is returned when the crawl level is outside 1..5.
	ErrInvalidLevel = errors.New("invalid level: must be between 1 and 5")

	// ErrInvalidRootURL is returned when the directory index URL is not an
	// absolute http(s) URL.
	ErrInvalidRootURL = errors.New("invalid root URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the request timeout is negative.
	// Zero means no timeout.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidProxy is returned when the proxy is not an http, https or
	// socks5 URL with host and port.
	ErrInvalidProxy = errors.New("invalid proxy URL")

	// ErrUnknownEncoding is returned when the configured page encoding is not
	// a WHATWG encoding label.
	ErrUnknownEncoding = errors.New("unknown page encoding")

	// ErrUnknownSelectorLevel is returned when the configuration file
	// overrides the selector of a level that does not exist.
	ErrUnknownSelectorLevel = errors.New("selector override for unknown level")
)
