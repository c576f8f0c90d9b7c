package transport

import "errors"

// Proxy errors.
var (
	// ErrInvalidProxy is returned when the proxy is not an http, https,
	// socks5 or socks5h URL with a host and port.
	ErrInvalidProxy = errors.New("invalid proxy: expected http://, https://, socks5:// or socks5h:// URL with host:port")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy
	// can be made. The proxy is probably not running.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to proxy")

	// ErrProxyWrongType is returned when a socks5 proxy does not complete
	// the SOCKS5 greeting without authentication.
	ErrProxyWrongType = errors.New("proxy does not speak SOCKS5 without authentication")
)
