package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds CheckProxy. It is a connectivity check only.
const checkProxyTimeout = 3 * time.Second

// maxRedirects is the number of redirects followed before the last
// response is returned as is.
const maxRedirects = 10

// SOCKS5 greeting bytes.
const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// options holds the settings collected from Option values.
type options struct {
	proxyURL *url.URL
}

// Option configures NewHTTPClient.
type Option func(*options) error

// WithProxy routes every request through rawURL.
// An empty rawURL keeps the proxy from the environment (HTTPS_PROXY etc).
func WithProxy(rawURL string) Option {
	return func(o *options) error {
		if rawURL == "" {
			o.proxyURL = nil
			return nil
		}
		u, err := ParseProxy(rawURL)
		if err != nil {
			return err
		}
		o.proxyURL = u
		return nil
	}
}

// ParseProxy validates a proxy URL.
func ParseProxy(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, rawURL)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, rawURL)
	}
	return u, nil
}

// isSOCKS reports whether u names a SOCKS5 proxy.
func isSOCKS(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return scheme == "socks5" || scheme == "socks5h"
}

// NewHTTPClient creates the HTTP client used for crawling.
//
// The client keeps cookies across requests, follows at most ten redirects,
// and pools a few connections per host. Request timeouts are left to the
// caller.
func NewHTTPClient(opts ...Option) (*http.Client, error) {
	var o options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	if o.proxyURL != nil {
		if isSOCKS(o.proxyURL) {
			dialer, err := proxy.FromURL(o.proxyURL, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
			}
			transport.Proxy = nil
			transport.DialContext = contextDialer(dialer)
		} else {
			transport.Proxy = http.ProxyURL(o.proxyURL)
		}
	}

	// cookiejar.New only fails with invalid options
	jar, _ := cookiejar.New(nil) //nolint:errcheck

	return &http.Client{
		Transport: transport,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// contextDialer adapts a proxy.Dialer to http.Transport.DialContext.
// Dialers without context support are cancelled by abandoning the dial.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)

		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			go func() {
				if result := <-resultCh; result.conn != nil {
					_ = result.conn.Close()
				}
			}()
			return nil, ctx.Err()
		}
	}
}

// CheckProxy verifies that the proxy at rawURL accepts connections.
// For SOCKS5 proxies it also performs the greeting and requires the
// proxy to accept clients without authentication unless the URL carries
// credentials.
func CheckProxy(ctx context.Context, rawURL string) error {
	u, err := ParseProxy(rawURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrProxyTimeout, u.Host)
		}
		return fmt.Errorf("%w: %s: %v", ErrProxyCannotConnect, u.Host, err)
	}
	defer conn.Close()

	if !isSOCKS(u) || u.User != nil {
		return nil
	}

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %v", ErrProxyCannotConnect, err)
	}

	// version, one method, no authentication
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return fmt.Errorf("%w: %v", ErrProxyCannotConnect, err)
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %s", ErrProxyTimeout, u.Host)
		}
		return fmt.Errorf("%w: %s", ErrProxyWrongType, u.Host)
	}
	if resp[0] != socks5Version || resp[1] != socks5AuthNone {
		return fmt.Errorf("%w: %s", ErrProxyWrongType, u.Host)
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, os.ErrDeadlineExceeded)
}
