package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// PageFetcher fetches a page and returns it as a parsed document.
// Fetcher is the production implementation; tests may substitute their own.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// defaultMaxBodySize is used when no body limit is configured.
const defaultMaxBodySize = 5 * 1024 * 1024 // 5MB

// fallbackEncoding is the name charset.DetermineEncoding reports when a
// page declares nothing and its prefix is not recognisably UTF-8.
const fallbackEncoding = "windows-1252"

// acceptHeader is sent with every request.
const acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Fetcher retrieves listing pages over HTTP.
// It never retries: a failed request is returned to the caller as is.
type Fetcher struct {
	// client is the resty client carrying the common request headers.
	client *resty.Client

	// encodingName forces the page encoding when set.
	encodingName string

	// encoding is resolved from encodingName by NewFetcher.
	// Nil means the encoding is detected per response.
	encoding encoding.Encoding

	// maxBodySize is the largest response body accepted.
	maxBodySize int64

	// timeout is applied per request when positive.
	timeout time.Duration

	// userAgent is the User-Agent header.
	userAgent string

	// cookie is sent as the Cookie header when set.
	cookie string

	// headers are extra request headers.
	headers map[string]string

	// logger receives one debug record per request.
	logger *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithCookie sets the Cookie header.
func WithCookie(cookie string) FetcherOption {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithHeaders adds request headers.
func WithHeaders(headers map[string]string) FetcherOption {
	return func(f *Fetcher) {
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// WithEncoding forces the page encoding, e.g. "gbk".
// The name must be a WHATWG encoding label.
func WithEncoding(name string) FetcherOption {
	return func(f *Fetcher) {
		f.encodingName = name
	}
}

// WithMaxBodySize sets the largest response body accepted. Larger pages
// fail with ErrBodyTooLarge. Zero or negative keeps the default.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithTimeout sets a per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher on top of httpClient.
// A nil httpClient uses a default client.
func NewFetcher(httpClient *http.Client, opts ...FetcherOption) (*Fetcher, error) {
	f := &Fetcher{
		maxBodySize: defaultMaxBodySize,
		headers:     make(map[string]string),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.encodingName != "" {
		enc, err := htmlindex.Get(f.encodingName)
		if err != nil {
			return nil, fmt.Errorf("unknown page encoding %q: %w", f.encodingName, err)
		}
		f.encoding = enc
	}

	var client *resty.Client
	if httpClient != nil {
		client = resty.NewWithClient(httpClient)
	} else {
		client = resty.New()
	}
	client.SetRetryCount(0).
		SetHeader("Accept", acceptHeader)
	if f.timeout > 0 {
		client.SetTimeout(f.timeout)
	}
	if f.userAgent != "" {
		client.SetHeader("User-Agent", f.userAgent)
	}
	for k, v := range f.headers {
		client.SetHeader(k, v)
	}
	if f.cookie != "" {
		client.SetHeader("Cookie", f.cookie)
	}
	f.client = client

	return f, nil
}

// Fetch downloads pageURL and parses it.
// Non-2xx responses are returned as *StatusError.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	start := time.Now()

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	body := resp.RawBody()
	defer body.Close()

	f.logger.Debug("fetched page",
		"url", pageURL,
		"status", resp.StatusCode(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, &StatusError{URL: pageURL, StatusCode: resp.StatusCode()}
	}

	raw, err := io.ReadAll(io.LimitReader(body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}
	if int64(len(raw)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, pageURL, f.maxBodySize)
	}

	decoded, err := f.decode(raw, resp.Header().Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// decode converts raw to UTF-8. Without a forced encoding, a BOM or the
// Content-Type charset decides, then a <meta> charset. An undeclared page is
// read as UTF-8 when the whole body is valid UTF-8, since detection only
// sniffs the first 1024 bytes and falls back to windows-1252. Older editions
// of the directory were published as GB2312.
func (f *Fetcher) decode(raw []byte, contentType string) ([]byte, error) {
	enc := f.encoding
	if enc == nil {
		var name string
		var certain bool
		enc, name, certain = charset.DetermineEncoding(raw, contentType)
		if !certain && name == fallbackEncoding && utf8.Valid(raw) {
			return raw, nil
		}
	}
	return enc.NewDecoder().Bytes(raw)
}
