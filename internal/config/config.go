package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/regionspider/internal/model"
	"github.com/nao1215/regionspider/internal/transport"
	"golang.org/x/text/encoding/htmlindex"
)

// Default configuration values.
const (
	// DefaultRootURL is the directory index listing every published edition
	// of the statistical division code standard, newest first.
	DefaultRootURL = "https://www.stats.gov.cn/sj/tjbz/qhdm/"

	// DefaultLevel crawls provinces, cities and counties.
	DefaultLevel = 3

	// MinLevel and MaxLevel bound the crawl level.
	MinLevel = 1
	MaxLevel = model.LevelCount

	// DefaultTimeout of zero leaves requests without a client-side timeout,
	// so the transport defaults apply.
	DefaultTimeout time.Duration = 0

	// DefaultUserAgent is a desktop browser User-Agent. The source site
	// rejects some non-browser agents.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

	// DefaultMaxBodySize limits how much of a listing page is read.
	// The largest village listings are well under 1MB.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// AppName is the application name used for XDG directory paths.
	AppName = "regionspider"

	// DatabaseFileName is the SQLite file created in the data directory.
	DatabaseFileName = "regionspider.db"
)

// Config holds all configuration options for a crawl.
// It is populated from defaults, the configuration file, the environment
// and CLI flags, and then passed down explicitly.
type Config struct {
	// RootURL is the directory index page the latest standard is located on.
	RootURL string

	// Level is the number of administrative levels to crawl (1..5).
	// 1 crawls provinces only, 5 crawls down to villages.
	Level int

	// CSVFile is the CSV output path.
	// When empty, DefaultCSVFile(date) is used once the standard is known.
	CSVFile string

	// XLSXFile is an optional Excel workbook output path.
	XLSXFile string

	// MarkdownFile is an optional Markdown summary output path.
	MarkdownFile string

	// Timeout is the per-request timeout. Zero disables it.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// Cookie is sent as the Cookie header when set.
	Cookie string

	// Headers are additional request headers.
	Headers map[string]string

	// Encoding forces the page encoding (e.g. "gbk"). When empty the
	// encoding is detected from the response.
	Encoding string

	// MaxBodySize is the maximum number of bytes read per page.
	// Zero uses DefaultMaxBodySize.
	MaxBodySize int64

	// Proxy routes requests through an http(s):// or socks5:// proxy.
	// When empty the proxy environment variables apply.
	Proxy string

	// Selectors overrides the per-level region selector, keyed by level.
	Selectors map[model.Level]string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the configuration file given with --config.
	ConfigFilePath string

	// SaveToDB records the crawl in the history database.
	SaveToDB bool

	// DatabaseDSN is the history database. A postgres:// or postgresql://
	// URL selects PostgreSQL; anything else is a SQLite file path.
	DatabaseDSN string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		RootURL:     DefaultRootURL,
		Level:       DefaultLevel,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		Headers:     make(map[string]string),
		Selectors:   make(map[model.Level]string),
		SaveToDB:    true,
		DatabaseDSN: DefaultDatabaseDSN(),
	}
}

// DefaultCSVFile returns the CSV file name used when none is given.
func DefaultCSVFile(standardDate string) string {
	return fmt.Sprintf("region_data_%s.csv", standardDate)
}

// XDGDataDir returns the XDG data directory for regionspider.
// On Linux: ~/.local/share/regionspider
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for regionspider.
// On Linux: ~/.config/regionspider
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultDatabaseDSN returns the SQLite database path in the XDG data directory.
func DefaultDatabaseDSN() string {
	return filepath.Join(XDGDataDir(), DatabaseFileName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Level < MinLevel || c.Level > MaxLevel {
		return fmt.Errorf("%w (got %d)", ErrInvalidLevel, c.Level)
	}

	u, err := url.Parse(c.RootURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidRootURL, c.RootURL)
	}

	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.Proxy != "" {
		if _, err := transport.ParseProxy(c.Proxy); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidProxy, c.Proxy)
		}
	}

	if c.Encoding != "" {
		if _, err := htmlindex.Get(c.Encoding); err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownEncoding, c.Encoding)
		}
	}

	for level := range c.Selectors {
		if !level.Valid() {
			return fmt.Errorf("%w: %d", ErrUnknownSelectorLevel, int(level))
		}
	}

	return nil
}
