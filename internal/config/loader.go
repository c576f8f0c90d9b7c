package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/regionspider/internal/model"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".regionspider"

// XDGConfigFileName is the configuration file name inside XDGConfigDir.
const XDGConfigFileName = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .regionspider configuration file.
// Zero values mean "not set" and leave the current configuration unchanged.
type File struct {
	// RootURL overrides the directory index URL.
	RootURL string `yaml:"root_url,omitempty"`

	// Level overrides the default crawl level.
	Level int `yaml:"level,omitempty"`

	// Timeout is the per-request timeout, e.g. "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Cookie is sent with every request.
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Encoding forces the page encoding, e.g. "gbk".
	Encoding string `yaml:"encoding,omitempty"`

	// Proxy is an http(s):// or socks5:// proxy URL.
	Proxy string `yaml:"proxy,omitempty"`

	// MaxBodySize is the maximum page size in bytes.
	MaxBodySize int64 `yaml:"max_body_size,omitempty"`

	// Selectors maps level names (province, city, ...) to CSS selectors.
	Selectors map[string]string `yaml:"selectors,omitempty"`

	// Database is the history database DSN or SQLite path.
	Database string `yaml:"database,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// Apply copies every value set in the file onto cfg.
func (cf *File) Apply(cfg *Config) error {
	if cf.RootURL != "" {
		cfg.RootURL = cf.RootURL
	}
	if cf.Level != 0 {
		cfg.Level = cf.Level
	}
	if cf.Timeout != 0 {
		cfg.Timeout = cf.Timeout
	}
	if cf.UserAgent != "" {
		cfg.UserAgent = cf.UserAgent
	}
	if cf.Cookie != "" {
		cfg.Cookie = cf.Cookie
	}
	if len(cf.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		for k, v := range cf.Headers {
			cfg.Headers[k] = v
		}
	}
	if cf.Encoding != "" {
		cfg.Encoding = cf.Encoding
	}
	if cf.Proxy != "" {
		cfg.Proxy = cf.Proxy
	}
	if cf.MaxBodySize != 0 {
		cfg.MaxBodySize = cf.MaxBodySize
	}
	if len(cf.Selectors) > 0 {
		if cfg.Selectors == nil {
			cfg.Selectors = make(map[model.Level]string)
		}
		for name, selector := range cf.Selectors {
			level, err := model.ParseLevel(name)
			if err != nil {
				return fmt.Errorf("%w: %q", ErrUnknownSelectorLevel, name)
			}
			cfg.Selectors[level] = selector
		}
	}
	if cf.Database != "" {
		cfg.DatabaseDSN = cf.Database
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. .regionspider in the current directory
// 3. .regionspider in the user's home directory
// 4. config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), XDGConfigFileName))

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

// Load layers the configuration file (if any) over cfg.
// An explicitly given path that does not exist is an error; a missing file
// found by search is not.
func Load(cfg *Config) error {
	explicit := cfg.ConfigFilePath != ""
	path := FindConfigFile(cfg.ConfigFilePath)

	if path == "" {
		if explicit {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	cf, err := LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return cf.Apply(cfg)
}
