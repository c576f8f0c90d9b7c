package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadEnv.
const (
	EnvRootURL   = "REGIONSPIDER_ROOT_URL"
	EnvUserAgent = "REGIONSPIDER_USER_AGENT"
	EnvCookie    = "REGIONSPIDER_COOKIE"
	EnvDatabase  = "REGIONSPIDER_DB"
	EnvProxy     = "REGIONSPIDER_PROXY"
)

// LoadEnv applies environment variables to cfg.
// envFiles are loaded first with godotenv (default ".env"); variables that
// are already set in the process environment win over the files, and a
// missing file is ignored.
func LoadEnv(cfg *Config, envFiles ...string) {
	_ = godotenv.Load(envFiles...) //nolint:errcheck // .env is optional

	cfg.RootURL = getEnv(EnvRootURL, cfg.RootURL)
	cfg.UserAgent = getEnv(EnvUserAgent, cfg.UserAgent)
	cfg.Cookie = getEnv(EnvCookie, cfg.Cookie)
	cfg.DatabaseDSN = getEnv(EnvDatabase, cfg.DatabaseDSN)
	cfg.Proxy = getEnv(EnvProxy, cfg.Proxy)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
