package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// GitLab
	GitLabBaseURL        string
	GitLabToken          string
	GitLabRequestsPerSec float64
	GitLabBurst          int
	SSRFGuardEnabled     bool

	// Fetch
	FetchTimeout        time.Duration
	EnrichMaxConcurrent int

	// Pass registry
	PassTTL time.Duration

	// Rate Limit
	RateLimitGeneral int

	// Pass intake
	MaxRowsPerPass int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogFormat string // json または text
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.GitLabBaseURL = os.Getenv("GITLAB_BASE_URL")
	if cfg.GitLabBaseURL == "" {
		missing = append(missing, "GITLAB_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.GitLabToken = os.Getenv("GITLAB_TOKEN")
	cfg.GitLabRequestsPerSec = getEnvFloat("GITLAB_REQUESTS_PER_SEC", 5)
	cfg.GitLabBurst = getEnvInt("GITLAB_BURST", 10)
	cfg.SSRFGuardEnabled = getEnvBool("SSRF_GUARD_ENABLED", true)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.EnrichMaxConcurrent = getEnvInt("ENRICH_MAX_CONCURRENT", 10)
	cfg.PassTTL = getEnvDuration("PASS_TTL", 15*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.MaxRowsPerPass = getEnvInt("MAX_ROWS_PER_PASS", 500)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.GitLabBaseURL)
	cfg.LogFormat = getEnvString("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
