package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// DATABASE_URL is optional: without it, extraction state lives in
	// process memory and does not survive restarts.
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	HTTPAddr    string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	// SSE streams stay open for whole batches, so no write deadline.
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	Provider       string `env:"TRANSCRIPTION_PROVIDER"`
	ReplicateToken string `env:"REPLICATE_API_TOKEN"`
	SiliconFlowKey string `env:"SILICONFLOW_API_KEY"`

	WhisperModel    string `env:"WHISPER_MODEL" envDefault:"base"`
	WhisperBackend  string `env:"WHISPER_BACKEND"` // override auto-detection
	ModelCacheDir   string `env:"MODEL_CACHE_DIR"`
	ProxyURL        string `env:"PROXY_URL"`
	CookiesBrowser  string `env:"COOKIES_FROM_BROWSER"`
	YTDLPPath       string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	DownloadWorkers int    `env:"DOWNLOAD_WORKERS" envDefault:"2"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
	RedisURL    string
	Provider    string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	// Parse environment variables into config struct
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.RedisURL != "" {
		cfg.RedisURL = overrides.RedisURL
	}
	if overrides.Provider != "" {
		cfg.Provider = overrides.Provider
	}

	return cfg, nil
}
