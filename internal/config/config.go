package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read from the environment (and .env files).
type Config struct {
	APIBaseURL      string
	APIToken        string
	Port            string
	SessionSecret   string
	DBDSN           string
	PreviewDir      string
	SubmitPolicy    string
	Locale          string
	SavedDelay      time.Duration
	FormIdleTimeout time.Duration
	PreviewMaxAge   time.Duration
}

// envFiles are tried in order; later files override earlier ones. The list
// covers running from the repo root and from cmd/<binary>.
var envFiles = []string{".env", "../.env", "../../.env"}

// Load reads the .env files that exist and then the environment.
func Load() (*Config, error) {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Overload(name); err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		APIBaseURL:    env("API_BASE_URL", "http://localhost:4000/api"),
		APIToken:      env("API_TOKEN", ""),
		Port:          env("APP_PORT", "8080"),
		SessionSecret: env("SESSION_SECRET", "dev_fallback_secret"),
		DBDSN:         env("DB_DSN", ""),
		PreviewDir:    env("PREVIEW_DIR", "previews"),
		SubmitPolicy:  env("SUBMIT_POLICY", "optimistic"),
		Locale:        env("LOCALE", "es"),
	}

	var err error
	if cfg.SavedDelay, err = duration("SAVED_DELAY", 1200*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.FormIdleTimeout, err = duration("FORM_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PreviewMaxAge, err = duration("PREVIEW_MAX_AGE", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PreviewMaxAge <= cfg.FormIdleTimeout {
		return nil, fmt.Errorf("PREVIEW_MAX_AGE (%s) must be longer than FORM_IDLE_TIMEOUT (%s)", cfg.PreviewMaxAge, cfg.FormIdleTimeout)
	}
	return cfg, nil
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func duration(key string, def time.Duration) (time.Duration, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}
