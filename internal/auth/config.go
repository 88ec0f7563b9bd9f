package auth

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config collects the authentication core's runtime settings.
type Config struct {
	// Secret signs both magic-link tokens and session cookies. Required:
	// startup fails loudly when it is absent or weak, the service never runs
	// on a default secret.
	Secret []byte
	// BaseURL is the canonical site origin used to build verification links.
	BaseURL string

	LinkTTL    time.Duration
	SessionTTL time.Duration

	RateWindow time.Duration
	RateLimit  int

	CookieName   string
	CookieSecure bool

	// RedisAddr, when set, switches the rate limiter to a shared Redis
	// counter so limits hold across server instances.
	RedisAddr string
}

// ConfigFromEnv builds the auth config from environment variables so main
// stays lean. It is the single place startup validation happens.
func ConfigFromEnv() (Config, error) {
	secret := os.Getenv("AUTH_SECRET")
	if secret == "" {
		return Config{}, errors.New("AUTH_SECRET is required")
	}
	if len(secret) < 32 {
		return Config{}, errors.New("AUTH_SECRET must be at least 32 bytes")
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8420"
	}

	cfg := Config{
		Secret:       []byte(secret),
		BaseURL:      baseURL,
		LinkTTL:      durationFromEnv("MAGIC_LINK_TTL", 15*time.Minute),
		SessionTTL:   durationFromEnv("SESSION_TTL", 12*time.Hour),
		RateWindow:   durationFromEnv("RATE_LIMIT_WINDOW", 60*time.Second),
		RateLimit:    intFromEnv("RATE_LIMIT_MAX", 10),
		CookieName:   os.Getenv("SESSION_COOKIE"),
		CookieSecure: os.Getenv("COOKIE_SECURE") != "0",
		RedisAddr:    os.Getenv("REDIS_ADDR"),
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "corpsite_session"
	}
	if cfg.LinkTTL <= 0 || cfg.SessionTTL <= 0 || cfg.RateWindow <= 0 || cfg.RateLimit <= 0 {
		return Config{}, fmt.Errorf("invalid auth durations/limits")
	}
	return cfg, nil
}

func durationFromEnv(name string, def time.Duration) time.Duration {
	env := os.Getenv(name)
	if env == "" {
		return def
	}
	d, err := time.ParseDuration(env)
	if err != nil {
		return def
	}
	return d
}

func intFromEnv(name string, def int) int {
	env := os.Getenv(name)
	if env == "" {
		return def
	}
	n, err := strconv.Atoi(env)
	if err != nil {
		return def
	}
	return n
}
