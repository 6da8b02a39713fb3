package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string // sqlite|postgres|memory
	DBDSN    string

	BlobBasePath string // exports written by rankctl

	AuthSecret  string
	AdminPhones []string
	OTPTTL      time.Duration

	RankRefreshInterval time.Duration // 0 disables the refresher

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

// CORSOrigins returns the allow-list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// FromEnv reads configuration from the environment, loading .env first when present.
func FromEnv() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env: %v", err)
	}
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:                mode,
		HTTPAddr:            envOr("HTTP_ADDR", ":8080"),
		DBDriver:            envOr("DB_DRIVER", "sqlite"),
		DBDSN:               envOr("DB_DSN", ""),
		BlobBasePath:        envOr("BLOB_BASE_PATH", "./data"),
		AuthSecret:          envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminPhones:         csvOr("ADMIN_PHONES", ""),
		OTPTTL:              envDuration("OTP_TTL", 5*time.Minute),
		RankRefreshInterval: envDuration("RANK_REFRESH_INTERVAL", 5*time.Minute),
		CORSOriginsOnline:   csvOr("CORS_ORIGINS_ONLINE", "https://mocktest.mindengage.ai"),
		CORSOriginsOffline:  csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Printf("config: %s=%q is not a duration, using %s", k, v, def)
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
