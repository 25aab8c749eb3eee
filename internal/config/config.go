package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	SiteID   string

	DBDriver string
	DBDSN    string

	// Session store: "memory" for single-node, "redis" to survive restarts.
	SessionBackend string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SessionTTL     time.Duration

	AuthSecret string

	BlobBasePath string

	CORSOrigins []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:       addr,
		SiteID:         envOr("SITE_ID", "local"),
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		SessionBackend: envOr("SESSION_BACKEND", "memory"),
		RedisAddr:      envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        0,
		SessionTTL:     envDuration("SESSION_TTL", 24*time.Hour),
		AuthSecret:     envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		BlobBasePath:   envOr("BLOB_BASE_PATH", "./data"),
		CORSOrigins:    csvOr("CORS_ORIGINS", "http://localhost:3000"),
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
	if err != nil {
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
