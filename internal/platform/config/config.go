package config

import (
	"os"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment.
type Config struct {
	Addr string
	// DatabaseURL points at the EPSG dataset; empty runs the embedded
	// in-memory dataset instead.
	DatabaseURL string
	// RedisURL enables the resolution cache; empty disables caching.
	RedisURL string
	// KafkaBrokers enable the resolution audit trail; empty disables it.
	KafkaBrokers []string
	AuditTopic   string
	// AdminJWTKey signs and verifies tokens for the admin endpoints.
	AdminJWTKey string
	CacheTTL    time.Duration
}

// FromEnv builds the configuration from environment variables so main stays
// lean. Defaults are suitable for development only.
func FromEnv() Config {
	cfg := Config{
		Addr:        getenv("GEOREF_ADDR", ":8080"),
		DatabaseURL: os.Getenv("GEOREF_DATABASE_URL"),
		RedisURL:    os.Getenv("GEOREF_REDIS_URL"),
		AuditTopic:  getenv("GEOREF_AUDIT_TOPIC", "georef.resolutions"),
		AdminJWTKey: getenv("GEOREF_ADMIN_JWT_KEY", "dev-secret-key-change-in-production"),
		CacheTTL:    5 * time.Minute,
	}
	if brokers := os.Getenv("GEOREF_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	if ttl := os.Getenv("GEOREF_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.CacheTTL = d
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
