// config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything main needs to wire the service.
type Config struct {
	Env            string
	Port           string
	DatabaseURL    string
	RedisURL       string
	GatewayToken   string
	AllowedOrigins []string

	ClassifierURL   string
	ClassifierModel string
	ClassifierToken string
	ClassifierRPS   float64

	CatalogFeedURL      string
	CatalogFeedToken    string
	CatalogSyncInterval time.Duration
	MaintenanceInterval time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2Bucket          string
	CDNBaseURL        string
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	return &Config{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8000"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		GatewayToken:   getEnv("GATEWAY_TOKEN", ""),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5500")),

		ClassifierURL:   getEnv("CLASSIFIER_URL", "https://api-inference.huggingface.co"),
		ClassifierModel: getEnv("CLASSIFIER_MODEL", "yangy50/garbage-classification"),
		ClassifierToken: getEnv("HUGGING_FACE_TOKEN", ""),
		ClassifierRPS:   getFloat("CLASSIFIER_RPS", 2),

		CatalogFeedURL:      getEnv("CATALOG_FEED_URL", ""),
		CatalogFeedToken:    getEnv("CATALOG_FEED_TOKEN", ""),
		CatalogSyncInterval: getDuration("CATALOG_SYNC_INTERVAL", 5*time.Minute),
		MaintenanceInterval: getDuration("MAINTENANCE_INTERVAL", time.Hour),

		R2AccountID:       getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
		R2Bucket:          getEnv("R2_BUCKET_NAME", ""),
		CDNBaseURL:        getEnv("CDN_BASE_URL", ""),
	}
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// ArchiveEnabled reports whether the R2 scan archive has credentials.
func (c *Config) ArchiveEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2Bucket != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, v, fallback)
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("⚠️  Invalid %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}

// splitList splits a comma-separated list and trims each entry.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
