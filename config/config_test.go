package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("CATALOG_SYNC_INTERVAL", "")
	t.Setenv("CLASSIFIER_RPS", "")

	cfg := Load()
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 5*time.Minute, cfg.CatalogSyncInterval)
	assert.Equal(t, float64(2), cfg.ClassifierRPS)
	assert.Equal(t, "yangy50/garbage-classification", cfg.ClassifierModel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", " 9090 ")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test ")
	t.Setenv("CATALOG_SYNC_INTERVAL", "30s")
	t.Setenv("CLASSIFIER_RPS", "0.5")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.CatalogSyncInterval)
	assert.Equal(t, 0.5, cfg.ClassifierRPS)
}

func TestLoadFallsBackOnGarbage(t *testing.T) {
	t.Setenv("MAINTENANCE_INTERVAL", "soon")
	t.Setenv("CLASSIFIER_RPS", "-3")

	cfg := Load()
	assert.Equal(t, time.Hour, cfg.MaintenanceInterval)
	assert.Equal(t, float64(2), cfg.ClassifierRPS)
}

func TestArchiveEnabled(t *testing.T) {
	cfg := &Config{R2AccountID: "acct", R2AccessKeyID: "id", R2AccessKeySecret: "secret"}
	assert.False(t, cfg.ArchiveEnabled())

	cfg.R2Bucket = "scans"
	assert.True(t, cfg.ArchiveEnabled())
}
