package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "symtag", cfg.AppName)
	assert.Equal(t, 3010, cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 5*time.Minute, cfg.DatabaseConnMaxLifetime)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.InDelta(t, 0.3, cfg.PatternThreshold, 1e-9)
	assert.True(t, cfg.ReloadOnNewSecurity)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("RELOAD_LOCK_TTL", "45s")
	t.Setenv("CONTEXTUAL_THRESHOLD", "0.65")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 45*time.Second, cfg.ReloadLockTTL)
	assert.InDelta(t, 0.65, cfg.ContextualThreshold, 1e-9)
	assert.True(t, cfg.RedisEnabled)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_DRIVER=sqlite\nTAG_WORKER_COUNT=9\n"), 0o600))
	// godotenv never overrides variables that are already set
	t.Setenv("DB_DRIVER", "")
	require.NoError(t, os.Unsetenv("DB_DRIVER"))
	t.Setenv("TAG_WORKER_COUNT", "")
	require.NoError(t, os.Unsetenv("TAG_WORKER_COUNT"))

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 9, cfg.TagWorkerCount)
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{
		DatabaseHost:     "db",
		DatabasePort:     "5432",
		DatabaseUserName: "user",
		DatabasePassword: "secret",
		DatabaseName:     "symtag",
		DatabaseSSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=user password=secret dbname=symtag sslmode=disable", cfg.PostgresDSN())
}
