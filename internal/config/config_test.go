package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults expects that a configuration can be loaded without any environment variables
// and that the documented defaults are applied.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "test", cfg.DBName)
	assert.Equal(t, 5*time.Second, cfg.PhotoFetchTimeout)
	assert.Equal(t, int64(5242880), cfg.PhotoMaxBytes)
	assert.Equal(t, 16, cfg.ExportConcurrency)
	assert.Equal(t, "", cfg.RedisAddr)
	assert.True(t, cfg.RequestLogging())
}

// TestLoadFromEnvironment sets a few variables and expects them to override the defaults.
func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DBUSER", "dirk")
	t.Setenv("DBPWD", "secret")
	t.Setenv("DBHOST", "db:3306")
	t.Setenv("GIN_LOGGING", "OFF")
	t.Setenv("PHOTO_FETCH_TIMEOUT", "750ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.PhotoFetchTimeout)
	assert.False(t, cfg.RequestLogging())
	assert.Equal(t, "dirk:secret@tcp(db:3306)/test?parseTime=true&clientFoundRows=true", cfg.DSN())
}

// TestLoadInvalid expects that invalid values are reported instead of silently replaced.
func TestLoadInvalid(t *testing.T) {
	invalid := map[string]string{
		"PORT":                "eighty",
		"EXPORT_CONCURRENCY":  "0",
		"PHOTO_FETCH_TIMEOUT": "soon",
		"PHOTO_MAX_BYTES":     "-1",
	}
	for key, value := range invalid {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

// TestLoadDotEnv expects that variables from a .env file in the working directory are applied.
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REDIS_PASSWORD=from-dotenv\n"), 0o600))
	t.Chdir(dir)
	// Setenv restores the original state after the test; the variable must be unset for the
	// .env file to apply.
	t.Setenv("REDIS_PASSWORD", "")
	require.NoError(t, os.Unsetenv("REDIS_PASSWORD"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.RedisPassword)
}

// TestLoadMalformedDotEnv expects that a broken .env file is reported instead of ignored.
func TestLoadMalformedDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DBNAME=\"unterminated\n"), 0o600))
	t.Chdir(dir)

	_, err := Load()
	assert.ErrorContains(t, err, ".env")
}
