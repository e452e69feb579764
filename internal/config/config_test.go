package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Address)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "snapsight-images", cfg.ImageBucket)
	assert.Equal(t, "output/", cfg.OutputPrefix)
	assert.Equal(t, int64(25<<20), cfg.MaxFileSize)
	assert.Equal(t, 4, cfg.AnalysisWorkers)
	assert.Equal(t, 5, cfg.NotifyMaxRetry)
	assert.Equal(t, 10, cfg.NotifyMaxInFlight)
	assert.Equal(t, int64(1000<<20), cfg.NotifyMaxInFlightBytes)
	assert.Contains(t, cfg.AllowedExtensions, ".jpg")
	assert.Contains(t, cfg.AllowedExtensions, ".png")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SNAPSIGHT_ADDRESS", ":9090")
	t.Setenv("SNAPSIGHT_MAX_FILE_BYTES", "1048576")
	t.Setenv("SNAPSIGHT_IMAGE_EXTENSIONS", " .JPG , .Png ")
	t.Setenv("SNAPSIGHT_ANALYSIS_WORKERS", "8")
	t.Setenv("SNAPSIGHT_NOTIFY_MAX_RETRY", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Address)
	assert.Equal(t, int64(1048576), cfg.MaxFileSize)
	// Extensions are normalized to lower case and trimmed.
	assert.Equal(t, []string{".jpg", ".png"}, cfg.AllowedExtensions)
	assert.Equal(t, 8, cfg.AnalysisWorkers)
	assert.Equal(t, 2, cfg.NotifyMaxRetry)
}

func TestLoadRejectsNonsenseValues(t *testing.T) {
	t.Setenv("SNAPSIGHT_MAX_FILE_BYTES", "-5")
	t.Setenv("SNAPSIGHT_ANALYSIS_WORKERS", "0")
	t.Setenv("SNAPSIGHT_NOTIFY_MAX_IN_FLIGHT", "-1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(25<<20), cfg.MaxFileSize)
	assert.Equal(t, 4, cfg.AnalysisWorkers)
	assert.Equal(t, 10, cfg.NotifyMaxInFlight)
}
