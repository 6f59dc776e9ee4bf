package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultBatchConfig(t *testing.T) {
	cfg := DefaultBatchConfig()

	assert.Equal(t, 10, cfg.ChunkSize)
	assert.Equal(t, 2*time.Second, cfg.InterBatchDelay)
	assert.Equal(t, 500, cfg.MaxRecords)
	assert.Equal(t, 4*time.Hour, cfg.RunRetention)
}

func TestLoadBatchConfigFromEnvironment(t *testing.T) {
	t.Setenv("BATCH_CHUNK_SIZE", "5")
	t.Setenv("BATCH_DELAY_SECONDS", "0")
	t.Setenv("BATCH_MAX_RECORDS", "100")

	cfg := LoadBatchConfig()

	assert.Equal(t, 5, cfg.ChunkSize)
	assert.Equal(t, time.Duration(0), cfg.InterBatchDelay)
	assert.Equal(t, 100, cfg.MaxRecords)
}

func TestLoadBatchConfigIgnoresInvalidValues(t *testing.T) {
	t.Setenv("BATCH_CHUNK_SIZE", "zero")
	t.Setenv("BATCH_DELAY_SECONDS", "-3")
	t.Setenv("BATCH_MAX_RECORDS", "0")

	cfg := LoadBatchConfig()

	assert.Equal(t, 10, cfg.ChunkSize)
	assert.Equal(t, 2*time.Second, cfg.InterBatchDelay)
	assert.Equal(t, 500, cfg.MaxRecords)
}

func TestDefaultServiceConfig(t *testing.T) {
	cfg := DefaultServiceConfig()
	assert.Equal(t, 30*time.Second, cfg.HTTPRequestTimeout)
}
