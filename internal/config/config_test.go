package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "neo4j", cfg.VectorStoreBackend)
	assert.Equal(t, "stub", cfg.LLMProvider)
	assert.True(t, cfg.UseLocalMock)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, 10*time.Second, cfg.ShutdownGrace)
}

func TestLoadReadsEnvironmentOverride(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RAG_ONLY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.RagOnly)
}

func TestRateLimitsConversion(t *testing.T) {
	cfg := Config{RateLimitPerMinute: 1, RateLimitPerHour: 2, RateLimitPerDay: 3}
	limits := cfg.RateLimits()
	assert.Equal(t, 1, limits.PerMinute)
	assert.Equal(t, 2, limits.PerHour)
	assert.Equal(t, 3, limits.PerDay)
}

