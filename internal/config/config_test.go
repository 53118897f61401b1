package config_test

import (
	"testing"

	"matchengine/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAppliedWithNoConfigFile(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "order-input", cfg.Ingress.Topic)
	assert.Equal(t, "order-input-dlq", cfg.Ingress.DLQTopic)
	assert.Equal(t, 4, cfg.Ingress.Concurrency)
	assert.Equal(t, "order-status-update", cfg.Egress.StatusTopic)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr)
	assert.True(t, cfg.Recovery.Enabled)
}
