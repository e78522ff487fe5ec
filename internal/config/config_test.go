package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestDurationDecodesHumanValues(t *testing.T) {
	raw := `
presence:
  conversation_ttl: 45s
  global_query_window: 2m30s
notifications:
  dedup_window: 10m
  janitor_interval: 1h
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))
	assert.Equal(t, 45*time.Second, cfg.Presence.ConversationTTL.Std())
	assert.Equal(t, 150*time.Second, cfg.Presence.GlobalQueryWindow.Std())
	assert.Equal(t, 10*time.Minute, cfg.Notifications.DedupWindow.Std())
	assert.Equal(t, time.Hour, cfg.Notifications.JanitorInterval.Std())
}

func TestDurationAcceptsRawNanoseconds(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte("presence:\n  conversation_ttl: 60000000000\n"), &cfg))
	assert.Equal(t, time.Minute, cfg.Presence.ConversationTTL.Std())
}

func TestDurationRejectsGarbage(t *testing.T) {
	var cfg Config
	err := yaml.Unmarshal([]byte("presence:\n  conversation_ttl: soon\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "soon")
}

func TestDefaultsKeepQueryWindowsAboveTTL(t *testing.T) {
	var cfg Config
	cfg.Presence.ConversationTTL = Duration(5 * time.Minute)
	applyDefaults(&cfg)
	assert.GreaterOrEqual(t,
		cfg.Presence.ConversationQueryWindow.Std(), cfg.Presence.ConversationTTL.Std())
}
