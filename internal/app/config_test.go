package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	require.Equal(t, 720*time.Hour, cfg.SessionTTL)
	require.Equal(t, 3*time.Second, cfg.WorkflowLockWait)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("WORKFLOW_LOCK_WAIT", "250ms")
	t.Setenv("WORKFLOW_WATCHER_IDS", "7,42")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, 250*time.Millisecond, cfg.WorkflowLockWait)
	require.Equal(t, []int64{7, 42}, cfg.WorkflowWatcherIDs)
}
