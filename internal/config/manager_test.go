package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_GetReturnsLoadedConfig(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: error\n")

	m, err := NewManager(path, nopSlog())
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	assert.Equal(t, "error", m.Get().Logging.Level)
}

func TestManager_RejectsInvalidInitialConfig(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: shout\n")

	_, err := NewManager(path, nopSlog())
	assert.Error(t, err)
}

func TestManager_HotReload(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	m, err := NewManager(path, nopSlog())
	require.NoError(t, err)

	var reloads atomic.Int32
	m.OnChange(func(cfg *Config) {
		reloads.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644))

	require.Eventually(t, func() bool {
		return m.Get().Logging.Level == "warn"
	}, 5*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(t, reloads.Load(), int32(1))
}

func TestManager_InvalidReloadKeepsCurrent(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	m, err := NewManager(path, nopSlog())
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	// Simulate the watcher path directly; a broken file must not replace the
	// active config.
	require.NoError(t, os.WriteFile(path, []byte("logging: [broken"), 0o644))
	m.reload()

	assert.Equal(t, "info", m.Get().Logging.Level)
}
