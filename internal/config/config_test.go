package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.False(t, cfg.Debug)

	assert.Contains(t, []string{"tcp", "unix", "pipe"}, cfg.Daemon.Transport)
	assert.Equal(t, "localhost:8888", cfg.Daemon.TCPAddr)
	assert.Equal(t, "/tmp/sunflower-daemon.sock", cfg.Daemon.SocketPath)
	assert.Equal(t, `\\.\pipe\sunflower-daemon`, cfg.Daemon.PipeName)
	assert.Greater(t, cfg.Daemon.RequestBuffer, 0)

	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 1.0, cfg.Audio.DefaultVolume)

	assert.Equal(t, 5, cfg.Playback.MaxRetries)
	assert.Equal(t, 5000, cfg.Playback.RetryBaseDelayMs)
	assert.Greater(t, cfg.Playback.DrainPollMs, 0)

	assert.NotEmpty(t, cfg.Storage.DatabasePath)
	assert.NotEmpty(t, cfg.Storage.CacheDir)
	assert.True(t, cfg.Storage.EnableWAL)

	assert.Equal(t, 50, cfg.Search.MaxResults)
}
