package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRunConfig(t *testing.T) {
	cfg := DefaultRunConfig("lead")
	assert.Equal(t, "lead", cfg.EntryWorker)
	assert.Equal(t, 5*time.Minute, cfg.InvocationTimeout)
	assert.Equal(t, 15*time.Minute, cfg.RunTimeout)
	assert.Equal(t, 20, cfg.MaxHandoffs)
	assert.Equal(t, 8, cfg.LoopWindow)
	assert.Equal(t, 3, cfg.MinUniqueWorkers)
	assert.Equal(t, 256, cfg.EventBuffer)
	require.NoError(t, cfg.Validate())
}

func TestParseRunConfig_FillsDefaults(t *testing.T) {
	cfg, err := ParseRunConfig([]byte("entry_worker: lead\nmax_handoffs: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxHandoffs)
	assert.Equal(t, DefaultLoopWindow, cfg.LoopWindow)
	assert.Equal(t, DefaultRunTimeout, cfg.RunTimeout)
}

func TestParseRunConfig_Durations(t *testing.T) {
	cfg, err := ParseRunConfig([]byte("entry_worker: lead\ninvocation_timeout: 30s\nrun_timeout: 2m\n"))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.InvocationTimeout)
	assert.Equal(t, 2*time.Minute, cfg.RunTimeout)
}

func TestParseRunConfig_Invalid(t *testing.T) {
	_, err := ParseRunConfig([]byte("max_handoffs: 5\n"))
	require.Error(t, err, "missing entry_worker must fail")

	_, err = ParseRunConfig([]byte("entry_worker: lead\nloop_window: 2\nmin_unique_workers: 4\n"))
	require.Error(t, err, "U > W must fail")

	_, err = ParseRunConfig([]byte("entry_worker: [broken"))
	require.Error(t, err)
}
