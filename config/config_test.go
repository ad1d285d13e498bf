package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "sorrel-api", cfg.AppName)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "cardinality", cfg.ChangeDetection)
	assert.Equal(t, 1, cfg.ExecutorWorkers)
	assert.Equal(t, 350*time.Millisecond, cfg.ExecutorDelay)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("EXECUTOR_WORKERS=4\nCHANGE_DETECTION=difference\nSTORE_DRIVER=memory\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("EXECUTOR_WORKERS")
		os.Unsetenv("CHANGE_DETECTION")
		os.Unsetenv("STORE_DRIVER")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.ExecutorWorkers)
	assert.Equal(t, "difference", cfg.ChangeDetection)
	assert.Equal(t, "memory", cfg.StoreDriver)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown store driver", key: "STORE_DRIVER", val: "mongo"},
		{name: "unknown change detection", key: "CHANGE_DETECTION", val: "symmetric"},
		{name: "zero workers", key: "EXECUTOR_WORKERS", val: "0"},
		{name: "http store without base url", key: "STORE_DRIVER", val: "http"},
		{name: "unknown tracing protocol", key: "TRACING_PROTOCOL", val: "udp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
