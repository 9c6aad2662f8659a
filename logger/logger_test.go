package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobals(t *testing.T) {
	saved, level := zlog.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		zlog.Logger = saved
		zerolog.SetGlobalLevel(level)
	})
}

func TestInitFileWritesJSON(t *testing.T) {
	restoreGlobals(t)
	path := filepath.Join(t.TempDir(), "hostbridge.log")

	closer, err := Init(false, path)
	require.NoError(t, err)

	zlog.Debug().Msg("hidden")
	zlog.Info().Str("channel", "com.example/sdk").Msg("serving")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "serving", entry["message"])
	assert.Equal(t, "com.example/sdk", entry["channel"])
	assert.Contains(t, entry, "time")
	assert.NotContains(t, entry, "caller")
}

func TestInitVerboseAddsCaller(t *testing.T) {
	restoreGlobals(t)
	path := filepath.Join(t.TempDir(), "debug.log")

	closer, err := Init(true, path)
	require.NoError(t, err)
	zlog.Debug().Msg("detail")
	require.NoError(t, closer.Close())

	var entry map[string]any
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Contains(t, entry["caller"], "logger/logger_test.go:")
}

func TestInitConsole(t *testing.T) {
	restoreGlobals(t)
	for _, target := range []string{"", "stdout", "STDERR"} {
		closer, err := Init(false, target)
		require.NoError(t, err)
		assert.NoError(t, closer.Close())
	}
}

func TestInitBadPath(t *testing.T) {
	restoreGlobals(t)
	_, err := Init(false, filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}
