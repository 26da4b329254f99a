package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"dollartracker/internal/config"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.Log{Level: "loud"})
	require.Error(t, err)
}

func TestNew_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	log, err := New(config.Log{Level: "debug", Format: "console", OutputFile: path})
	require.NoError(t, err)

	log.Named("aggregate").Info("snapshot built")
	_ = log.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"msg":"snapshot built"`)
	require.Contains(t, string(b), `"logger":"aggregate"`)
}
