package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/pathrecorder/internal/cli"
	"github.com/OCAP2/pathrecorder/internal/config"
)

func TestMain_Help(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 0, Main(cli.ModeSave, []string{"--help"}, &stderr))
	assert.Contains(t, stderr.String(), "usage: path_saver")
}

func TestMain_ArgumentCount(t *testing.T) {
	chdir(t, t.TempDir())

	var stderr bytes.Buffer
	assert.Equal(t, 1, Main(cli.ModeSave, []string{"a.json", "b.json"}, &stderr))
	assert.Contains(t, stderr.String(), "expected 1 argument got 2")

	entries, err := os.ReadDir(".")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMain_MalformedConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(`{`), 0644))

	var stderr bytes.Buffer
	code := Main(cli.ModeServe, []string{"--config-dir", dir, filepath.Join(dir, "in.json")}, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "error reading config file")
}

func TestMain_ServeMissingFileWritesLog(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	logs := filepath.Join(dir, "logs")
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName),
		[]byte(`{"logsDir": "`+filepath.ToSlash(logs)+`"}`), 0644))

	var stderr bytes.Buffer
	code := Main(cli.ModeServe, []string{"--config-dir", dir, filepath.Join(dir, "missing.json")}, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "io error")

	entries, err := os.ReadDir(logs)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(logs, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Exiting")
}

func TestMain_InvalidConfiguredRateKeepsDestination(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(`{"rate": 0}`), 0644))
	out := filepath.Join(dir, "path.json")
	require.NoError(t, os.WriteFile(out, []byte("PRECIOUS"), 0644))

	var stderr bytes.Buffer
	code := Main(cli.ModeSave, []string{"--config-dir", dir, out}, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "rate must be a positive number")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "PRECIOUS", string(data))
}

func TestMain_OTelWritesToLogFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	logs := filepath.Join(dir, "logs")
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName),
		[]byte(`{"logsDir": "`+filepath.ToSlash(logs)+`", "otel": {"enabled": true}}`), 0644))

	var stderr bytes.Buffer
	code := Main(cli.ModeServe, []string{"--config-dir", dir, filepath.Join(dir, "missing.json")}, &stderr)
	assert.Equal(t, 1, code)
	assert.NotContains(t, stderr.String(), "otel disabled")

	entries, err := os.ReadDir(logs)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(logs, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "service.name")
	assert.Contains(t, string(data), "path-recorder")
}
