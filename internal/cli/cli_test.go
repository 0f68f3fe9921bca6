package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/pathrecorder/internal/config"
	"github.com/OCAP2/pathrecorder/pkg/core"
)

func TestParse_SinglePositional(t *testing.T) {
	opts, err := Parse(ModeSave, []string{"out.json"}, nil)
	require.NoError(t, err)

	assert.Equal(t, ModeSave, opts.Mode)
	assert.Equal(t, "out.json", opts.File)
	assert.Equal(t, ".", opts.ConfigDir)
	assert.Empty(t, opts.Params)
}

func TestParse_ArgumentCount(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		count int
	}{
		{"none", nil, 0},
		{"only remaps", []string{"~rate:=2"}, 0},
		{"two", []string{"a.json", "b.json"}, 2},
		{"three with flags", []string{"--rate", "3", "a", "b", "c"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			chdir(t, dir)

			_, err := Parse(ModeSave, tt.args, nil)

			var argErr *core.InvalidArgumentsError
			require.True(t, errors.As(err, &argErr), "got %v", err)
			assert.Equal(t, tt.count, argErr.Count)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "no file may be created on an argument error")
		})
	}
}

func TestParse_ArgumentCountMessage(t *testing.T) {
	_, err := Parse(ModeServe, []string{"a", "b"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 1 argument got 2")
}

func TestParse_Remaps(t *testing.T) {
	opts, err := Parse(ModeSave, []string{"~rate:=2.5", "out.json", "_frame_id:=odom", "path:=/robot/path"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "out.json", opts.File)
	assert.Equal(t, map[string]any{"rate": 2.5, "frameId": "odom"}, opts.Params)
	assert.Equal(t, map[string]string{"path": "/robot/path"}, opts.Remaps)
}

func TestParse_BadRate(t *testing.T) {
	for _, args := range [][]string{
		{"--rate", "0", "out.json"},
		{"--rate", "-1", "out.json"},
		{"out.json", "~rate:=abc"},
		{"out.json", "_rate:=0"},
	} {
		_, err := Parse(ModeSave, args, nil)
		assert.ErrorIs(t, err, ErrInvalidRate, "%v", args)
	}
}

func TestParse_UnknownParameter(t *testing.T) {
	_, err := Parse(ModeSave, []string{"out.json", "~bogus:=1"}, nil)
	assert.ErrorIs(t, err, ErrUnknownParameter)
}

func TestParse_Help(t *testing.T) {
	var buf bytes.Buffer
	_, err := Parse(ModeServe, []string{"--help"}, &buf)

	assert.ErrorIs(t, err, pflag.ErrHelp)
	assert.Contains(t, buf.String(), "usage: path_server")
	assert.Contains(t, buf.String(), "--rate")
}

func TestParse_UnknownFlag(t *testing.T) {
	_, err := Parse(ModeSave, []string{"--nope", "out.json"}, nil)
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(`{"rate": 1, "frameId": "base"}`), 0644))

	opts, err := Parse(ModeSave, []string{"--config-dir", dir, "--listen", ":9000", "--rate", "4", "out.json", "~rate:=8"}, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, opts.ConfigDir)

	require.NoError(t, config.Load(opts.ConfigDir))
	require.NoError(t, opts.Apply())

	rc := config.GetRecorderConfig()
	assert.Equal(t, 8.0, rc.Rate)
	assert.Equal(t, "base", rc.FrameID)
	assert.Equal(t, ":9000", config.GetServerConfig().Listen)
}

func TestApply_RejectsConfiguredRate(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(`{"rate": 0}`), 0644))

	opts, err := Parse(ModeSave, []string{"--config-dir", dir, "out.json"}, nil)
	require.NoError(t, err)
	require.NoError(t, config.Load(opts.ConfigDir))

	assert.ErrorIs(t, opts.Apply(), ErrInvalidRate)
}
