package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/pathrecorder/internal/codec"
	"github.com/OCAP2/pathrecorder/internal/recorder"
	"github.com/OCAP2/pathrecorder/pkg/core"
)

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "path.json")
	p := core.NewPath("map")
	p.Poses = append(p.Poses,
		core.PoseStamped{Header: core.Header{FrameID: "map"}, Pose: core.Pose{Orientation: core.IdentityQuaternion()}},
		core.PoseStamped{Header: core.Header{FrameID: "map"}, Pose: core.Pose{Position: core.Point{X: 4, Y: 2}, Orientation: core.IdentityQuaternion()}},
	)
	require.NoError(t, codec.WriteFile(file, p))

	s, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, p, s.Snapshot())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "map", s.FrameID())
	assert.Equal(t, file, s.Source())
}

func TestLoad_MissingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "missing.json")

	s, err := Load(file)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, errors.Is(err, core.ErrIO))

	_, statErr := os.Stat(file)
	assert.True(t, os.IsNotExist(statErr), "Load must not create the file")
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"truncated", `{"header": {"seq": 0`},
		{"missing poses", `{"header": {"seq": 0, "stamp": {"sec": 0, "nsec": 0}, "frame_id": "map"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "bad.json")
			require.NoError(t, os.WriteFile(file, []byte(tt.content), 0644))

			_, err := Load(file)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrDecode))
		})
	}
}

func TestLoad_RecorderOutput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.json")
	rec, err := recorder.New(file, "map")
	require.NoError(t, err)
	require.NoError(t, rec.Append(core.PointStamped{
		Header: core.Header{FrameID: "map"},
		Point:  core.Point{X: 1.0, Y: 2.0},
	}))
	require.NoError(t, rec.Close())

	s, err := Load(file)
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Len(t, snap.Poses, 2)
	assert.Equal(t, "map", snap.Header.FrameID)
	assert.Equal(t, "map", snap.Poses[1].Header.FrameID)
	assert.Equal(t, core.Point{X: 1.0, Y: 2.0, Z: 0.0}, snap.Poses[1].Pose.Position)
}

func TestSnapshot_CallerOwnsCopy(t *testing.T) {
	file := filepath.Join(t.TempDir(), "path.json")
	p := core.NewPath("map")
	p.Poses = append(p.Poses, core.PoseStamped{Pose: core.Pose{Position: core.Point{X: 1}}})
	require.NoError(t, codec.WriteFile(file, p))

	s, err := Load(file)
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Poses[0].Pose.Position.X = 99
	snap.Poses = append(snap.Poses, core.PoseStamped{})

	again := s.Snapshot()
	require.Len(t, again.Poses, 1)
	assert.Equal(t, 1.0, again.Poses[0].Pose.Position.X)
}

func TestSnapshot_ConcurrentReaders(t *testing.T) {
	file := filepath.Join(t.TempDir(), "path.json")
	p := core.NewPath("map")
	for i := 0; i < 100; i++ {
		p.Poses = append(p.Poses, core.PoseStamped{Pose: core.Pose{Position: core.Point{X: float64(i)}}})
	}
	require.NoError(t, codec.WriteFile(file, p))

	s, err := Load(file)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, 100, s.Snapshot().Len())
			}
		}()
	}
	wg.Wait()
}
