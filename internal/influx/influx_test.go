package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/pathrecorder/internal/config"
	"github.com/OCAP2/pathrecorder/pkg/core"
)

func testPath() core.Path {
	p := core.NewPath("map")
	for _, xy := range [][2]float64{{0, 0}, {3, 4}} {
		p.Poses = append(p.Poses, core.PoseStamped{
			Header: core.Header{FrameID: "map"},
			Pose:   core.Pose{Position: core.Point{X: xy[0], Y: xy[1]}, Orientation: core.IdentityQuaternion()},
		})
	}
	return p
}

func TestPathPoint(t *testing.T) {
	at := time.Unix(1700000000, 0)
	point, err := PathPoint(testPath(), at)
	require.NoError(t, err)
	line := influxdb2_write.PointToLineProtocol(point, time.Second)

	assert.Contains(t, line, "path,frame_id=map ")
	assert.Contains(t, line, "poses=2i")
	assert.Contains(t, line, "length=5")
	assert.Contains(t, line, " 1700000000")
}

func unreachable() config.InfluxConfig {
	return config.InfluxConfig{Protocol: "http", Host: "127.0.0.1", Port: "1", Org: "o", Bucket: "b"}
}

func TestNewSink_UnreachableWithoutBackup(t *testing.T) {
	_, err := NewSink(context.Background(), unreachable(), "", zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSink_BackupFile(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx_backup.log.gz")

	s, err := NewSink(context.Background(), unreachable(), backup, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Publish(context.Background(), testPath()))
	require.NoError(t, s.Publish(context.Background(), core.NewPath("odom")))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Publish(context.Background(), testPath()), ErrUnavailable)

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "path,frame_id=map ")
	assert.Contains(t, out, "path,frame_id=odom ")
	assert.Contains(t, out, "poses=0i")
}

func TestSink_BackupUnwritable(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "missing", "backup.gz")

	_, err := NewSink(context.Background(), unreachable(), backup, zerolog.Nop())
	assert.ErrorIs(t, err, core.ErrIO)
}
