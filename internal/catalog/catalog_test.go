package catalog

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/pathrecorder/internal/config"
	"github.com/OCAP2/pathrecorder/pkg/core"
)

func openTest(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(config.CatalogConfig{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "catalog.db"),
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func pathOf(xy ...[2]float64) core.Path {
	p := core.NewPath("map")
	for _, c := range xy {
		p.Poses = append(p.Poses, core.PoseStamped{
			Header: core.Header{FrameID: "map"},
			Pose:   core.Pose{Position: core.Point{X: c[0], Y: c[1]}, Orientation: core.IdentityQuaternion()},
		})
	}
	return p
}

func TestOpen_UnsupportedType(t *testing.T) {
	_, err := Open(config.CatalogConfig{Type: "mongo"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestAdd(t *testing.T) {
	c := openTest(t)
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	rec, err := c.Add(context.Background(), "/tmp/out.json", pathOf([2]float64{0, 0}, [2]float64{3, 4}))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, "/tmp/out.json", rec.FilePath)
	assert.Equal(t, "map", rec.FrameID)
	assert.Equal(t, 2, rec.PoseCount)
	assert.InDelta(t, 5.0, rec.Length, 1e-9)

	var b Bounds
	require.NoError(t, json.Unmarshal(rec.Bounds, &b))
	assert.Equal(t, Bounds{MinX: 0, MinY: 0, MaxX: 3, MaxY: 4}, b)
}

func TestList_NewestFirst(t *testing.T) {
	c := openTest(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"a.json", "b.json", "c.json"} {
		at := base.Add(time.Duration(i) * time.Minute)
		c.now = func() time.Time { return at }
		_, err := c.Add(context.Background(), name, pathOf([2]float64{float64(i), 0}))
		require.NoError(t, err)
	}

	recs, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "c.json", recs[0].FilePath)
	assert.Equal(t, "b.json", recs[1].FilePath)
	assert.Equal(t, "a.json", recs[2].FilePath)
	assert.Equal(t, 1, recs[0].PoseCount)
}

func TestList_Empty(t *testing.T) {
	recs, err := openTest(t).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSaveHook(t *testing.T) {
	c := openTest(t)

	c.SaveHook(context.Background())("hooked.json", pathOf([2]float64{1, 1}))

	recs, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "hooked.json", recs[0].FilePath)
}

func TestReopenKeepsRecordings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	cfg := config.CatalogConfig{Type: "sqlite", SQLitePath: path}

	c, err := Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	_, err = c.Add(context.Background(), "kept.json", pathOf())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	recs, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 0, recs[0].PoseCount)
}
