package geo

import (
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/OCAP2/pathrecorder/pkg/core"
)

// Summary describes the planar extent of a path.
type Summary struct {
	FrameID string  `json:"frameId"`
	Poses   int     `json:"poses"`
	Length  float64 `json:"length"`
	MinX    float64 `json:"minX"`
	MinY    float64 `json:"minY"`
	MaxX    float64 `json:"maxX"`
	MaxY    float64 `json:"maxY"`
	WKT     string  `json:"wkt"`
}

// LineString builds an XY line string through the path's positions in order.
// Validation is disabled so a path of one or repeated positions still yields
// its coordinates.
func LineString(p core.Path) (geom.LineString, error) {
	flatCoords := make([]float64, 0, len(p.Poses)*2)
	for _, ps := range p.Poses {
		flatCoords = append(flatCoords, ps.Pose.Position.X, ps.Pose.Position.Y)
	}
	seq := geom.NewSequence(flatCoords, geom.DimXY)
	ls, err := geom.NewLineString(seq, geom.DisableAllValidations)
	if err != nil {
		return geom.LineString{}, fmt.Errorf("failed to build line string: %w", err)
	}
	return ls, nil
}

// Summarize computes length, bounds and WKT of the path in its own frame.
// Bounds are zero for an empty path.
func Summarize(p core.Path) (Summary, error) {
	ls, err := LineString(p)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		FrameID: p.Header.FrameID,
		Poses:   len(p.Poses),
		WKT:     ls.AsText(),
	}
	if len(p.Poses) > 1 {
		s.Length = ls.Length()
	}
	if len(p.Poses) == 0 {
		return s, nil
	}

	s.MinX, s.MinY = math.Inf(1), math.Inf(1)
	s.MaxX, s.MaxY = math.Inf(-1), math.Inf(-1)
	for _, ps := range p.Poses {
		pos := ps.Pose.Position
		s.MinX = math.Min(s.MinX, pos.X)
		s.MinY = math.Min(s.MinY, pos.Y)
		s.MaxX = math.Max(s.MaxX, pos.X)
		s.MaxY = math.Max(s.MaxY, pos.Y)
	}
	return s, nil
}
