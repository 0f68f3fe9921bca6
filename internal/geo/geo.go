package geo

import (
	"errors"
	"math"

	"github.com/wroge/wgs84"

	"github.com/OCAP2/pathrecorder/pkg/core"
)

// Geodetic fixes are projected to EPSG:3857 (web mercator) so they can be appended
// to a planar path measured in meters.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// maxMercatorLatitude is the latitude at which web mercator is cut off.
const maxMercatorLatitude = 85.05112878

// PointFromGeodetic converts an EPSG:4326 longitude/latitude in degrees and an
// altitude in meters to an EPSG:3857 point.
func PointFromGeodetic(longitude, latitude, altitude float64) (core.Point, error) {
	for _, v := range []float64{longitude, latitude, altitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.Point{}, ErrInvalidCoordinates
		}
	}
	if longitude < -180 || longitude > 180 || math.Abs(latitude) > maxMercatorLatitude {
		return core.Point{}, ErrInvalidCoordinates
	}

	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return core.Point{X: x, Y: y, Z: altitude}, nil
}
