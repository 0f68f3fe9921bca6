// pkg/core/path.go
package core

import (
	"math"
	"time"
)

// Time is a ROS-style stamp split into whole seconds and nanoseconds.
// Nsec is always below one second.
type Time struct {
	Sec  uint32
	Nsec uint32
}

// MaxTime is the latest representable stamp, in February 2106.
var MaxTime = Time{Sec: math.MaxUint32, Nsec: 999_999_999}

// TimeFromStd converts a wall clock time to a stamp. Sec is a uint32, so times
// before the epoch clamp to zero and times past MaxTime clamp to MaxTime.
func TimeFromStd(t time.Time) Time {
	if t.Unix() < 0 {
		return Time{}
	}
	if t.Unix() > math.MaxUint32 {
		return MaxTime
	}
	return Time{
		Sec:  uint32(t.Unix()),
		Nsec: uint32(t.Nanosecond()),
	}
}

// Std returns the stamp as a UTC time.Time.
func (t Time) Std() time.Time {
	return time.Unix(int64(t.Sec), int64(t.Nsec)).UTC()
}

// IsZero reports whether the stamp is the zero stamp.
func (t Time) IsZero() bool {
	return t.Sec == 0 && t.Nsec == 0
}

// Header carries the frame and stamp of a message.
// Seq is a transport sequence counter and has no meaning for a path.
type Header struct {
	Seq     uint32
	Stamp   Time
	FrameID string
}

// Point is a position in meters.
type Point struct {
	X float64
	Y float64
	Z float64
}

// Quaternion is an orientation.
type Quaternion struct {
	X float64
	Y float64
	Z float64
	W float64
}

// IdentityQuaternion returns the no-rotation orientation.
func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

// Pose is a position plus orientation.
type Pose struct {
	Position    Point
	Orientation Quaternion
}

// PoseStamped is one recorded waypoint.
type PoseStamped struct {
	Header Header
	Pose   Pose
}

// PointStamped is the inbound point event. It has no orientation.
type PointStamped struct {
	Header Header
	Point  Point
}

// Path is an ordered sequence of waypoints in a fixed frame.
// Pose order is traversal order; entries are never reordered or deduplicated.
type Path struct {
	Header Header
	Poses  []PoseStamped
}

// NewPath returns an empty path in the given frame. Its Poses is a non-nil
// empty slice, the canonical empty form that decoding also produces.
func NewPath(frameID string) Path {
	return Path{
		Header: Header{FrameID: frameID},
		Poses:  make([]PoseStamped, 0),
	}
}

// Len returns the number of poses.
func (p Path) Len() int {
	return len(p.Poses)
}

// Clone returns a copy that shares no memory with p.
func (p Path) Clone() Path {
	poses := make([]PoseStamped, len(p.Poses))
	copy(poses, p.Poses)
	return Path{
		Header: p.Header,
		Poses:  poses,
	}
}
