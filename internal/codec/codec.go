// Package codec converts paths to and from the pretty-printed JSON document
// stored on disk and sent to subscribers.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/OCAP2/pathrecorder/pkg/core"
)

const nsecPerSec = 1_000_000_000

// Marshal encodes p as an indented JSON document terminated by a newline.
// Header sequence numbers are not persisted and are always written as 0.
func Marshal(p core.Path) ([]byte, error) {
	doc, err := toDoc(p)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a path document. Every field except a header's seq is required.
// An empty poses array decodes to a non-nil empty slice, as from core.NewPath;
// nil and empty Poses encode identically and both come back non-nil.
func Unmarshal(data []byte) (core.Path, error) {
	var doc pathDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.Path{}, fmt.Errorf("%w: %w", core.ErrDecode, err)
	}
	return fromDoc(&doc)
}

// Encode writes the document for p to w.
func Encode(w io.Writer, p core.Path) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %w", core.ErrIO, err)
	}
	return nil
}

// Decode reads a whole document from r.
func Decode(r io.Reader) (core.Path, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Path{}, fmt.Errorf("%w: %w", core.ErrIO, err)
	}
	return Unmarshal(data)
}

func toDoc(p core.Path) (*pathDoc, error) {
	header, err := headerToDoc(p.Header, "header")
	if err != nil {
		return nil, err
	}

	poses := make([]poseStampedDoc, 0, len(p.Poses))
	for i, ps := range p.Poses {
		loc := fmt.Sprintf("poses[%d]", i)
		h, err := headerToDoc(ps.Header, loc+".header")
		if err != nil {
			return nil, err
		}
		pose, err := poseToDoc(ps.Pose, loc+".pose")
		if err != nil {
			return nil, err
		}
		poses = append(poses, poseStampedDoc{Header: h, Pose: pose})
	}

	return &pathDoc{Header: header, Poses: &poses}, nil
}

func headerToDoc(h core.Header, loc string) (*headerDoc, error) {
	if !utf8.ValidString(h.FrameID) {
		return nil, fmt.Errorf("%w: %s.frame_id is not valid UTF-8", core.ErrEncode, loc)
	}
	if h.Stamp.Nsec >= nsecPerSec {
		return nil, fmt.Errorf("%w: %s.stamp.nsec %d out of range", core.ErrEncode, loc, h.Stamp.Nsec)
	}
	return &headerDoc{
		Stamp: &timeDoc{
			Sec:  ptr(h.Stamp.Sec),
			Nsec: ptr(h.Stamp.Nsec),
		},
		FrameID: ptr(h.FrameID),
	}, nil
}

func poseToDoc(p core.Pose, loc string) (*poseDoc, error) {
	pos := p.Position
	o := p.Orientation
	values := []struct {
		name string
		v    float64
	}{
		{"position.x", pos.X}, {"position.y", pos.Y}, {"position.z", pos.Z},
		{"orientation.x", o.X}, {"orientation.y", o.Y}, {"orientation.z", o.Z}, {"orientation.w", o.W},
	}
	for _, f := range values {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return nil, fmt.Errorf("%w: %s.%s is not finite", core.ErrEncode, loc, f.name)
		}
	}
	return &poseDoc{
		Position:    &pointDoc{X: ptr(pos.X), Y: ptr(pos.Y), Z: ptr(pos.Z)},
		Orientation: &quaternionDoc{X: ptr(o.X), Y: ptr(o.Y), Z: ptr(o.Z), W: ptr(o.W)},
	}, nil
}

func fromDoc(doc *pathDoc) (core.Path, error) {
	header, err := headerFromDoc(doc.Header, "header")
	if err != nil {
		return core.Path{}, err
	}
	if doc.Poses == nil {
		return core.Path{}, missing("poses")
	}

	poses := make([]core.PoseStamped, 0, len(*doc.Poses))
	for i, d := range *doc.Poses {
		loc := fmt.Sprintf("poses[%d]", i)
		h, err := headerFromDoc(d.Header, loc+".header")
		if err != nil {
			return core.Path{}, err
		}
		pose, err := poseFromDoc(d.Pose, loc+".pose")
		if err != nil {
			return core.Path{}, err
		}
		poses = append(poses, core.PoseStamped{Header: h, Pose: pose})
	}

	return core.Path{Header: header, Poses: poses}, nil
}

func headerFromDoc(d *headerDoc, loc string) (core.Header, error) {
	if d == nil {
		return core.Header{}, missing(loc)
	}
	if d.Stamp == nil {
		return core.Header{}, missing(loc + ".stamp")
	}
	if d.Stamp.Sec == nil {
		return core.Header{}, missing(loc + ".stamp.sec")
	}
	if d.Stamp.Nsec == nil {
		return core.Header{}, missing(loc + ".stamp.nsec")
	}
	if *d.Stamp.Nsec >= nsecPerSec {
		return core.Header{}, fmt.Errorf("%w: %s.stamp.nsec %d out of range", core.ErrDecode, loc, *d.Stamp.Nsec)
	}
	if d.FrameID == nil {
		return core.Header{}, missing(loc + ".frame_id")
	}
	return core.Header{
		Stamp:   core.Time{Sec: *d.Stamp.Sec, Nsec: *d.Stamp.Nsec},
		FrameID: *d.FrameID,
	}, nil
}

func poseFromDoc(d *poseDoc, loc string) (core.Pose, error) {
	if d == nil {
		return core.Pose{}, missing(loc)
	}
	if d.Position == nil {
		return core.Pose{}, missing(loc + ".position")
	}
	if d.Orientation == nil {
		return core.Pose{}, missing(loc + ".orientation")
	}

	var pose core.Pose
	fields := []struct {
		name string
		src  *float64
		dst  *float64
	}{
		{"position.x", d.Position.X, &pose.Position.X},
		{"position.y", d.Position.Y, &pose.Position.Y},
		{"position.z", d.Position.Z, &pose.Position.Z},
		{"orientation.x", d.Orientation.X, &pose.Orientation.X},
		{"orientation.y", d.Orientation.Y, &pose.Orientation.Y},
		{"orientation.z", d.Orientation.Z, &pose.Orientation.Z},
		{"orientation.w", d.Orientation.W, &pose.Orientation.W},
	}
	for _, f := range fields {
		if f.src == nil {
			return core.Pose{}, missing(loc + "." + f.name)
		}
		*f.dst = *f.src
	}
	return pose, nil
}

func missing(loc string) error {
	return fmt.Errorf("%w: missing field %s", core.ErrDecode, loc)
}

func ptr[T any](v T) *T {
	return &v
}
