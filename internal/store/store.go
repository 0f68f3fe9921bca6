// Package store serves a path loaded once from disk.
package store

import (
	"github.com/OCAP2/pathrecorder/internal/codec"
	"github.com/OCAP2/pathrecorder/pkg/core"
)

// Store holds an immutable path. It is safe for concurrent use.
type Store struct {
	source string
	path   core.Path
}

// Load reads and decodes source. The file is never created or re-read.
func Load(source string) (*Store, error) {
	p, err := codec.ReadFile(source)
	if err != nil {
		return nil, err
	}
	return &Store{source: source, path: p}, nil
}

// Snapshot returns a copy of the loaded path that the caller owns.
func (s *Store) Snapshot() core.Path {
	return s.path.Clone()
}

// Len returns the number of loaded poses.
func (s *Store) Len() int {
	return len(s.path.Poses)
}

// FrameID returns the path-level frame.
func (s *Store) FrameID() string {
	return s.path.Header.FrameID
}

// Source returns the file the path was loaded from.
func (s *Store) Source() string {
	return s.source
}
