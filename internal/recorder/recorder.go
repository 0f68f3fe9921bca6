// Package recorder accumulates inbound points into a path and saves it to disk
// exactly once when the recorder is closed.
//
// The owner must call Close (or MustClose) before the recorder goes out of
// scope; the usual pattern is
//
//	rec, err := recorder.New(dest, "map")
//	if err != nil {
//		return err
//	}
//	defer rec.MustClose()
//
// which saves on normal return, on error return and while unwinding a panic.
package recorder

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/OCAP2/pathrecorder/internal/codec"
	"github.com/OCAP2/pathrecorder/pkg/core"
)

// Option configures a Recorder.
type Option func(*config)

type config struct {
	terminalSentinel bool
	clock            func() time.Time
	logger           *slog.Logger
	onSave           func(dest string, p core.Path)
}

// WithTerminalSentinel appends a second origin point when the recorder is closed.
func WithTerminalSentinel(enabled bool) Option {
	return func(c *config) {
		c.terminalSentinel = enabled
	}
}

// WithClock sets the clock used to stamp sentinel and raw points.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithSaveHook registers a function called with the saved path after a successful save.
func WithSaveHook(fn func(dest string, p core.Path)) Option {
	return func(c *config) {
		c.onSave = fn
	}
}

// Recorder owns a path and is its only writer.
type Recorder struct {
	dest string
	cfg  config

	mu     sync.Mutex
	path   core.Path
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// New creates or truncates dest and returns a recorder whose path starts with an
// origin sentinel in frameID. The destination is touched immediately so a bad
// path fails here rather than at the end of a long session.
func New(dest, frameID string, opts ...Option) (*Recorder, error) {
	cfg := config{
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create %s: %w", core.ErrIO, dest, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w: failed to close %s: %w", core.ErrIO, dest, err)
	}

	r := &Recorder{
		dest: dest,
		cfg:  cfg,
		path: core.NewPath(frameID),
	}
	r.path.Poses = append(r.path.Poses, r.sentinel())

	return r, nil
}

// sentinel is the origin point in the recorder's frame.
func (r *Recorder) sentinel() core.PoseStamped {
	return core.PoseStamped{
		Header: core.Header{
			Stamp:   core.TimeFromStd(r.cfg.clock()),
			FrameID: r.path.Header.FrameID,
		},
		Pose: core.Pose{Orientation: core.IdentityQuaternion()},
	}
}

// Append records p. The header and position are kept as received; orientation is
// set to identity because inbound points carry none.
func (r *Recorder) Append(p core.PointStamped) error {
	ps := core.PoseStamped{
		Header: p.Header,
		Pose: core.Pose{
			Position:    p.Point,
			Orientation: core.IdentityQuaternion(),
		},
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return core.ErrRecorderClosed
	}
	r.path.Poses = append(r.path.Poses, ps)
	return nil
}

// AppendRaw records a planar point stamped now in the recorder's own frame.
func (r *Recorder) AppendRaw(x, y float64) error {
	return r.Append(core.PointStamped{
		Header: core.Header{
			Stamp:   core.TimeFromStd(r.cfg.clock()),
			FrameID: r.FrameID(),
		},
		Point: core.Point{X: x, Y: y},
	})
}

// Snapshot returns a copy of the path as of the last completed append.
func (r *Recorder) Snapshot() core.Path {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path.Clone()
}

// Len returns the number of recorded poses, sentinels included.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.path.Poses)
}

// FrameID returns the path-level frame.
func (r *Recorder) FrameID() string {
	// set once in New, never written again
	return r.path.Header.FrameID
}

// Destination returns the file the path is saved to.
func (r *Recorder) Destination() string {
	return r.dest
}

// Close stops accepting points and saves the path. Only the first call saves;
// later calls return the first call's result.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.finalize()
	})
	return r.closeErr
}

// MustClose is Close for deferred use. A failed final save has no caller left to
// handle it and no later chance to retry, so it panics.
func (r *Recorder) MustClose() {
	if err := r.Close(); err != nil {
		r.cfg.logger.Error("Failed to save path", "file", r.dest, "error", err)
		panic(fmt.Errorf("recorder: final save of %s failed: %w", r.dest, err))
	}
}

func (r *Recorder) finalize() error {
	r.mu.Lock()
	if r.cfg.terminalSentinel {
		r.path.Poses = append(r.path.Poses, r.sentinel())
	}
	r.closed = true
	snapshot := r.path.Clone()
	r.mu.Unlock()

	r.cfg.logger.Info("Saving to file", "file", r.dest, "poses", snapshot.Len())
	if err := codec.WriteFile(r.dest, snapshot); err != nil {
		return err
	}

	if r.cfg.onSave != nil {
		r.cfg.onSave(r.dest, snapshot)
	}
	return nil
}
