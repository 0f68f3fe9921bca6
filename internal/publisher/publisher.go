// Package publisher periodically pushes a path snapshot to one or more sinks.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/pathrecorder/pkg/core"
)

// ErrInvalidRate is returned by New when the rate is not a positive finite number.
var ErrInvalidRate = errors.New("publish rate must be positive and finite")

// Source provides the path to publish. Implementations must be safe for
// concurrent use.
type Source interface {
	Snapshot() core.Path
}

// Sink receives published paths.
type Sink interface {
	Publish(ctx context.Context, p core.Path) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, p core.Path) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, p core.Path) error { return f(ctx, p) }

// MultiSink publishes to every sink in order and stops at the first error.
type MultiSink []Sink

// Publish implements Sink.
func (m MultiSink) Publish(ctx context.Context, p core.Path) error {
	for _, s := range m {
		if err := s.Publish(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Service runs the publish loop.
type Service struct {
	src    Source
	sink   Sink
	period time.Duration
	logger *slog.Logger

	ticks     atomic.Uint64
	mu        sync.RWMutex
	isRunning bool
}

// CheckRate reports whether rate can drive a publisher.
func CheckRate(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}
	return nil
}

// New creates a publisher that sends src to sink rate times per second.
func New(src Source, sink Sink, rate float64, logger *slog.Logger) (*Service, error) {
	if err := CheckRate(rate); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	period := time.Duration(float64(time.Second) / rate)
	if period <= 0 {
		period = time.Nanosecond
	}
	return &Service{
		src:    src,
		sink:   sink,
		period: period,
		logger: logger,
	}, nil
}

// Period returns the interval between publishes.
func (s *Service) Period() time.Duration { return s.period }

// Ticks returns the number of successful publishes so far.
func (s *Service) Ticks() uint64 { return s.ticks.Load() }

// IsRunning returns whether Run is active.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Run publishes immediately and then once per period until ctx is done.
// It returns nil on cancellation, or the first sink error wrapped in
// core.ErrTransport.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	s.logger.Debug("Starting publisher", "period", s.period)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := s.publishOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("Publish failed", "error", err)
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Service) publishOnce(ctx context.Context) error {
	p := s.src.Snapshot()
	if err := s.sink.Publish(ctx, p); err != nil {
		if errors.Is(err, core.ErrTransport) {
			return err
		}
		return fmt.Errorf("%w: %w", core.ErrTransport, err)
	}
	s.ticks.Add(1)
	return nil
}
