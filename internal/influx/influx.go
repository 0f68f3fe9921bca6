// Package influx publishes path metrics to InfluxDB.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/OCAP2/pathrecorder/internal/config"
	"github.com/OCAP2/pathrecorder/internal/geo"
	"github.com/OCAP2/pathrecorder/pkg/core"
)

// Measurement is the InfluxDB measurement written for each publish.
const Measurement = "path"

// ErrUnavailable is returned when InfluxDB cannot be reached and no backup
// file was configured.
var ErrUnavailable = errors.New("influxdb unavailable")

// Sink writes one point per publish. When the server is unreachable at
// startup points go to a gzip line protocol backup file instead.
type Sink struct {
	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	mu         sync.Mutex
	backupFile *os.File
	backup     *gzip.Writer

	logger zerolog.Logger
	now    func() time.Time
}

// NewSink connects to InfluxDB using cfg.
func NewSink(ctx context.Context, cfg config.InfluxConfig, backupPath string, log zerolog.Logger) (*Sink, error) {
	s := &Sink{logger: log, now: time.Now}

	client := influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", cfg.Protocol, cfg.Host, cfg.Port),
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(100).
			SetFlushInterval(1000),
	)

	running, err := client.Ping(ctx)
	if err != nil || !running {
		client.Close()
		if backupPath == "" {
			if err == nil {
				err = errors.New("ping failed")
			}
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		log.Warn().Str("backupPath", backupPath).Msg("InfluxDB unreachable, writing to backup file")
		if err := s.openBackup(backupPath); err != nil {
			return nil, err
		}
		return s, nil
	}

	s.client = client
	s.writer = client.WriteAPI(cfg.Org, cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			log.Error().Err(writeErr).Str("bucket", cfg.Bucket).Msg("Error sending data to InfluxDB")
		}
	}(s.writer.Errors())

	log.Info().Str("bucket", cfg.Bucket).Msg("InfluxDB client initialized")
	return s, nil
}

func (s *Sink) openBackup(path string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: error creating backup file: %w", core.ErrIO, err)
	}
	s.backupFile = file
	s.backup = gzip.NewWriter(file)
	return nil
}

// PathPoint builds the point describing p at t.
func PathPoint(p core.Path, t time.Time) (*influxdb2_write.Point, error) {
	s, err := geo.Summarize(p)
	if err != nil {
		return nil, err
	}
	return influxdb2.NewPoint(
		Measurement,
		map[string]string{"frame_id": s.FrameID},
		map[string]any{
			"poses":  s.Poses,
			"length": s.Length,
		},
		t,
	), nil
}

// Publish implements the publisher sink. Writes to the server are
// asynchronous; their errors are logged, not returned.
func (s *Sink) Publish(_ context.Context, p core.Path) error {
	point, err := PathPoint(p, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		s.writer.WritePoint(point)
		return nil
	}
	if s.backup == nil {
		return fmt.Errorf("%w: sink closed", ErrUnavailable)
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := s.backup.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("%w: error writing to InfluxDB backup file: %w", core.ErrIO, err)
	}
	return nil
}

// Close flushes pending points and releases the connection or backup file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		s.writer.Flush()
		s.client.Close()
		s.writer = nil
		return nil
	}
	if s.backup == nil {
		return nil
	}
	err := errors.Join(s.backup.Close(), s.backupFile.Close())
	s.backup, s.backupFile = nil, nil
	return err
}
