package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/OCAP2/pathrecorder/internal/cli"
	"github.com/OCAP2/pathrecorder/internal/config"
	"github.com/OCAP2/pathrecorder/internal/dispatcher"
	"github.com/OCAP2/pathrecorder/internal/logging"
	"github.com/OCAP2/pathrecorder/internal/publisher"
	"github.com/OCAP2/pathrecorder/internal/recorder"
	"github.com/OCAP2/pathrecorder/internal/server"
	"github.com/OCAP2/pathrecorder/pkg/core"
)

// Record runs path_saver: points received over HTTP are appended to a
// recorder whose path is published periodically and written to opts.File
// when ctx is done. A failed final write panics.
func Record(ctx context.Context, opts cli.Options, env Env) error {
	rc := config.GetRecorderConfig()
	base := env.logger()

	// checked before the recorder truncates opts.File
	if err := publisher.CheckRate(rc.Rate); err != nil {
		return err
	}

	cat, err := openCatalog(env)
	if err != nil {
		return err
	}
	if cat != nil {
		defer cat.Close()
	}

	recOpts := []recorder.Option{
		recorder.WithTerminalSentinel(rc.TerminalSentinel),
		recorder.WithLogger(base),
	}
	if cat != nil {
		recOpts = append(recOpts, recorder.WithSaveHook(cat.SaveHook(context.WithoutCancel(ctx))))
	}

	rec, err := recorder.New(opts.File, rc.FrameID, recOpts...)
	if err != nil {
		return err
	}
	defer rec.MustClose()

	logger := slog.New(logging.NewContextHandler(base.Handler(), logging.PoseCount(rec.Len)))
	logger.Info("Recording path", "file", opts.File, "frameId", rc.FrameID, "rate", rc.Rate)

	d, err := dispatcher.New(logging.NewDispatcherLogger(env.zerolog("dispatcher")))
	if err != nil {
		return err
	}
	// runs before MustClose so every accepted point is saved
	defer d.Close()
	registerRecorder(d, rec, rc.BufferSize)

	out := newOutbound(ctx, env, logger)
	defer out.close()

	pub, err := publisher.New(rec, out.sinks, rc.Rate, logger)
	if err != nil {
		return err
	}

	sopts := server.Options{
		Source:     rec,
		FrameID:    rc.FrameID,
		Dispatcher: d,
		Stream:     out.hub,
		Logger:     logger,
	}
	if cat != nil {
		sopts.Catalog = cat
	}
	return run(ctx, env, pub, sopts)
}

// registerRecorder routes every inbound topic into rec through one queue per
// topic, so points on a topic are appended in arrival order.
func registerRecorder(d *dispatcher.Dispatcher, rec *recorder.Recorder, bufferSize int) {
	if bufferSize <= 0 {
		bufferSize = 1
	}

	appendStamped := func(e dispatcher.Event) (any, error) {
		p, ok := e.Payload.(core.PointStamped)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected payload %T on %s", core.ErrTransport, e.Payload, e.Topic)
		}
		return nil, rec.Append(p)
	}

	d.Register(dispatcher.TopicPoint, appendStamped, dispatcher.Buffered(bufferSize))
	d.Register(dispatcher.TopicFix, appendStamped, dispatcher.Buffered(bufferSize))
	d.Register(dispatcher.TopicPointRaw, func(e dispatcher.Event) (any, error) {
		p, ok := e.Payload.(dispatcher.RawPoint)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected payload %T on %s", core.ErrTransport, e.Payload, e.Topic)
		}
		return nil, rec.AppendRaw(p.X, p.Y)
	}, dispatcher.Buffered(bufferSize))
}
