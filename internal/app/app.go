// Package app wires the recorder and server processes together.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/OCAP2/pathrecorder/internal/catalog"
	"github.com/OCAP2/pathrecorder/internal/config"
	"github.com/OCAP2/pathrecorder/internal/influx"
	"github.com/OCAP2/pathrecorder/internal/logging"
	"github.com/OCAP2/pathrecorder/internal/publisher"
	"github.com/OCAP2/pathrecorder/internal/server"
	"github.com/OCAP2/pathrecorder/internal/stream"
)

// Env carries the process-wide collaborators built by main.
type Env struct {
	// Logger is the slog logger set up from config.
	Logger *slog.Logger
	// ZeroOut receives the zerolog output of component managers.
	ZeroOut io.Writer
	// LogLevel applies to the zerolog loggers.
	LogLevel string
	// Ready, when set, receives the HTTP address once the server listens.
	Ready func(addr string)
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e Env) zerolog(component string) zerolog.Logger {
	if e.ZeroOut == nil {
		return zerolog.Nop()
	}
	return logging.NewZerolog(e.ZeroOut, e.LogLevel, component)
}

// outbound holds the sinks shared by both modes.
type outbound struct {
	hub     *stream.Hub
	sinks   publisher.MultiSink
	closers []func() error
}

func (o *outbound) close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		_ = o.closers[i]()
	}
}

func newOutbound(ctx context.Context, env Env, logger *slog.Logger) *outbound {
	hub := stream.NewHub(logger)
	o := &outbound{hub: hub, sinks: publisher.MultiSink{hub}}
	o.closers = append(o.closers, hub.Close)

	ic := config.GetInfluxConfig()
	if ic.Enabled {
		sink, err := influx.NewSink(ctx, ic, ic.BackupPath, env.zerolog("influx"))
		if err != nil {
			logger.Warn("InfluxDB sink disabled", "error", err)
		} else {
			o.sinks = append(o.sinks, sink)
			o.closers = append(o.closers, sink.Close)
		}
	}
	return o
}

func openCatalog(env Env) (*catalog.Catalog, error) {
	cc := config.GetCatalogConfig()
	if !cc.Enabled {
		return nil, nil
	}
	cat, err := catalog.Open(cc, env.zerolog("catalog"))
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// run drives the publisher and, if enabled, the HTTP server until ctx is
// done or one of them fails.
func run(ctx context.Context, env Env, pub *publisher.Service, opts server.Options) error {
	var srv *server.Server
	if sc := config.GetServerConfig(); sc.Enabled {
		var err error
		srv, err = server.Listen(sc.Listen, server.NewRouter(opts), opts.Logger)
		if err != nil {
			return err
		}
		if env.Ready != nil {
			env.Ready(srv.Addr())
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pub.Run(ctx)
	})
	if srv != nil {
		g.Go(func() error {
			return srv.Serve(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("publishing stopped: %w", err)
	}
	return nil
}
