package app

import (
	"context"

	"github.com/OCAP2/pathrecorder/internal/cli"
	"github.com/OCAP2/pathrecorder/internal/config"
	"github.com/OCAP2/pathrecorder/internal/publisher"
	"github.com/OCAP2/pathrecorder/internal/server"
	"github.com/OCAP2/pathrecorder/internal/store"
)

// Serve runs path_server: the path loaded from opts.File is published at the
// configured rate and served over HTTP until ctx is done.
func Serve(ctx context.Context, opts cli.Options, env Env) error {
	rc := config.GetRecorderConfig()
	logger := env.logger()

	st, err := store.Load(opts.File)
	if err != nil {
		return err
	}
	logger.Info("Serving path", "file", opts.File, "poses", st.Len(), "frameId", st.FrameID(), "rate", rc.Rate)

	cat, err := openCatalog(env)
	if err != nil {
		return err
	}
	if cat != nil {
		defer cat.Close()
	}

	out := newOutbound(ctx, env, logger)
	defer out.close()

	pub, err := publisher.New(st, out.sinks, rc.Rate, logger)
	if err != nil {
		return err
	}

	sopts := server.Options{
		Source:  st,
		FrameID: st.FrameID(),
		Stream:  out.hub,
		Logger:  logger,
	}
	if cat != nil {
		sopts.Catalog = cat
	}
	return run(ctx, env, pub, sopts)
}
