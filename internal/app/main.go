package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/spf13/pflag"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/OCAP2/pathrecorder/internal/cli"
	"github.com/OCAP2/pathrecorder/internal/config"
	"github.com/OCAP2/pathrecorder/internal/logging"
	intotel "github.com/OCAP2/pathrecorder/internal/otel"
)

// Main runs the program named mode and returns its exit code.
func Main(mode string, args []string, stderr io.Writer) int {
	opts, err := cli.Parse(mode, args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", mode, err)
		return 1
	}

	if err := config.Load(opts.ConfigDir); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", mode, err)
		return 1
	}
	if err := opts.Apply(); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", mode, err)
		return 1
	}

	lp, err := setupLogging(mode, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", mode, err)
		return 1
	}
	defer lp.close()

	env := Env{
		Logger:   lp.logs.Logger(),
		ZeroOut:  stderr,
		LogLevel: config.GetString("logLevel"),
	}
	if lp.file != nil {
		env.ZeroOut = lp.file
	}
	for name, value := range opts.Remaps {
		env.Logger.Debug("Ignoring remap", "name", name, "value", value)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch mode {
	case cli.ModeServe:
		err = Serve(ctx, opts, env)
	default:
		err = Record(ctx, opts, env)
	}
	if err != nil {
		env.Logger.Error("Exiting", "error", err)
		fmt.Fprintf(stderr, "%s: %v\n", mode, err)
		return 1
	}
	return 0
}

// logPipeline is everything setupLogging opened.
type logPipeline struct {
	logs *logging.SlogManager
	file *os.File
	otel *intotel.Provider
}

// close shuts OTel down before the file it may be exporting to.
func (lp *logPipeline) close() {
	if lp.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := lp.otel.Shutdown(ctx); err != nil {
			lp.logs.Logger().Warn("Failed to flush OTel data", "error", err)
		}
		cancel()
	}
	_ = lp.logs.Close()
	if lp.file != nil {
		_ = lp.file.Close()
	}
}

func setupLogging(mode string, stderr io.Writer) (*logPipeline, error) {
	lp := &logPipeline{logs: logging.NewSlogManager()}
	if dir := config.GetString("logsDir"); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		f, err := os.OpenFile(logging.LogFilePath(dir, mode, time.Now()), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		lp.file = f
	}

	var graylog *gelf.Writer
	if gc := config.GetGraylogConfig(); gc.Enabled {
		w, err := logging.NewGraylogWriter(gc.Address, gc.Facility)
		if err != nil {
			// not fatal; carry on with local logs only
			fmt.Fprintf(stderr, "%s: graylog disabled: %v\n", mode, err)
		} else {
			graylog = w
		}
	}

	var provider *sdklog.LoggerProvider
	if oc := config.GetOTelConfig(); oc.Enabled {
		cfg := intotel.Config{
			Enabled:      true,
			ServiceName:  oc.ServiceName,
			BatchTimeout: oc.BatchTimeout,
			Endpoint:     oc.Endpoint,
			Insecure:     oc.Insecure,
		}
		if lp.file != nil {
			cfg.LogWriter = lp.file
		}
		p, err := intotel.New(context.Background(), cfg)
		if err != nil {
			fmt.Fprintf(stderr, "%s: otel disabled: %v\n", mode, err)
		} else {
			lp.otel = p
			provider = p.LoggerProvider()
		}
	}

	if lp.file != nil {
		lp.logs.Setup(lp.file, config.GetString("logLevel"), graylog, provider)
	} else {
		lp.logs.Setup(nil, config.GetString("logLevel"), graylog, provider)
	}
	return lp, nil
}
