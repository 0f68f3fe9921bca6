// Package cli parses the command lines of path_saver and path_server.
//
//	path_saver  [flags] <output-file>  [~rate:=N] [_frame_id:=F]
//	path_server [flags] <input-file>   [~rate:=N]
//
// Arguments of the form name:=value are remappings in the ROS style and are
// removed before positional arguments are counted. Private ones (prefixed
// with ~ or _) set parameters; the rest are accepted and ignored.
package cli

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/OCAP2/pathrecorder/internal/config"
	"github.com/OCAP2/pathrecorder/pkg/core"
)

// Program names.
const (
	ModeSave  = "path_saver"
	ModeServe = "path_server"
)

// ErrInvalidRate is returned for a rate that is not a positive finite number.
var ErrInvalidRate = errors.New("rate must be a positive number")

// ErrUnknownParameter is returned for a private remap naming no parameter.
var ErrUnknownParameter = errors.New("unknown parameter")

// paramKeys maps private remap names to config keys.
var paramKeys = map[string]string{
	"rate":     "rate",
	"frame_id": "frameId",
	"listen":   "server.listen",
}

// Options is the parsed command line.
type Options struct {
	Mode      string
	File      string
	ConfigDir string

	// Params holds private remaps keyed by config key, already typed.
	Params map[string]any
	// Remaps holds public name:=value remaps, which have no effect.
	Remaps map[string]string

	flags *pflag.FlagSet
}

// Parse reads args (without the program name). Exactly one positional
// argument is accepted; any other count yields *core.InvalidArgumentsError.
// Parse does no I/O.
func Parse(mode string, args []string, stderr io.Writer) (Options, error) {
	fs := pflag.NewFlagSet(mode, pflag.ContinueOnError)
	if stderr != nil {
		fs.SetOutput(stderr)
	} else {
		fs.SetOutput(io.Discard)
	}
	fs.Usage = func() {
		what := "output-file"
		if mode == ModeServe {
			what = "input-file"
		}
		fmt.Fprintf(fs.Output(), "usage: %s [flags] <%s> [~rate:=N]\n", mode, what)
		fs.PrintDefaults()
	}

	rate := fs.Float64("rate", 6.0, "publish rate in Hz")
	fs.String("frame-id", "map", "frame id of recorded poses")
	fs.String("listen", ":8080", "HTTP listen address")
	configDir := fs.String("config-dir", ".", "directory containing "+config.FileName)

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	if fs.Changed("rate") {
		if err := checkRate(*rate); err != nil {
			return Options{}, err
		}
	}

	opts := Options{
		Mode:      mode,
		ConfigDir: *configDir,
		Params:    map[string]any{},
		Remaps:    map[string]string{},
		flags:     fs,
	}

	var positional []string
	for _, arg := range fs.Args() {
		name, value, ok := strings.Cut(arg, ":=")
		if !ok {
			positional = append(positional, arg)
			continue
		}
		if private, found := strings.CutPrefix(name, "~"); found {
			if err := opts.setParam(private, value); err != nil {
				return Options{}, err
			}
			continue
		}
		if private, found := strings.CutPrefix(name, "_"); found {
			if err := opts.setParam(private, value); err != nil {
				return Options{}, err
			}
			continue
		}
		opts.Remaps[name] = value
	}

	if len(positional) != 1 {
		return Options{}, &core.InvalidArgumentsError{Count: len(positional)}
	}
	opts.File = positional[0]
	return opts, nil
}

func (o *Options) setParam(name, value string) error {
	key, ok := paramKeys[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	if key == "rate" {
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidRate, value)
		}
		if err := checkRate(rate); err != nil {
			return err
		}
		o.Params[key] = rate
		return nil
	}
	o.Params[key] = value
	return nil
}

func checkRate(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}
	return nil
}

// Apply layers flags and private remaps over the loaded configuration.
// Remaps win over flags. The resulting rate must be valid whatever its source.
func (o Options) Apply() error {
	if o.flags != nil {
		if err := config.BindFlags(o.flags); err != nil {
			return err
		}
	}
	for key, value := range o.Params {
		config.Set(key, value)
	}
	return checkRate(config.GetFloat("rate"))
}
