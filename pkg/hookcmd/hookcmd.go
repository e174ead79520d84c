// Package hookcmd holds the plumbing shared by the package lifecycle hook
// binaries: config loading, log setup and exit status reporting.
package hookcmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/otelfleet/pkghooks/pkg/config"
	"github.com/otelfleet/pkghooks/pkg/hookerr"
	"github.com/otelfleet/pkghooks/pkg/logutil"
)

// Version is stamped at build time with -ldflags "-X ...hookcmd.Version=...".
var Version = "dev"

// Flags are the options every hook accepts.
type Flags struct {
	ConfigFile string
	Help       bool
	Version    bool
}

func (f *Flags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.ConfigFile, "config", "", "hook configuration file (default "+config.DefaultFile+", or $"+config.EnvConfig+")")
	flagSet.BoolVarP(&f.Help, "help", "h", false, "show help")
	flagSet.BoolVar(&f.Version, "version", false, "print version and exit")
}

// Setup loads the hook configuration and applies its log level. The
// returned logger carries the hook name.
func Setup(hook, configFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	lvl, err := logutil.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logutil.SetLevel(lvl)
	return cfg, slog.Default().With("hook", hook), nil
}

// Exit logs err, if any, and returns the status the process should exit with.
func Exit(logger *slog.Logger, err error) int {
	if err == nil {
		return hookerr.ExitOK
	}
	if logger == nil {
		logger = slog.Default()
	}
	code := hookerr.ExitCode(err)
	logger.With("err", err, "exit-code", code).Error("lifecycle hook failed")
	return code
}

// Usagef builds an error that exits with the usage status.
func Usagef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", hookerr.ErrUsage, fmt.Sprintf(format, args...))
}

// PrintHelp writes text followed by the flag defaults.
func PrintHelp(w io.Writer, text string, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, text)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
