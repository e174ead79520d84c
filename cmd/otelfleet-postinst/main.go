// otelfleet-postinst is run by the package manager after the otelfleet
// package is installed or upgraded. It makes mosquitto load the agent's
// override directory ahead of conf.d and bootstraps the agent state.
//
// Positional arguments from the package manager are accepted and ignored;
// all paths come from the hook configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/otelfleet/pkghooks/pkg/hookcmd"
	"github.com/otelfleet/pkghooks/pkg/installer"
	"github.com/otelfleet/pkghooks/pkg/logutil"
	"github.com/otelfleet/pkghooks/pkg/util/contextutil"
)

const hookName = "postinst"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	var flags hookcmd.Flags
	var dryRun bool

	flagSet := pflag.NewFlagSet("otelfleet-postinst", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flags.AddFlags(flagSet)
	flagSet.BoolVar(&dryRun, "dry-run", false, "report whether the broker configuration would change, without writing anything")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet)
			return 0
		}
		return hookcmd.Exit(nil, hookcmd.Usagef("%s", err))
	}
	if flags.Help {
		printHelp(stdout, flagSet)
		return 0
	}
	if flags.Version {
		fmt.Fprintf(stdout, "otelfleet-postinst %s\n", hookcmd.Version)
		return 0
	}

	cfg, logger, err := hookcmd.Setup(hookName, flags.ConfigFile)
	if err != nil {
		return hookcmd.Exit(nil, err)
	}
	// dpkg passes "configure <old-version>"; the work is the same for every action
	if rest := flagSet.Args(); len(rest) > 0 {
		logger.With("args", rest).Debug("ignoring package manager arguments")
	}

	ctx, stop := contextutil.SetupSignals(context.Background())
	defer stop()
	ctx = logutil.WithContext(ctx, logger)

	inst := installer.New(logger, cfg.Paths)
	inst.DryRun = dryRun
	res, err := inst.Run(ctx)
	if err != nil {
		return hookcmd.Exit(logger, err)
	}
	logger.With("override-inserted", res.OverrideInserted, "dry-run", dryRun).Info("broker integration configured")
	return 0
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	hookcmd.PrintHelp(w, `otelfleet-postinst: configure mosquitto for the otelfleet agent.

Inserts "include_dir <override dir>" immediately before the broker's own
"include_dir <conf.d>" line (once), then initializes the agent identity
and configuration if they do not exist yet. Safe to run repeatedly.

Usage:
  otelfleet-postinst [flags] [action [version]]

Flags:
`, flagSet)
}
