// otelfleet-postrm is run by the package manager after the otelfleet
// package is removed. The first positional argument is the lifecycle
// verb and any further ones are ignored; only "purge" deletes the agent's generated operations and mapper
// lock files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/otelfleet/pkghooks/pkg/hookcmd"
	"github.com/otelfleet/pkghooks/pkg/lifecycle"
	"github.com/otelfleet/pkghooks/pkg/logutil"
	"github.com/otelfleet/pkghooks/pkg/util/contextutil"
)

const hookName = "postrm"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	var flags hookcmd.Flags

	flagSet := pflag.NewFlagSet("otelfleet-postrm", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	// everything after the verb is an argument, never a flag
	flagSet.SetInterspersed(false)
	flags.AddFlags(flagSet)

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
		fmt.Fprintf(stdout, "otelfleet-postrm %s\n", hookcmd.Version)
		return 0
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		return hookcmd.Exit(nil, hookcmd.Usagef("missing lifecycle verb"))
	}
	verb, err := lifecycle.ParseVerb(rest[0])
	if err != nil {
		return hookcmd.Exit(nil, err)
	}

	cfg, logger, err := hookcmd.Setup(hookName, flags.ConfigFile)
	if err != nil {
		return hookcmd.Exit(nil, err)
	}
	// dpkg appends versions (and for disappear the overwriting package)
	if len(rest) > 1 {
		logger.With("args", rest[1:]).Debug("ignoring package manager arguments")
	}

	ctx, stop := contextutil.SetupSignals(context.Background())
	defer stop()
	ctx = logutil.WithContext(ctx, logger)

	if err := lifecycle.NewOrchestrator(logger, cfg.Paths).Run(ctx, verb); err != nil {
		return hookcmd.Exit(logutil.WithVerb(logger, verb.String()), err)
	}
	return 0
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	verbs := make([]string, 0, len(lifecycle.Verbs))
	for _, v := range lifecycle.Verbs {
		verbs = append(verbs, v.String())
	}
	hookcmd.PrintHelp(w, fmt.Sprintf(`otelfleet-postrm: clean up after the otelfleet package is removed.

"purge" deletes the generated operations directory and every mapper lock
file. All other verbs are accepted and change nothing.

Usage:
  otelfleet-postrm [flags] <verb> [args...]

Verbs:
  %s

Flags:
`, strings.Join(verbs, ", ")), flagSet)
}
