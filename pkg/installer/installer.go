// Package installer runs the install/upgrade hook: wire the agent's
// mosquitto overrides into the broker configuration, then make sure the
// agent's own state exists.
package installer

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/otelfleet/pkghooks/pkg/agentstate"
	"github.com/otelfleet/pkghooks/pkg/broker"
	"github.com/otelfleet/pkghooks/pkg/config"
	"github.com/otelfleet/pkghooks/pkg/logutil"
)

// InitFunc runs the agent's one-time initialization. It must be idempotent.
type InitFunc func(ctx context.Context) error

type Installer struct {
	Logger *slog.Logger
	Paths  config.Paths
	DryRun bool

	// Init defaults to agentstate.Initializer.Init.
	Init InitFunc
}

func New(logger *slog.Logger, paths config.Paths) *Installer {
	return &Installer{
		Logger: logger,
		Paths:  paths,
	}
}

// Result describes what a run did.
type Result struct {
	// OverrideInserted is true when the broker configuration was rewritten.
	OverrideInserted bool
}

// Run splices the override directive into the broker configuration and then
// runs agent initialization. A broker configuration failure aborts before
// initialization; the package manager re-runs the hook after the operator
// fixes the host.
func (i *Installer) Run(ctx context.Context) (Result, error) {
	l := i.Logger
	if l == nil {
		l = logutil.FromContext(ctx)
	}
	ctx = logutil.WithContext(ctx, l)

	overlay := &broker.Overlay{
		Logger:   logutil.Step(ctx, "broker-config"),
		Path:     i.Paths.BrokerConfigFile(),
		Override: i.Paths.OverrideDirective(),
		Anchor:   i.Paths.AnchorDirective(),
		DryRun:   i.DryRun,
	}
	inserted, err := overlay.Ensure(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{OverrideInserted: inserted}
	i.checkOverrideDir(l)

	if i.DryRun {
		i.reportState(ctx, l)
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	initFn := i.Init
	if initFn == nil {
		initFn = i.defaultInit(logutil.Step(ctx, "agent-init"))
	}
	if err := initFn(ctx); err != nil {
		return res, err
	}
	return res, nil
}

func (i *Installer) defaultInit(l *slog.Logger) InitFunc {
	return func(ctx context.Context) error {
		_, _, err := agentstate.NewInitializer(l, i.Paths).Init(ctx)
		return err
	}
}

// checkOverrideDir warns when the directory the broker is told to include
// is missing; mosquitto refuses to start on a missing include_dir.
func (i *Installer) checkOverrideDir(l *slog.Logger) {
	dir := i.Paths.OverrideDirPath()
	if _, err := os.Stat(dir); err != nil {
		l.With("dir", dir, "err", err).Warn("override directory is not present")
	}
}

func (i *Installer) reportState(ctx context.Context, l *slog.Logger) {
	rec, err := agentstate.Load(ctx, i.Paths)
	switch {
	case errors.Is(err, agentstate.ErrNotInitialized):
		l.Info("dry-run: agent state would be initialized")
	case err != nil:
		l.With("err", err).Warn("dry-run: agent state unreadable")
	default:
		l.With("device-id", rec.DeviceID, "instance-id", rec.InstanceID).Info("dry-run: agent state already initialized")
	}
}
