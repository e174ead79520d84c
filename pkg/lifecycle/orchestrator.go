// Package lifecycle runs the removal-time actions for each package manager
// lifecycle verb.
package lifecycle

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/otelfleet/pkghooks/pkg/config"
	"github.com/otelfleet/pkghooks/pkg/hookerr"
	"github.com/otelfleet/pkghooks/pkg/logutil"
)

type Orchestrator struct {
	Logger *slog.Logger
	Paths  config.Paths
}

func NewOrchestrator(logger *slog.Logger, paths config.Paths) *Orchestrator {
	return &Orchestrator{
		Logger: logger,
		Paths:  paths,
	}
}

// Run performs the cleanup for verb. Both purge steps are always attempted;
// their failures are joined.
func (o *Orchestrator) Run(ctx context.Context, verb Verb) error {
	l := o.Logger
	if l == nil {
		l = logutil.FromContext(ctx)
	}
	if _, err := ParseVerb(verb.String()); err != nil {
		return err
	}
	l = logutil.WithVerb(l, verb.String())

	if !verb.Purges() {
		l.Info("nothing to clean up")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var errs []error

	removed, err := PurgeArtifacts(o.Paths)
	if err != nil {
		l.With("err", err).Error("failed to remove generated operations")
		errs = append(errs, err)
	}
	for _, p := range removed {
		l.With("path", p).Info("removed generated operations")
	}

	removed, err = PurgeLocks(o.Paths)
	if err != nil {
		l.With("err", err).Error("failed to remove lock files")
		errs = append(errs, err)
	}
	for _, p := range removed {
		l.With("path", p).Info("removed lock file")
	}

	return errors.Join(errs...)
}

// PurgeArtifacts removes the generated operations directory and its
// contents. A missing directory is not an error.
func PurgeArtifacts(paths config.Paths) ([]string, error) {
	dir := paths.OperationsPath()
	if _, err := os.Lstat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, hookerr.IO("stat", dir, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, hookerr.IO("remove", dir, err)
	}
	return []string{dir}, nil
}

// PurgeLocks removes every known mapper lock file that exists. Every path is
// attempted even if an earlier removal fails.
func PurgeLocks(paths config.Paths) ([]string, error) {
	var (
		removed []string
		errs    []error
	)
	for _, p := range paths.LockPaths() {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed = append(removed, p)
		case errors.Is(err, fs.ErrNotExist):
		default:
			errs = append(errs, hookerr.IO("remove", p, err))
		}
	}
	return removed, errors.Join(errs...)
}
