// Package broker splices the agent's include_dir directive into the
// mosquitto root configuration.
//
// The broker configuration is treated as an ordered list of opaque lines.
// Only two lines matter: the agent override directive and the broker's own
// drop-in include (the anchor). Global settings such as per_listener_settings
// must be seen before any listener is defined, so the override has to be
// loaded before conf.d; mosquitto refuses to start otherwise.
package broker

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/otelfleet/pkghooks/pkg/hookerr"
)

// SplitLines splits data on '\n'. A trailing newline produces a final empty
// element so that JoinLines(SplitLines(b)) == b for any input.
func SplitLines(data []byte) []string {
	return strings.Split(string(data), "\n")
}

func JoinLines(lines []string) []byte {
	return []byte(strings.Join(lines, "\n"))
}

// IsDirective reports whether line is the directive, ignoring surrounding
// whitespace and a trailing slash on the directory. Commented-out
// directives never match.
func IsDirective(line, directive string) bool {
	return normalize(line) == normalize(directive)
}

func normalize(line string) string {
	return strings.TrimRight(strings.TrimSpace(line), "/")
}

func indexOfDirective(lines []string, directive string) int {
	_, idx, ok := lo.FindIndexOf(lines, func(line string) bool {
		return IsDirective(line, directive)
	})
	if !ok {
		return -1
	}
	return idx
}

// Splice returns lines with override inserted immediately before the first
// anchor line. changed is false when override is already present anywhere,
// in which case lines is returned as-is. A missing anchor is a precondition
// failure.
func Splice(lines []string, override, anchor string) (out []string, changed bool, err error) {
	if indexOfDirective(lines, override) >= 0 {
		return lines, false, nil
	}
	at := indexOfDirective(lines, anchor)
	if at < 0 {
		return nil, false, hookerr.Preconditionf("broker configuration has no %q line", anchor)
	}
	// the inserted line takes the anchor's line ending
	if strings.HasSuffix(lines[at], "\r") {
		override += "\r"
	}
	out = make([]string, 0, len(lines)+1)
	out = append(out, lines[:at]...)
	out = append(out, override)
	out = append(out, lines[at:]...)
	return out, true, nil
}

// Overlay ensures a broker configuration file carries the override directive.
type Overlay struct {
	Logger *slog.Logger

	// Path is the broker root configuration file.
	Path string
	// Override is the line to insert, Anchor the line it must precede.
	Override string
	Anchor   string

	// DryRun reports what would change without writing.
	DryRun bool

	// commit moves the staged file over Path. Tests replace it to simulate a
	// crash between staging and rename.
	commit func(staged, path string) error
}

// Ensure applies the override to the file. It returns true when the file was
// (or, in dry-run mode, would be) rewritten.
func (o *Overlay) Ensure(ctx context.Context) (bool, error) {
	l := o.Logger
	if l == nil {
		l = slog.Default()
	}
	l = l.With("file", o.Path)

	info, err := os.Stat(o.Path)
	if err != nil {
		return false, hookerr.IO("stat", o.Path, err)
	}
	data, err := os.ReadFile(o.Path)
	if err != nil {
		return false, hookerr.IO("read", o.Path, err)
	}

	lines, changed, err := Splice(SplitLines(data), o.Override, o.Anchor)
	if err != nil {
		return false, err
	}
	if !changed {
		l.With("directive", o.Override).Info("broker configuration already includes agent overrides")
		return false, nil
	}
	if o.DryRun {
		l.With("directive", o.Override).Info("dry-run: would insert agent override directive")
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	commit := o.commit
	if commit == nil {
		commit = replaceFile
	}
	if err := writeStaged(o.Path, JoinLines(lines), info.Mode().Perm(), commit); err != nil {
		return false, err
	}
	l.With("directive", o.Override, "before", o.Anchor).Info("inserted agent override directive")
	return true, nil
}

// writeStaged writes data to a temporary file next to path and then commits
// it over path. Readers of path observe either the old or the new contents.
func writeStaged(path string, data []byte, perm os.FileMode, commit func(staged, path string) error) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return hookerr.IO("create temp in", dir, err)
	}
	staged := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(staged)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return hookerr.IO("write", staged, err)
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return hookerr.IO("chmod", staged, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return hookerr.IO("sync", staged, err)
	}
	if err := f.Close(); err != nil {
		return hookerr.IO("close", staged, err)
	}
	if err := commit(staged, path); err != nil {
		return hookerr.IO("replace", path, err)
	}
	return nil
}
