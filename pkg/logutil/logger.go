package logutil

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	attrVerb = "verb"
)

const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarning = slog.LevelWarn
	LevelError   = slog.LevelError
)

const (
	colorRedIntense    = 9
	colorGreenIntense  = 10
	colorYellowIntense = 11
)

var level = new(slog.LevelVar)

// WithVerb tags every record emitted by the returned logger with the
// package manager lifecycle verb.
func WithVerb(logger *slog.Logger, verb string) *slog.Logger {
	return logger.With(attrVerb, verb)
}

// SetLevel changes the level of the default handler installed by this package.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// ParseLevel accepts trace, debug, info, warn/warning and error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func init() {
	// package manager hooks capture stderr into their own logs
	w := os.Stderr
	level.Set(LevelInfo)

	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == slog.LevelKey {
					level := attr.Value.Any().(slog.Level)
					switch {
					case level < LevelDebug:
						attr.Value = slog.StringValue("TRACE")
					}
				}

				if attr.Key == attrVerb {
					switch attr.Value.String() {
					case "purge":
						return tint.Attr(colorRedIntense, attr)
					case "remove", "upgrade", "disappear":
						return tint.Attr(colorGreenIntense, attr)
					default:
						return tint.Attr(colorYellowIntense, attr)
					}
				}
				return attr
			},
		}),
	))
}
