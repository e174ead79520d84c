package contextutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

var ErrInterrupted = errors.New("lifecycle hook interrupted")

// SetupSignals returns a context cancelled with ErrInterrupted when the
// package manager (or an operator) signals the hook. The returned stop
// function releases the signal handler.
func SetupSignals(ctx context.Context) (context.Context, func()) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	ctxCa, ca := context.WithCancelCause(ctx)
	go func() {
		select {
		case s := <-sig:
			slog.With("signal", s.String()).Warn("interrupt received")
			ca(fmt.Errorf("signal %s: %w", s, ErrInterrupted))
		case <-ctxCa.Done():
		}
	}()
	return ctxCa, func() {
		signal.Stop(sig)
		ca(nil)
	}
}
