package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mensajemagico/internal/domain"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCommand().ExecuteContext(ctx)
}

// errorLine formats a command error for stderr, tagged with its error code
// when it wraps a known sentinel.
func errorLine(err error) string {
	if code := domain.ErrorCodeOf(err); code != domain.CodeUnknown {
		return fmt.Sprintf("Error [%s]: %v", code, err)
	}
	return fmt.Sprintf("Error: %v", err)
}
