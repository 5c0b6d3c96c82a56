package internal

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Prefix creates a consistent log prefix for commands that operate on a directory.
func Prefix(dir string) string {
	return fmt.Sprintf(`"%s" - `, Truncate(filepath.Base(filepath.Clean(dir)), 30, "..."))
}

// Truncate shortens s to at most n runes, replacing the tail with suffix if s was too long.
func Truncate(s string, n int, suffix string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	if keep := n - len([]rune(suffix)); keep > 0 {
		return string(r[:keep]) + suffix
	}

	return string(r[:n])
}

type loggerKey struct{}

// WithPrefixLogger creates a new logger writing to stderr using the given prefix and attaches it to context.
func WithPrefixLogger(ctx context.Context, prefix string) context.Context {
	return WithLogger(ctx, log.New(os.Stderr, prefix, 0))
}

// WithLogger attaches the given logger to context.
func WithLogger(ctx context.Context, logger *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// MustLogger returns the logger attached to the given context.
func MustLogger(ctx context.Context) *log.Logger {
	return ctx.Value(loggerKey{}).(*log.Logger)
}

// ScanLogger returns the logger that receives scan warnings.
//
// Warnings are discarded when quiet is true, otherwise they go to the logger attached to context.
func ScanLogger(ctx context.Context, quiet bool) *log.Logger {
	if quiet {
		return log.New(io.Discard, "", 0)
	}

	return MustLogger(ctx)
}
