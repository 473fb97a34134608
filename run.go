package afmcp

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/viant/afmcp/config"
	"github.com/viant/afmcp/metrics"
)

// Version is reported as the MCP server implementation version.
const Version = "0.1.0"

// Run loads the configuration from args and the environment and serves until
// ctx is cancelled. A failed initial token request is fatal.
func Run(ctx context.Context, args []string) error {
	cfg, err := config.Load(ctx, args)
	if err != nil {
		return err
	}
	logger := NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)
	srv, err := New(ctx, cfg, WithLogger(logger), WithMetrics(metrics.New()))
	if err != nil {
		return err
	}
	if err = srv.Start(ctx); err != nil {
		srv.Close()
		return err
	}
	return srv.Serve(ctx)
}

// NewLogger creates the process logger described by cfg.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, options))
	}
	return slog.New(slog.NewTextHandler(w, options))
}
