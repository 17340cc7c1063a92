package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// Config holds logger and Sentry integration settings.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	SentryDSN         string `env:"SENTRY_DSN"`
	SentryEnvironment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
}

// New creates a JSON logger writing to stdout. When a Sentry DSN is
// configured, warnings and errors are additionally forwarded to Sentry;
// an empty DSN or a failed Sentry init degrades to stdout-only logging.
func New(cfg Config) *slog.Logger {
	stdout := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	if cfg.SentryDSN == "" {
		return slog.New(stdout)
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		EnableLogs:  true,
	}); err != nil {
		log := slog.New(stdout)
		log.Error("failed to initialize sentry", slog.String("error", err.Error()))
		return log
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
	}.NewSentryHandler(context.Background())

	return slog.New(newMultiHandler(stdout, sentryHandler))
}

// NewNope creates a no-op logger that discards all output.
// Use as a default when logging is not configured (mostly in tests).
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
