// Package observability wires structured logging and Prometheus
// metrics for the scoring service.
package observability

import (
	"log/slog"
	"os"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/config"
)

// SetupLogger configures a JSON slog logger with environment fields.
func SetupLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{}
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(h).With(
		slog.String("service", "visa-interview-evaluator"),
		slog.String("env", cfg.AppEnv),
	)
}
