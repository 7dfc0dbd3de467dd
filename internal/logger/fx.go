package logger

import (
	"context"

	"github.com/estatelane/estatelane/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the application logger and flushes it on shutdown.
var Module = fx.Module("logger",
	fx.Provide(func(cfg config.Config) (*zap.Logger, error) {
		return New(cfg.LogLevel)
	}),
	fx.Invoke(func(lc fx.Lifecycle, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				// Sync can fail on stderr; the process is exiting anyway.
				_ = log.Sync()
				return nil
			},
		})
	}),
)
