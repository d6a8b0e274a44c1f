package taskbackend

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Resolve picks the backend implementation for this invocation.
//
//   - inline: the null backend, no probing.
//   - external: the tracker CLI backend. If the probe fails the backend is
//     still returned; its calls soft-fail and the gate passes, so a flaky
//     tracker never blocks the caller.
//   - auto: probe the tracker and fall back to inline when absent.
//
// The probe result is never cached; every invocation resolves fresh.
func Resolve(ctx context.Context, cfg Config, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Kind {
	case KindInline, "":
		return NewInline(), nil

	case KindExternal:
		backend := NewExternal(cfg.Command, cfg.Timeout, logger)
		if !backend.IsAvailable(ctx) {
			logger.Warn("external task backend requested but tracker is not responding",
				zap.String("command", commandOrDefault(cfg.Command)),
			)
		}
		return backend, nil

	case KindAuto:
		backend := NewExternal(cfg.Command, cfg.Timeout, logger)
		if backend.IsAvailable(ctx) {
			logger.Debug("task tracker detected",
				zap.String("command", commandOrDefault(cfg.Command)),
			)
			return backend, nil
		}
		return NewInline(), nil

	default:
		return nil, fmt.Errorf("unknown task backend kind %q", cfg.Kind)
	}
}

func commandOrDefault(command string) string {
	if command == "" {
		return DefaultCommand
	}
	return command
}
