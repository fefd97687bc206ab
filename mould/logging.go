// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

import (
	"context"
	"log/slog"
	"time"
)

// LoggingMiddleware builds a Middleware that logs the start, outcome, and
// duration of every dispatched task, adapted from the teacher SDK's
// logging-middleware example (examples/logging-middleware/main.go) to
// mould's task-shaped (not per-RPC-call) middleware granularity.
func LoggingMiddleware[S any](logger *slog.Logger) Middleware[S] {
	return func(service, action string, resumed bool, next TaskHandler[S]) TaskHandler[S] {
		return func(ctx context.Context) (TaskOutcome, error) {
			start := time.Now()
			logger.Info("task started", "service", service, "action", action, "resumed", resumed)

			outcome, err := next(ctx)

			duration := time.Since(start)
			if err != nil {
				logger.Error("task ended with a fatal error",
					"service", service, "action", action, "resumed", resumed,
					"duration_ms", duration.Milliseconds(), "error", err)
				return outcome, err
			}
			logger.Info("task completed",
				"service", service, "action", action, "resumed", resumed,
				"duration_ms", duration.Milliseconds(), "outcome", outcome)
			return outcome, nil
		}
	}
}
