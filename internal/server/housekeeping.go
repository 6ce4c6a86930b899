// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"log/slog"
	"time"
)

// HousekeepingInterval is how often expired codes and denylist entries are pruned.
var HousekeepingInterval = 15 * time.Minute

func runHousekeeping(ctx context.Context, app *App, interval time.Duration) {
	prune(ctx, app)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune(ctx, app)
		}
	}
}

// prune removes expired one-time codes and revoked tokens that can no
// longer be presented.
func prune(ctx context.Context, app *App) {
	tokens, err := app.Tokens.Prune(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "prune_revoked_tokens_failed", "error", err)
	}
	codes, err := app.Codes.Prune(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "prune_codes_failed", "error", err)
	}
	if tokens > 0 || codes > 0 {
		slog.InfoContext(ctx, "housekeeping", "revoked_tokens", tokens, "codes", codes)
	}
}
