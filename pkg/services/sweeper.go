package services

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper expires stale invitations every interval until ctx is done.
func RunSweeper(ctx context.Context, svc *BreakoutService, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := svc.SweepExpired(ctx); err != nil && ctx.Err() == nil {
				slog.Error("invitation sweep failed", "error", err)
			}
		}
	}
}
