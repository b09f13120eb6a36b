package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
)

// Syncer is the service surface the reconciliation job drives.
type Syncer interface {
	SyncAll(ctx context.Context) (*domain.SyncReport, error)
}

// RunReconciliation calls SyncAll every interval until ctx is canceled.
// It repairs aggregate drift left behind by soft-failed order items.
func RunReconciliation(ctx context.Context, s Syncer, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("reconciliation job started", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := s.SyncAll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("reconciliation run failed", slog.String("error", err.Error()))
				continue
			}
			if report.Corrected > 0 || report.Failed > 0 {
				logger.Info("reconciliation run corrected drift",
					slog.Int("products", report.Products),
					slog.Int("corrected", report.Corrected),
					slog.Int("failed", report.Failed),
				)
			}
		}
	}
}
