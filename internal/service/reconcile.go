package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/internal/repository"
	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
)

// Reconcile re-derives a product's aggregate stock from its variants. A
// product without variants is reported but left untouched.
func (s *InventoryService) Reconcile(ctx context.Context, productID string) (*domain.ReconcileResult, error) {
	var (
		result    *domain.ReconcileResult
		threshold = s.defaultThreshold
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		n, err := tx.Variants().CountByProduct(ctx, productID)
		if err != nil {
			return err
		}
		if n == 0 {
			result, err = s.describeWithoutVariants(ctx, tx, productID)
			return err
		}

		inv, err := tx.Inventory().Lock(ctx, productID, s.defaultThreshold)
		if err != nil {
			return err
		}
		threshold = inv.StockThreshold
		result, err = s.reconcileLocked(ctx, tx, inv, 0)
		return err
	})
	if err != nil {
		reconciliations.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("reconcile %s: %w", productID, err)
	}

	if drift := result.Drift(); drift != 0 {
		reconciliations.WithLabelValues("corrected").Inc()
		s.logger.WarnContext(ctx, "aggregate stock drift corrected",
			slog.String("product_id", productID),
			slog.Int("previous", result.Previous),
			slog.Int("stock", result.Stock),
		)
		s.publishInventoryChange(ctx, &domain.Inventory{
			ProductID:      productID,
			Stock:          result.Stock,
			StockThreshold: threshold,
		}, drift, domain.ReasonReconciliation)
	} else {
		reconciliations.WithLabelValues("ok").Inc()
	}
	return result, nil
}

func (s *InventoryService) describeWithoutVariants(ctx context.Context, tx repository.Store, productID string) (*domain.ReconcileResult, error) {
	product, err := tx.Products().Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	result := &domain.ReconcileResult{ProductID: productID, InStock: product.InStock}
	inv, err := tx.Inventory().Get(ctx, productID)
	switch {
	case err == nil:
		result.Previous, result.Stock = inv.Stock, inv.Stock
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}
	return result, nil
}

// reconcileLocked sums the variants of inv's product and writes the total
// as the aggregate, which also rewrites products.in_stock. inv must already
// be locked by the caller. explained is the part of the drift already
// ledgered by the caller; any remainder is ledgered as a reconciliation.
func (s *InventoryService) reconcileLocked(ctx context.Context, tx repository.Store, inv *domain.Inventory, explained int) (*domain.ReconcileResult, error) {
	variants, err := tx.Variants().ListByProduct(ctx, inv.ProductID)
	if err != nil {
		return nil, err
	}

	result := &domain.ReconcileResult{
		ProductID:    inv.ProductID,
		VariantCount: len(variants),
		Previous:     inv.Stock,
		Stock:        inv.Stock,
		InStock:      inv.InStock(),
	}
	if len(variants) == 0 {
		return result, nil
	}

	updated, err := tx.Inventory().SetAbsolute(ctx, inv.ProductID, domain.SumVariantStock(variants))
	if err != nil {
		return nil, err
	}
	result.Stock = updated.Stock
	result.InStock = updated.InStock()

	if unexplained := result.Drift() - explained; unexplained != 0 {
		if err := tx.Ledger().Append(ctx, &domain.LedgerEntry{
			ProductID: inv.ProductID,
			Change:    unexplained,
			Reason:    domain.ReasonReconciliation,
		}); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// SyncAll reconciles every product that has variants, throttled by the
// configured rate. Per-product failures are collected and the sweep
// continues; only a failure to list products or a cancelled context stops
// it early.
func (s *InventoryService) SyncAll(ctx context.Context) (*domain.SyncReport, error) {
	report := &domain.SyncReport{StartedAt: time.Now().UTC()}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	ids, err := s.store.Variants().ListProductIDsWithVariants(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync all: %w", err)
	}
	report.Products = len(ids)

	for _, id := range ids {
		if err := s.syncLimiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("sync all: %w", err)
		}

		res, err := s.Reconcile(ctx, id)
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, domain.SyncFailure{ProductID: id, Error: errorMessage(err)})
			s.logger.ErrorContext(ctx, "reconciliation failed",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		report.Reconciled++
		if res.Drift() != 0 {
			report.Corrected++
		}
	}

	s.logger.InfoContext(ctx, "stock sync completed",
		slog.Int("products", report.Products),
		slog.Int("reconciled", report.Reconciled),
		slog.Int("corrected", report.Corrected),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}
