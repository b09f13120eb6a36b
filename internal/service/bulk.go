package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/internal/repository"
	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
)

type bulkChange struct {
	inv     *domain.Inventory
	applied int
	reason  string
}

// BulkAdjust applies updates in one transaction with a savepoint per item.
// Business failures (validation, unknown product, refused decrement) roll
// back only that item's savepoint and are reported. Any other failure rolls
// back the whole batch and is returned as the error. Items are applied in
// product id order so concurrent batches lock rows in the same order; the
// report keeps request order.
func (s *InventoryService) BulkAdjust(ctx context.Context, updates []domain.StockUpdate) (*domain.BatchReport, error) {
	if len(updates) == 0 {
		return nil, apperrors.InvalidInput("at least one update is required")
	}
	if len(updates) > domain.MaxBatchSize {
		return nil, apperrors.InvalidInput(fmt.Sprintf("batch exceeds %d updates", domain.MaxBatchSize))
	}

	for i := range updates {
		updates[i].ProductID = strings.TrimSpace(updates[i].ProductID)
	}
	order := make([]int, len(updates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return updates[order[a]].ProductID < updates[order[b]].ProductID
	})

	var (
		results []domain.BatchItemResult
		changes []bulkChange
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		results = make([]domain.BatchItemResult, len(updates))
		changes = changes[:0]

		for _, i := range order {
			u := &updates[i]
			if err := u.Validate(); err != nil {
				results[i] = domain.BatchItemResult{
					ProductID: u.ProductID,
					ErrorCode: "INVALID_INPUT",
					Error:     err.Error(),
				}
				continue
			}

			var change bulkChange
			err := tx.WithinTx(ctx, func(ctx context.Context, sp repository.Store) error {
				var err error
				change, err = s.applyStockUpdate(ctx, sp, u)
				return err
			})
			if err != nil {
				if !apperrors.IsBusiness(err) {
					return err
				}
				results[i] = domain.BatchItemResult{
					ProductID: u.ProductID,
					ErrorCode: errorCode(err),
					Error:     errorMessage(err),
				}
				continue
			}

			results[i] = domain.BatchItemResult{ProductID: u.ProductID, Success: true, Inventory: change.inv}
			changes = append(changes, change)
		}
		return nil
	})
	if err != nil {
		bulkItems.WithLabelValues("aborted").Add(float64(len(updates)))
		s.logger.ErrorContext(ctx, "bulk adjustment rolled back",
			slog.Int("items", len(updates)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("bulk adjust: %w", err)
	}

	report := &domain.BatchReport{Results: make([]domain.BatchItemResult, 0, len(results))}
	for _, res := range results {
		report.Record(res)
	}

	bulkItems.WithLabelValues("succeeded").Add(float64(report.Succeeded))
	bulkItems.WithLabelValues("failed").Add(float64(report.Failed))
	stockAdjustments.WithLabelValues("bulk").Add(float64(len(changes)))
	for _, c := range changes {
		s.publishInventoryChange(ctx, c.inv, c.applied, c.reason)
	}

	s.logger.InfoContext(ctx, "bulk adjustment committed",
		slog.Int("total", report.Total),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

// applyStockUpdate resolves or creates the aggregate, applies the threshold
// and delta, and ledgers the applied change when it is non-zero. The delta
// is applied even when zero so products.in_stock is rewritten from the
// current stock.
func (s *InventoryService) applyStockUpdate(ctx context.Context, tx repository.Store, u *domain.StockUpdate) (bulkChange, error) {
	before, err := tx.Inventory().Lock(ctx, u.ProductID, s.defaultThreshold)
	if err != nil {
		return bulkChange{}, err
	}
	if u.StockThreshold != nil {
		if _, err := tx.Inventory().SetThreshold(ctx, u.ProductID, u.StockThreshold.Value); err != nil {
			return bulkChange{}, err
		}
	}

	after, err := tx.Inventory().ApplyDelta(ctx, u.ProductID, u.Change(), s.policy)
	if err != nil {
		return bulkChange{}, err
	}

	applied := after.Stock - before.Stock
	reason := u.LedgerReason()
	if applied != 0 {
		if err := tx.Ledger().Append(ctx, &domain.LedgerEntry{
			ProductID: u.ProductID,
			Change:    applied,
			Reason:    reason,
		}); err != nil {
			return bulkChange{}, err
		}
	}
	return bulkChange{inv: after, applied: applied, reason: reason}, nil
}
