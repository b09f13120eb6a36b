package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/internal/repository"
	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
)

// GetInventory returns a product's aggregate. A product that exists but has
// no row yet reads as empty stock at the default threshold; nothing is
// written until its first stock mutation.
func (s *InventoryService) GetInventory(ctx context.Context, productID string) (*domain.Inventory, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	inv, err := s.store.Inventory().Get(ctx, productID)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	if _, err := s.store.Products().Get(ctx, productID); err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return &domain.Inventory{ProductID: productID, StockThreshold: s.defaultThreshold}, nil
}

// AdjustProductStock applies delta to a product's aggregate under the
// configured policy. The ledger records the change actually applied, so a
// clamped decrement is ledgered as the amount that left stock.
func (s *InventoryService) AdjustProductStock(ctx context.Context, productID string, delta int, reason string) (*domain.Inventory, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if delta == 0 {
		return nil, apperrors.InvalidInput("stock change must be non-zero")
	}
	if err := domain.ValidateStockChange(delta); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = domain.ReasonManualAdjustment
	}

	var (
		result  *domain.Inventory
		applied int
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		result, applied, err = s.applyProductDelta(ctx, tx, productID, delta, reason)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("adjust product stock: %w", err)
	}

	stockAdjustments.WithLabelValues("product").Inc()
	s.logger.InfoContext(ctx, "product stock adjusted",
		slog.String("product_id", productID),
		slog.Int("requested", delta),
		slog.Int("applied", applied),
		slog.Int("stock", result.Stock),
	)
	s.publishInventoryChange(ctx, result, applied, reason)
	return result, nil
}

// applyProductDelta locks the aggregate, applies delta and ledgers the
// applied change when it is non-zero. It must run inside a transaction.
func (s *InventoryService) applyProductDelta(ctx context.Context, tx repository.Store, productID string, delta int, reason string) (*domain.Inventory, int, error) {
	before, err := tx.Inventory().Lock(ctx, productID, s.defaultThreshold)
	if err != nil {
		return nil, 0, err
	}
	after, err := tx.Inventory().ApplyDelta(ctx, productID, delta, s.policy)
	if err != nil {
		return nil, 0, err
	}

	applied := after.Stock - before.Stock
	if applied != 0 {
		if err := tx.Ledger().Append(ctx, &domain.LedgerEntry{
			ProductID: productID,
			Change:    applied,
			Reason:    reason,
		}); err != nil {
			return nil, 0, err
		}
	}
	return after, applied, nil
}

// SetThreshold changes a product's reorder point.
func (s *InventoryService) SetThreshold(ctx context.Context, productID string, threshold int) (*domain.Inventory, error) {
	if err := domain.ValidateThreshold(threshold); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	var result *domain.Inventory
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Inventory().Lock(ctx, productID, s.defaultThreshold); err != nil {
			return err
		}
		var err error
		result, err = tx.Inventory().SetThreshold(ctx, productID, threshold)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("set threshold: %w", err)
	}

	if result.IsLow() {
		lowStockAlerts.WithLabelValues("product").Inc()
		if err := s.events.PublishLowStock(ctx, result); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish inventory.low_stock event",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}
	return result, nil
}

// GetStockHistory returns the newest ledger entries for a product,
// optionally narrowed to one variant. limit <= 0 selects the configured
// default.
func (s *InventoryService) GetStockHistory(ctx context.Context, productID string, variantID *string, limit int) ([]domain.LedgerEntry, error) {
	if _, err := s.store.Products().Get(ctx, productID); err != nil {
		return nil, fmt.Errorf("get stock history: %w", err)
	}
	if variantID != nil && strings.TrimSpace(*variantID) == "" {
		variantID = nil
	}

	entries, err := s.store.Ledger().ListByProduct(ctx, productID, variantID, domain.HistoryLimit(limit, s.historyLimit))
	if err != nil {
		return nil, fmt.Errorf("get stock history: %w", err)
	}
	return entries, nil
}
