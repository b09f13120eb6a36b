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

// AdjustVariantStock applies delta to one variant, ledgers the applied
// change against the variant and re-derives the product aggregate in the
// same transaction.
func (s *InventoryService) AdjustVariantStock(ctx context.Context, variantID string, delta int, reason string) (*domain.VariantAdjustment, error) {
	if strings.TrimSpace(variantID) == "" {
		return nil, apperrors.InvalidInput("variant_id is required")
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

	var result *domain.VariantAdjustment
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		v, err := tx.Variants().GetByID(ctx, variantID)
		if err != nil {
			return err
		}
		result, err = s.applyVariantDelta(ctx, tx, v, delta, reason, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("adjust variant stock: %w", err)
	}

	stockAdjustments.WithLabelValues("variant").Inc()
	s.logger.InfoContext(ctx, "variant stock adjusted",
		slog.String("variant_id", variantID),
		slog.String("product_id", result.Variant.ProductID),
		slog.Int("requested", delta),
		slog.Int("applied", result.Applied),
		slog.Int("stock_quantity", result.Variant.StockQuantity),
	)
	s.publishVariantChange(ctx, &result.Variant)
	if result.Inventory != nil {
		s.publishInventoryChange(ctx, result.Inventory, result.Applied, reason)
	}
	return result, nil
}

// applyVariantDelta locks the parent aggregate then the variant, applies
// delta, ledgers it and reconciles the aggregate. ledgerRequested selects
// the requested delta for the ledger instead of the applied one. The
// aggregate is always locked first so variant adjustments and
// reconciliations cannot deadlock each other.
func (s *InventoryService) applyVariantDelta(ctx context.Context, tx repository.Store, v *domain.Variant, delta int, reason string, ledgerRequested bool) (*domain.VariantAdjustment, error) {
	inv, err := tx.Inventory().Lock(ctx, v.ProductID, s.defaultThreshold)
	if err != nil {
		return nil, err
	}
	before, err := tx.Variants().Lock(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	after, err := tx.Variants().ApplyDelta(ctx, v.ID, delta, s.policy)
	if err != nil {
		return nil, err
	}
	applied := after.StockQuantity - before.StockQuantity
	after.Attributes = v.Attributes

	ledgerChange := applied
	if ledgerRequested {
		ledgerChange = delta
	}
	if ledgerChange != 0 {
		variantID := v.ID
		if err := tx.Ledger().Append(ctx, &domain.LedgerEntry{
			ProductID: v.ProductID,
			VariantID: &variantID,
			Change:    ledgerChange,
			Reason:    reason,
		}); err != nil {
			return nil, err
		}
	}

	res, err := s.reconcileLocked(ctx, tx, inv, applied)
	if err != nil {
		return nil, err
	}

	return &domain.VariantAdjustment{
		Variant:   *after,
		Requested: delta,
		Applied:   applied,
		Inventory: &domain.Inventory{
			ProductID:      inv.ProductID,
			Stock:          res.Stock,
			StockThreshold: inv.StockThreshold,
			UpdatedAt:      inv.UpdatedAt,
		},
	}, nil
}

// ToggleAvailability flips a variant's in_stock flag without touching its
// quantity. No ledger entry is written.
func (s *InventoryService) ToggleAvailability(ctx context.Context, variantID string) (*domain.Variant, error) {
	if strings.TrimSpace(variantID) == "" {
		return nil, apperrors.InvalidInput("variant_id is required")
	}
	v, err := s.store.Variants().ToggleAvailability(ctx, variantID)
	if err != nil {
		return nil, fmt.Errorf("toggle availability: %w", err)
	}

	s.logger.InfoContext(ctx, "variant availability toggled",
		slog.String("variant_id", v.ID),
		slog.Bool("in_stock", v.InStock),
	)
	s.publishVariantChange(ctx, v)
	return v, nil
}

// IsAvailable resolves the variant matching every selected attribute and
// reports whether it can be sold. No match is not an error: the product is
// simply unavailable in that combination.
func (s *InventoryService) IsAvailable(ctx context.Context, productID string, selection domain.AttributeSelection) (bool, *domain.Variant, error) {
	if err := selection.Validate(); err != nil {
		return false, nil, apperrors.InvalidInput(err.Error())
	}
	v, err := s.store.Variants().FindBySelection(ctx, productID, selection)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("check availability: %w", err)
	}
	return v.Available(), v, nil
}
