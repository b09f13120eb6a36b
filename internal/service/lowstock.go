package service

import (
	"context"
	"fmt"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/pkg/pagination"
)

// GetLowStock reports products at or below their threshold (paged) and
// variants in the low and out-of-stock bands. A variant at zero is only ever
// reported as out of stock.
func (s *InventoryService) GetLowStock(ctx context.Context, page pagination.Params) (*domain.LowStockReport, error) {
	page = pagination.New(page.Page, page.PerPage)
	products, total, err := s.store.Inventory().ListLowStock(ctx, page.Page, page.PerPage)
	if err != nil {
		return nil, fmt.Errorf("list low stock products: %w", err)
	}

	candidates, err := s.store.Variants().ListStockAlerts(ctx, s.defaultThreshold)
	if err != nil {
		return nil, fmt.Errorf("list low stock variants: %w", err)
	}
	low, out := domain.SplitVariantAlerts(candidates)

	return &domain.LowStockReport{
		Products:           products,
		ProductsTotal:      total,
		Variants:           low,
		OutOfStockVariants: out,
	}, nil
}

// ProductIsLow reports whether a product's aggregate is at or below its
// threshold.
func (s *InventoryService) ProductIsLow(ctx context.Context, productID string) (bool, error) {
	inv, err := s.store.Inventory().Get(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("product is low: %w", err)
	}
	return inv.IsLow(), nil
}
