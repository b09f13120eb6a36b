package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/internal/repository"
	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
)

// PlaceOrder persists the order and fulfills its line items in one
// transaction, each item behind its own savepoint. An item that cannot be
// fulfilled rolls back to its savepoint and is logged, counted and reported;
// the order stands. Anything that fails the transaction itself rolls back the
// order row too, so a redelivered order is fulfilled from scratch. An order
// that already exists was fulfilled by the transaction that created it and is
// reported as a duplicate.
func (s *InventoryService) PlaceOrder(ctx context.Context, order *domain.Order) (*domain.FulfillmentReport, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	if err := order.Validate(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	order.ComputeTotals()

	var (
		report  *domain.FulfillmentReport
		applied []fulfilledItem
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		report = &domain.FulfillmentReport{OrderID: order.ID, Items: []domain.FulfillmentItem{}}
		applied = applied[:0]

		created, err := tx.Orders().Create(ctx, order)
		if err != nil {
			return err
		}
		if !created {
			report.Duplicate = true
			return nil
		}

		for i := range order.Items {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, done := s.fulfillItem(ctx, tx, order.ID, &order.Items[i])
			report.Record(out)
			if done != nil {
				applied = append(applied, *done)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	if report.Duplicate {
		s.logger.InfoContext(ctx, "order already placed, skipping fulfillment",
			slog.String("order_id", order.ID),
		)
		return report, nil
	}

	fulfillmentItems.WithLabelValues("fulfilled").Add(float64(report.Fulfilled))
	fulfillmentItems.WithLabelValues("failed").Add(float64(report.Failed))
	stockAdjustments.WithLabelValues("order").Add(float64(len(applied)))
	reason := domain.OrderReason(order.ID)
	for _, f := range applied {
		if f.variant != nil {
			s.publishVariantChange(ctx, f.variant)
		}
		s.publishInventoryChange(ctx, f.inv, f.change, reason)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.Int("items", len(order.Items)),
		slog.Int("fulfilled", report.Fulfilled),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

// GetOrder returns a persisted order.
func (s *InventoryService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// fulfilledItem is a committed decrement waiting to be published.
type fulfilledItem struct {
	inv     *domain.Inventory
	variant *domain.Variant
	change  int
}

// fulfillItem decrements stock for one line item inside a savepoint of tx
// and converts any failure into a failed report entry.
func (s *InventoryService) fulfillItem(ctx context.Context, tx repository.Store, orderID string, item *domain.OrderItem) (domain.FulfillmentItem, *fulfilledItem) {
	out := domain.FulfillmentItem{
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Quantity:  item.Quantity,
	}
	reason := domain.OrderReason(orderID)

	var (
		inv     *domain.Inventory
		variant *domain.Variant
	)
	err := tx.WithinTx(ctx, func(ctx context.Context, sp repository.Store) error {
		var err error
		if item.HasVariantSelector() {
			variant, err = s.resolveVariant(ctx, sp, item)
			if err != nil {
				return err
			}
		}
		if variant == nil {
			inv, err = s.fulfillAggregate(ctx, sp, item.ProductID, item.Quantity, reason)
			return err
		}

		adj, err := s.applyVariantDelta(ctx, sp, variant, -item.Quantity, reason, true)
		if err != nil {
			return err
		}
		variant, inv = &adj.Variant, adj.Inventory
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "order item not fulfilled",
			slog.String("order_id", orderID),
			slog.String("product_id", item.ProductID),
			slog.Int("quantity", item.Quantity),
			slog.String("error", err.Error()),
		)
		out.Status = domain.ItemFailed
		out.Error = errorMessage(err)
		return out, nil
	}

	out.Status = domain.ItemFulfilled
	stock := inv.Stock
	out.Stock = &stock
	if variant != nil {
		id := variant.ID
		out.VariantID = &id
	}
	return out, &fulfilledItem{inv: inv, variant: variant, change: -item.Quantity}
}

// fulfillAggregate decrements the product aggregate. A missing row is
// created first, so an order for a product with no inventory leaves stock at
// max(0, -quantity). The ledger records the quantity sold.
func (s *InventoryService) fulfillAggregate(ctx context.Context, tx repository.Store, productID string, quantity int, reason string) (*domain.Inventory, error) {
	if _, err := tx.Inventory().Lock(ctx, productID, s.defaultThreshold); err != nil {
		return nil, err
	}
	inv, err := tx.Inventory().ApplyDelta(ctx, productID, -quantity, s.policy)
	if err != nil {
		return nil, err
	}
	if err := tx.Ledger().Append(ctx, &domain.LedgerEntry{
		ProductID: productID,
		Change:    -quantity,
		Reason:    reason,
	}); err != nil {
		return nil, err
	}
	return inv, nil
}

// resolveVariant finds the variant an item targets. It returns nil without
// error when the item names only attributes and the product has no variants,
// in which case the aggregate is decremented instead.
func (s *InventoryService) resolveVariant(ctx context.Context, tx repository.Store, item *domain.OrderItem) (*domain.Variant, error) {
	if _, err := tx.Products().Get(ctx, item.ProductID); err != nil {
		return nil, err
	}

	if item.VariantID != nil && strings.TrimSpace(*item.VariantID) != "" {
		v, err := tx.Variants().GetByID(ctx, *item.VariantID)
		if err != nil {
			return nil, err
		}
		if v.ProductID != item.ProductID {
			return nil, apperrors.InvalidInput(fmt.Sprintf("variant %s does not belong to product %s", v.ID, item.ProductID))
		}
		return v, nil
	}

	n, err := tx.Variants().CountByProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return tx.Variants().FindBySelection(ctx, item.ProductID, item.SelectedAttributes)
}
