package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/internal/repository"
	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
)

// EventPublisher emits inventory domain events after a mutation commits.
type EventPublisher interface {
	PublishInventoryUpdated(ctx context.Context, inv *domain.Inventory, change int, reason string) error
	PublishLowStock(ctx context.Context, inv *domain.Inventory) error
	PublishVariantUpdated(ctx context.Context, v *domain.Variant) error
}

type noopPublisher struct{}

func (noopPublisher) PublishInventoryUpdated(context.Context, *domain.Inventory, int, string) error {
	return nil
}
func (noopPublisher) PublishLowStock(context.Context, *domain.Inventory) error       { return nil }
func (noopPublisher) PublishVariantUpdated(context.Context, *domain.Variant) error { return nil }

// Options tune the service. Zero values select the defaults.
type Options struct {
	Policy           domain.StockPolicy
	DefaultThreshold int
	HistoryLimit     int
	// SyncRate caps products reconciled per second by SyncAll. Zero or
	// negative means unthrottled.
	SyncRate float64
}

// InventoryService owns every stock mutation: order fulfillment, admin and
// bulk adjustments, variant changes and reconciliation.
type InventoryService struct {
	store            repository.Store
	events           EventPublisher
	logger           *slog.Logger
	policy           domain.StockPolicy
	defaultThreshold int
	historyLimit     int
	syncLimiter      *rate.Limiter
}

// NewInventoryService creates the service. A nil publisher disables events.
func NewInventoryService(store repository.Store, events EventPublisher, logger *slog.Logger, opts Options) *InventoryService {
	if events == nil {
		events = noopPublisher{}
	}
	if opts.Policy == "" {
		opts.Policy = domain.PolicyClamp
	}
	if opts.DefaultThreshold <= 0 {
		opts.DefaultThreshold = domain.DefaultStockThreshold
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = domain.DefaultHistoryLimit
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.SyncRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.SyncRate), 1)
	}

	return &InventoryService{
		store:            store,
		events:           events,
		logger:           logger,
		policy:           opts.Policy,
		defaultThreshold: opts.DefaultThreshold,
		historyLimit:     opts.HistoryLimit,
		syncLimiter:      limiter,
	}
}

// Policy returns the configured stock policy.
func (s *InventoryService) Policy() domain.StockPolicy {
	return s.policy
}

// publishInventoryChange emits inventory.updated and, when the aggregate is
// at or below its threshold, inventory.low_stock. Failures are logged only:
// the mutation has already committed.
func (s *InventoryService) publishInventoryChange(ctx context.Context, inv *domain.Inventory, change int, reason string) {
	if err := s.events.PublishInventoryUpdated(ctx, inv, change, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish inventory.updated event",
			slog.String("product_id", inv.ProductID),
			slog.String("error", err.Error()),
		)
	}
	if !inv.IsLow() {
		return
	}
	lowStockAlerts.WithLabelValues("product").Inc()
	if err := s.events.PublishLowStock(ctx, inv); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish inventory.low_stock event",
			slog.String("product_id", inv.ProductID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *InventoryService) publishVariantChange(ctx context.Context, v *domain.Variant) {
	if err := s.events.PublishVariantUpdated(ctx, v); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish inventory.variant_updated event",
			slog.String("variant_id", v.ID),
			slog.String("error", err.Error()),
		)
	}
}

// errorCode extracts the machine-readable code from an AppError.
func errorCode(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL_ERROR"
}

// errorMessage returns a caller-safe description of err.
func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "an internal error occurred"
}
