package repository

import (
	"context"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
)

// InventoryRepository persists the per-product aggregate. Every method that
// changes stock also writes products.in_stock in the same statement.
type InventoryRepository interface {
	// Get returns the aggregate or a not-found error.
	Get(ctx context.Context, productID string) (*domain.Inventory, error)

	// GetOrCreate returns the aggregate, creating it with zero stock and
	// defaultThreshold when absent. Unknown products are not found.
	GetOrCreate(ctx context.Context, productID string, defaultThreshold int) (*domain.Inventory, error)

	// Lock is GetOrCreate followed by a row lock held until the surrounding
	// transaction ends.
	Lock(ctx context.Context, productID string, defaultThreshold int) (*domain.Inventory, error)

	// ApplyDelta adds delta to stock under policy in one conditional update.
	// A strict-policy refusal returns an insufficient-stock error.
	ApplyDelta(ctx context.Context, productID string, delta int, policy domain.StockPolicy) (*domain.Inventory, error)

	// SetAbsolute overwrites stock. Used by reconciliation.
	SetAbsolute(ctx context.Context, productID string, stock int) (*domain.Inventory, error)

	// SetThreshold overwrites the reorder point.
	SetThreshold(ctx context.Context, productID string, threshold int) (*domain.Inventory, error)

	// ListLowStock pages through aggregates with stock <= threshold.
	ListLowStock(ctx context.Context, page, perPage int) ([]domain.Inventory, int, error)
}

// VariantRepository persists per-variant stock.
type VariantRepository interface {
	GetByID(ctx context.Context, variantID string) (*domain.Variant, error)

	// Lock reads the variant's stock fields and holds a row lock.
	Lock(ctx context.Context, variantID string) (*domain.Variant, error)

	// ApplyDelta adds delta to stock_quantity under policy and derives
	// in_stock in the same statement.
	ApplyDelta(ctx context.Context, variantID string, delta int, policy domain.StockPolicy) (*domain.Variant, error)

	// ToggleAvailability flips in_stock without touching the quantity.
	ToggleAvailability(ctx context.Context, variantID string) (*domain.Variant, error)

	ListByProduct(ctx context.Context, productID string) ([]domain.Variant, error)

	// FindBySelection resolves the single variant of productID carrying every
	// selected attribute value. No match is not found; several matches are
	// invalid input.
	FindBySelection(ctx context.Context, productID string, selection domain.AttributeSelection) (*domain.Variant, error)

	CountByProduct(ctx context.Context, productID string) (int, error)

	// ListProductIDsWithVariants returns every product that has at least one
	// variant, ordered by id.
	ListProductIDsWithVariants(ctx context.Context) ([]string, error)

	// ListStockAlerts returns variants whose quantity is at or below the
	// owning product's threshold (defaultThreshold when the product has no
	// aggregate row), zero quantities included.
	ListStockAlerts(ctx context.Context, defaultThreshold int) ([]domain.VariantAlert, error)
}

// LedgerRepository is the append-only stock history.
type LedgerRepository interface {
	// Append inserts entry and fills its ID and CreatedAt.
	Append(ctx context.Context, entry *domain.LedgerEntry) error

	// ListByProduct returns up to limit entries, most recent first,
	// optionally restricted to one variant.
	ListByProduct(ctx context.Context, productID string, variantID *string, limit int) ([]domain.LedgerEntry, error)
}

// ProductRepository reads catalog products.
type ProductRepository interface {
	Get(ctx context.Context, productID string) (*domain.Product, error)
}

// OrderRepository persists orders and their items.
type OrderRepository interface {
	// Create inserts the order and its items. created is false when an order
	// with the same id already exists, in which case nothing is written.
	Create(ctx context.Context, order *domain.Order) (created bool, err error)

	GetByID(ctx context.Context, orderID string) (*domain.Order, error)
}

// Store groups the repositories over one connection or transaction.
type Store interface {
	Inventory() InventoryRepository
	Variants() VariantRepository
	Ledger() LedgerRepository
	Products() ProductRepository
	Orders() OrderRepository

	// WithinTx runs fn in a transaction, committing when fn returns nil.
	// Calling WithinTx on a transactional Store opens a savepoint.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
