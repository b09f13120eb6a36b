package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/pkg/database"
	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
)

const inventoryColumns = `product_id, stock, stock_threshold, updated_at`

// stockUpdateQuery updates inventory and mirrors the new stock into
// products.in_stock in the same statement, so the flag can never disagree
// with the committed stock.
func stockUpdateQuery(set, where string) string {
	return fmt.Sprintf(`
		WITH updated AS (
			UPDATE inventory SET %s, updated_at = NOW()
			WHERE %s
			RETURNING %s
		), flagged AS (
			UPDATE products p SET in_stock = u.stock > 0, updated_at = NOW()
			FROM updated u WHERE p.id = u.product_id
		)
		SELECT %s FROM updated`, set, where, inventoryColumns, inventoryColumns)
}

var (
	clampDeltaQuery  = stockUpdateQuery("stock = GREATEST(stock + $2, 0)", "product_id = $1")
	strictDeltaQuery = stockUpdateQuery("stock = stock + $2", "product_id = $1 AND stock + $2 >= 0")
	setAbsoluteQuery = stockUpdateQuery("stock = $2", "product_id = $1")
)

// InventoryRepository implements repository.InventoryRepository.
type InventoryRepository struct {
	db database.DBTX
}

// NewInventoryRepository creates a PostgreSQL-backed inventory repository.
func NewInventoryRepository(db database.DBTX) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func scanInventory(row pgx.Row) (*domain.Inventory, error) {
	var inv domain.Inventory
	if err := row.Scan(&inv.ProductID, &inv.Stock, &inv.StockThreshold, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Get returns the aggregate for productID.
func (r *InventoryRepository) Get(ctx context.Context, productID string) (inv *domain.Inventory, err error) {
	if !isUUID(productID) {
		return nil, apperrors.NotFound("inventory", productID)
	}
	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE product_id = $1`

	ctx, end := database.TraceQuery(ctx, "inventory.Get", query)
	defer func() { end(err) }()

	inv, err = scanInventory(r.db.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("inventory", productID)
		}
		return nil, apperrors.Persistence("get inventory", err)
	}
	return inv, nil
}

// GetOrCreate returns the aggregate, creating it when absent.
func (r *InventoryRepository) GetOrCreate(ctx context.Context, productID string, defaultThreshold int) (*domain.Inventory, error) {
	return r.ensure(ctx, productID, defaultThreshold, false)
}

// Lock returns the aggregate with a row lock, creating it when absent.
func (r *InventoryRepository) Lock(ctx context.Context, productID string, defaultThreshold int) (*domain.Inventory, error) {
	return r.ensure(ctx, productID, defaultThreshold, true)
}

func (r *InventoryRepository) ensure(ctx context.Context, productID string, defaultThreshold int, forUpdate bool) (inv *domain.Inventory, err error) {
	if !isUUID(productID) {
		return nil, apperrors.NotFound("product", productID)
	}

	insert := `
		INSERT INTO inventory (product_id, stock, stock_threshold)
		SELECT id, 0, $2 FROM products WHERE id = $1
		ON CONFLICT (product_id) DO NOTHING`
	ctx, end := database.TraceQuery(ctx, "inventory.Ensure", insert)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, insert, productID, defaultThreshold); err != nil {
		return nil, apperrors.Persistence("create inventory", err)
	}

	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE product_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	inv, err = scanInventory(r.db.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The insert found no product row.
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, apperrors.Persistence("lock inventory", err)
	}
	return inv, nil
}

// ApplyDelta adds delta to the aggregate under policy.
func (r *InventoryRepository) ApplyDelta(ctx context.Context, productID string, delta int, policy domain.StockPolicy) (inv *domain.Inventory, err error) {
	if !isUUID(productID) {
		return nil, apperrors.NotFound("inventory", productID)
	}
	query := clampDeltaQuery
	if policy == domain.PolicyStrict {
		query = strictDeltaQuery
	}

	ctx, end := database.TraceQuery(ctx, "inventory.ApplyDelta", query)
	defer func() { end(err) }()

	inv, err = scanInventory(r.db.QueryRow(ctx, query, productID, delta))
	if err == nil {
		return inv, nil
	}
	if database.IsNumericOutOfRange(err) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("stock change %d overflows stock of product %s", delta, productID))
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Persistence("apply inventory delta", err)
	}
	if policy != domain.PolicyStrict {
		return nil, apperrors.NotFound("inventory", productID)
	}

	// Strict policy: tell a refused decrement apart from a missing row.
	if _, getErr := r.Get(ctx, productID); getErr != nil {
		return nil, getErr
	}
	return nil, apperrors.InsufficientStock("inventory", productID, delta)
}

// SetAbsolute overwrites the aggregate's stock.
func (r *InventoryRepository) SetAbsolute(ctx context.Context, productID string, stock int) (inv *domain.Inventory, err error) {
	if stock < 0 || stock > math.MaxInt32 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("stock must be between 0 and %d, got %d", math.MaxInt32, stock))
	}
	if !isUUID(productID) {
		return nil, apperrors.NotFound("inventory", productID)
	}

	ctx, end := database.TraceQuery(ctx, "inventory.SetAbsolute", setAbsoluteQuery)
	defer func() { end(err) }()

	inv, err = scanInventory(r.db.QueryRow(ctx, setAbsoluteQuery, productID, stock))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("inventory", productID)
		}
		return nil, apperrors.Persistence("set inventory stock", err)
	}
	return inv, nil
}

// SetThreshold overwrites the reorder point.
func (r *InventoryRepository) SetThreshold(ctx context.Context, productID string, threshold int) (inv *domain.Inventory, err error) {
	if err := domain.ValidateThreshold(threshold); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	if !isUUID(productID) {
		return nil, apperrors.NotFound("inventory", productID)
	}
	query := `
		UPDATE inventory SET stock_threshold = $2, updated_at = NOW()
		WHERE product_id = $1
		RETURNING ` + inventoryColumns

	ctx, end := database.TraceQuery(ctx, "inventory.SetThreshold", query)
	defer func() { end(err) }()

	inv, err = scanInventory(r.db.QueryRow(ctx, query, productID, threshold))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("inventory", productID)
		}
		return nil, apperrors.Persistence("set inventory threshold", err)
	}
	return inv, nil
}

// ListLowStock pages through aggregates at or below their threshold, lowest
// stock first.
func (r *InventoryRepository) ListLowStock(ctx context.Context, page, perPage int) (items []domain.Inventory, total int, err error) {
	countQuery := `SELECT COUNT(*) FROM inventory WHERE stock <= stock_threshold`
	ctx, end := database.TraceQuery(ctx, "inventory.ListLowStock", countQuery)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, apperrors.Persistence("count low stock", err)
	}

	query := `
		SELECT ` + inventoryColumns + `
		FROM inventory
		WHERE stock <= stock_threshold
		ORDER BY stock ASC, product_id ASC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, apperrors.Persistence("list low stock", err)
	}
	defer rows.Close()

	items = []domain.Inventory{}
	for rows.Next() {
		inv, scanErr := scanInventory(rows)
		if scanErr != nil {
			return nil, 0, apperrors.Persistence("scan low stock", scanErr)
		}
		items = append(items, *inv)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, apperrors.Persistence("iterate low stock", err)
	}
	return items, total, nil
}
