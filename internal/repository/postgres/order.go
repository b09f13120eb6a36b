package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/pkg/database"
	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
)

// OrderRepository persists orders and their line items. Create issues one
// statement per item, so callers run it inside WithinTx.
type OrderRepository struct {
	db database.DBTX
}

// NewOrderRepository creates a PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts order and its items. It reports false without error when
// an order with the same ID already exists.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) (created bool, err error) {
	query := `
		INSERT INTO orders (id, customer_email, status, subtotal, total)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at`

	ctx, end := database.TraceQuery(ctx, "order.Create", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query, order.ID, order.CustomerEmail, string(order.Status), order.Subtotal, order.Total).
		Scan(&order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, apperrors.Persistence("create order", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, position, product_id, variant_id, selected_attributes, quantity, price, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.OrderID = order.ID

		var selected []byte
		if len(item.SelectedAttributes) > 0 {
			if selected, err = json.Marshal(item.SelectedAttributes); err != nil {
				return false, apperrors.Internal(err)
			}
		}
		if _, err = r.db.Exec(ctx, itemQuery, item.ID, item.OrderID, i, item.ProductID, item.VariantID,
			selected, item.Quantity, item.Price, item.Total); err != nil {
			return false, apperrors.Persistence("create order item", err)
		}
	}
	return true, nil
}

// GetByID returns an order with its items in placement order.
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (o *domain.Order, err error) {
	query := `SELECT id, customer_email, status, subtotal, total, created_at FROM orders WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "order.GetByID", query)
	defer func() { end(err) }()

	var order domain.Order
	var status string
	err = r.db.QueryRow(ctx, query, orderID).
		Scan(&order.ID, &order.CustomerEmail, &status, &order.Subtotal, &order.Total, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", orderID)
		}
		return nil, apperrors.Persistence("get order", err)
	}
	order.Status = domain.OrderStatus(status)

	itemQuery := `
		SELECT id, order_id, product_id, variant_id, selected_attributes, quantity, price, total
		FROM order_items WHERE order_id = $1 ORDER BY position, id`
	rows, err := r.db.Query(ctx, itemQuery, orderID)
	if err != nil {
		return nil, apperrors.Persistence("list order items", err)
	}
	defer rows.Close()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var (
			item     domain.OrderItem
			selected []byte
		)
		if err = rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.VariantID, &selected,
			&item.Quantity, &item.Price, &item.Total); err != nil {
			return nil, apperrors.Persistence("scan order item", err)
		}
		if len(selected) > 0 {
			if err = json.Unmarshal(selected, &item.SelectedAttributes); err != nil {
				return nil, apperrors.Persistence("decode selected attributes", err)
			}
		}
		order.Items = append(order.Items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.Persistence("iterate order items", err)
	}
	return &order, nil
}
