package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/pkg/database"
	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
)

// ProductRepository reads the catalog rows this service depends on.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Get returns a product by ID.
func (r *ProductRepository) Get(ctx context.Context, productID string) (p *domain.Product, err error) {
	if !isUUID(productID) {
		return nil, apperrors.NotFound("product", productID)
	}
	query := `SELECT id, name, in_stock FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "product.Get", query)
	defer func() { end(err) }()

	var prod domain.Product
	err = r.db.QueryRow(ctx, query, productID).Scan(&prod.ID, &prod.Name, &prod.InStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, apperrors.Persistence("get product", err)
	}
	return &prod, nil
}
