package postgres

import (
	"context"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/pkg/database"
	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
)

// LedgerRepository implements repository.LedgerRepository over the
// append-only stock_history table.
type LedgerRepository struct {
	db database.DBTX
}

// NewLedgerRepository creates a PostgreSQL-backed ledger repository.
func NewLedgerRepository(db database.DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append writes entry and fills its ID and CreatedAt.
func (r *LedgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) (err error) {
	if err := entry.Validate(); err != nil {
		return apperrors.InvalidInput(err.Error())
	}
	query := `
		INSERT INTO stock_history (product_id, variant_id, change, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	ctx, end := database.TraceQuery(ctx, "ledger.Append", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query, entry.ProductID, entry.VariantID, entry.Change, entry.Reason).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.NotFound("product", entry.ProductID)
		}
		return apperrors.Persistence("append ledger entry", err)
	}
	return nil
}

// ListByProduct returns the newest entries first. A non-nil variantID
// narrows the result to that variant.
func (r *LedgerRepository) ListByProduct(ctx context.Context, productID string, variantID *string, limit int) (entries []domain.LedgerEntry, err error) {
	entries = []domain.LedgerEntry{}
	if !isUUID(productID) || (variantID != nil && !isUUID(*variantID)) {
		return entries, nil
	}
	query := `
		SELECT id, product_id, variant_id, change, reason, created_at
		FROM stock_history
		WHERE product_id = $1 AND ($2::uuid IS NULL OR variant_id = $2::uuid)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	ctx, end := database.TraceQuery(ctx, "ledger.ListByProduct", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, productID, variantID, limit)
	if err != nil {
		return nil, apperrors.Persistence("list ledger entries", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.LedgerEntry
		if err = rows.Scan(&e.ID, &e.ProductID, &e.VariantID, &e.Change, &e.Reason, &e.CreatedAt); err != nil {
			return nil, apperrors.Persistence("scan ledger entry", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, apperrors.Persistence("iterate ledger entries", err)
	}
	return entries, nil
}
