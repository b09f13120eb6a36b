package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/muhammadjehanzaib/sultan-store/internal/repository"
	"github.com/muhammadjehanzaib/sultan-store/pkg/database"
	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
)

// Store implements repository.Store over a pool or a transaction.
type Store struct {
	db        database.DBTX
	inventory *InventoryRepository
	variants  *VariantRepository
	ledger    *LedgerRepository
	products  *ProductRepository
	orders    *OrderRepository
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a Store. db is typically a *pgxpool.Pool.
func NewStore(db database.DBTX) *Store {
	return &Store{
		db:        db,
		inventory: NewInventoryRepository(db),
		variants:  NewVariantRepository(db),
		ledger:    NewLedgerRepository(db),
		products:  NewProductRepository(db),
		orders:    NewOrderRepository(db),
	}
}

func (s *Store) Inventory() repository.InventoryRepository { return s.inventory }
func (s *Store) Variants() repository.VariantRepository   { return s.variants }
func (s *Store) Ledger() repository.LedgerRepository       { return s.ledger }
func (s *Store) Products() repository.ProductRepository   { return s.products }
func (s *Store) Orders() repository.OrderRepository       { return s.orders }

// WithinTx runs fn inside a transaction. On a Store that is already
// transactional, Begin creates a savepoint, so a failing fn rolls back only
// its own work.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperrors.Persistence("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, NewStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.Persistence("commit transaction", err)
	}
	return nil
}

// isUUID guards uuid columns: a malformed id cannot match any row, and
// sending it to Postgres would surface as a driver error instead.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
