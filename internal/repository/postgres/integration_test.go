package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/internal/repository"
	"github.com/muhammadjehanzaib/sultan-store/migrations"
	"github.com/muhammadjehanzaib/sultan-store/pkg/database"
	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
)

// Runs against a real database when INVENTORY_TEST_DATABASE_URL is set.
func integrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("INVENTORY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("INVENTORY_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, database.RunMigrations(ctx, pool, migrations.FS, logger))
	return pool
}

func TestIntegration_ConcurrentDecrementsLoseNoUpdates(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()
	store := NewStore(pool)

	const (
		start   = 500
		workers = 40
		each    = 3
	)
	pid := uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO products (id, name, in_stock) VALUES ($1, $2, TRUE)`, pid, "concurrent decrements")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO inventory (product_id, stock, stock_threshold) VALUES ($1, $2, 5)`, pid, start)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
				if _, err := tx.Inventory().Lock(ctx, pid, domain.DefaultStockThreshold); err != nil {
					return err
				}
				if _, err := tx.Inventory().ApplyDelta(ctx, pid, -each, domain.PolicyClamp); err != nil {
					return err
				}
				return tx.Ledger().Append(ctx, &domain.LedgerEntry{
					ProductID: pid, Change: -each, Reason: domain.ReasonManualAdjustment,
				})
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	inv, err := store.Inventory().Get(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, start-workers*each, inv.Stock)

	product, err := store.Products().Get(ctx, pid)
	require.NoError(t, err)
	assert.True(t, product.InStock)

	entries, err := store.Ledger().ListByProduct(ctx, pid, nil, domain.MaxHistoryLimit)
	require.NoError(t, err)
	assert.Len(t, entries, workers)
}

func TestIntegration_ClampKeepsProductFlagInSync(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()
	store := NewStore(pool)

	pid := uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO products (id, name, in_stock) VALUES ($1, $2, TRUE)`, pid, "clamp")
	require.NoError(t, err)

	_, err = store.Inventory().GetOrCreate(ctx, pid, domain.DefaultStockThreshold)
	require.NoError(t, err)
	_, err = store.Inventory().SetAbsolute(ctx, pid, 3)
	require.NoError(t, err)

	inv, err := store.Inventory().ApplyDelta(ctx, pid, -5, domain.PolicyClamp)
	require.NoError(t, err)
	assert.Equal(t, 0, inv.Stock)

	product, err := store.Products().Get(ctx, pid)
	require.NoError(t, err)
	assert.False(t, product.InStock)
}

func TestIntegration_LedgerRowsCannotBeChangedOrOrphaned(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()
	store := NewStore(pool)

	pid, vid := uuid.NewString(), uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO products (id, name) VALUES ($1, $2)`, pid, "ledger")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
		INSERT INTO product_variants (id, product_id, stock_quantity, combination_key)
		VALUES ($1, $2, 4, 'size:m')`, vid, pid)
	require.NoError(t, err)
	require.NoError(t, store.Ledger().Append(ctx, &domain.LedgerEntry{
		ProductID: pid, VariantID: &vid, Change: 4, Reason: domain.ReasonManualAdjustment,
	}))

	_, err = pool.Exec(ctx, `UPDATE stock_history SET change = 99 WHERE product_id = $1`, pid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	_, err = pool.Exec(ctx, `DELETE FROM stock_history WHERE product_id = $1`, pid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	_, err = pool.Exec(ctx, `DELETE FROM product_variants WHERE id = $1`, vid)
	require.Error(t, err)
	assert.True(t, database.IsForeignKeyViolation(err))

	_, err = pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, pid)
	require.Error(t, err)
	assert.True(t, database.IsForeignKeyViolation(err))

	entries, err := store.Ledger().ListByProduct(ctx, pid, &vid, domain.MaxHistoryLimit)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 4, entries[0].Change)
}

func TestIntegration_OrderItemsKeepPlacementOrder(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()
	store := NewStore(pool)

	order := &domain.Order{
		ID:            uuid.NewString(),
		CustomerEmail: "buyer@example.com",
		Status:        domain.OrderStatusPending,
	}
	for _, pid := range []string{"p-c", "p-a", "p-d", "p-b"} {
		order.Items = append(order.Items, domain.OrderItem{ProductID: pid, Quantity: 1, Price: 100})
	}
	order.ComputeTotals()

	created, err := store.Orders().Create(ctx, order)
	require.NoError(t, err)
	require.True(t, created)

	got, err := store.Orders().GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 4)
	for i, item := range got.Items {
		assert.Equal(t, order.Items[i].ProductID, item.ProductID)
	}
}

func TestIntegration_PartialSelectionMatchesNoVariant(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()
	store := NewStore(pool)

	pid, red, blue := uuid.NewString(), uuid.NewString(), uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO products (id, name) VALUES ($1, $2)`, pid, "shirt")
	require.NoError(t, err)
	for _, v := range []struct{ id, color string }{{red, "red"}, {blue, "blue"}} {
		_, err = pool.Exec(ctx, `
			INSERT INTO product_variants (id, product_id, stock_quantity, in_stock, combination_key)
			VALUES ($1, $2, 3, TRUE, $3)`, v.id, pid, "color:"+v.color+"|size:m")
		require.NoError(t, err)
		_, err = pool.Exec(ctx, `
			INSERT INTO variant_attribute_values (variant_id, attribute_id, value_id)
			VALUES ($1, 'size', 'm'), ($1, 'color', $2)`, v.id, v.color)
		require.NoError(t, err)
	}

	_, err = store.Variants().FindBySelection(ctx, pid, domain.AttributeSelection{"size": "m"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	v, err := store.Variants().FindBySelection(ctx, pid, domain.AttributeSelection{"size": "m", "color": "blue"})
	require.NoError(t, err)
	assert.Equal(t, blue, v.ID)
}
