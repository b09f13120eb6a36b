package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	apperrors "github.com/muhammadjehanzaib/sultan-store/pkg/errors"
)

func TestVariantRepository_GetByID_LoadsAttributes(t *testing.T) {
	mock := newMock(t)
	repo := NewVariantRepository(mock)

	cols := append(append([]string{}, variantCols...), "attributes")
	mock.ExpectQuery(`FROM product_variants v LEFT JOIN variant_attribute_values a .* WHERE v.id = \$1 GROUP BY v.id`).
		WithArgs(variantID).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			variantID, productID, "MUG-RED", 4, true, fixedTime,
			`[{"attribute_id":"color","value_id":"red"},{"attribute_id":"size","value_id":"l"}]`,
		))

	v, err := repo.GetByID(context.Background(), variantID)
	require.NoError(t, err)
	assert.Equal(t, "MUG-RED", v.SKU)
	assert.Equal(t, []domain.AttributeValue{
		{AttributeID: "color", ValueID: "red"},
		{AttributeID: "size", ValueID: "l"},
	}, v.Attributes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_Lock_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewVariantRepository(mock)

	mock.ExpectQuery(`FROM product_variants WHERE id = \$1 FOR UPDATE`).
		WithArgs(variantID).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Lock(context.Background(), variantID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_ApplyDelta_RewritesInStock(t *testing.T) {
	mock := newMock(t)
	repo := NewVariantRepository(mock)

	mock.ExpectQuery(`in_stock = GREATEST\(stock_quantity \+ \$2, 0\) > 0`).
		WithArgs(variantID, -9).
		WillReturnRows(variantRow(variantID, 0, false))

	v, err := repo.ApplyDelta(context.Background(), variantID, -9, domain.PolicyClamp)
	require.NoError(t, err)
	assert.Equal(t, 0, v.StockQuantity)
	assert.False(t, v.InStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_ApplyDelta_OverflowIsInvalidInput(t *testing.T) {
	mock := newMock(t)
	repo := NewVariantRepository(mock)

	mock.ExpectQuery(`UPDATE product_variants`).
		WithArgs(variantID, 500_000_000).
		WillReturnError(&pgconn.PgError{Code: "22003", Message: "integer out of range"})

	_, err := repo.ApplyDelta(context.Background(), variantID, 500_000_000, domain.PolicyStrict)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_ToggleAvailability(t *testing.T) {
	mock := newMock(t)
	repo := NewVariantRepository(mock)

	mock.ExpectQuery(`SET in_stock = NOT in_stock`).
		WithArgs(variantID).
		WillReturnRows(variantRow(variantID, 3, false))
	mock.ExpectQuery(`SET in_stock = NOT in_stock`).
		WithArgs(variantID).
		WillReturnRows(variantRow(variantID, 3, true))

	first, err := repo.ToggleAvailability(context.Background(), variantID)
	require.NoError(t, err)
	second, err := repo.ToggleAvailability(context.Background(), variantID)
	require.NoError(t, err)

	assert.False(t, first.InStock)
	assert.True(t, second.InStock)
	assert.Equal(t, first.StockQuantity, second.StockQuantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_FindBySelection(t *testing.T) {
	sel := domain.AttributeSelection{"size": "l", "color": "red"}

	t.Run("exact match", func(t *testing.T) {
		mock := newMock(t)
		repo := NewVariantRepository(mock)

		mock.ExpectQuery(`HAVING COUNT\(\*\) = \$4 AND COUNT\(s\.attribute_id\) = \$4\s+LIMIT 2`).
			WithArgs(productID, []string{"color", "size"}, []string{"red", "l"}, 2).
			WillReturnRows(variantRow(variantID, 6, true))

		v, err := repo.FindBySelection(context.Background(), productID, sel)
		require.NoError(t, err)
		assert.Equal(t, variantID, v.ID)
		assert.Len(t, v.Attributes, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no match", func(t *testing.T) {
		mock := newMock(t)
		repo := NewVariantRepository(mock)

		mock.ExpectQuery(`HAVING COUNT`).
			WithArgs(productID, []string{"color", "size"}, []string{"red", "l"}, 2).
			WillReturnRows(pgxmock.NewRows(variantCols))

		_, err := repo.FindBySelection(context.Background(), productID, sel)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ambiguous", func(t *testing.T) {
		mock := newMock(t)
		repo := NewVariantRepository(mock)

		mock.ExpectQuery(`HAVING COUNT`).
			WithArgs(productID, []string{"color", "size"}, []string{"red", "l"}, 2).
			WillReturnRows(pgxmock.NewRows(variantCols).
				AddRow(variantID, productID, "A", 1, true, fixedTime).
				AddRow(otherVar, productID, "B", 1, true, fixedTime))

		_, err := repo.FindBySelection(context.Background(), productID, sel)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty selection", func(t *testing.T) {
		mock := newMock(t)
		repo := NewVariantRepository(mock)

		_, err := repo.FindBySelection(context.Background(), productID, domain.AttributeSelection{})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestVariantRepository_CountByProduct(t *testing.T) {
	mock := newMock(t)
	repo := NewVariantRepository(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM product_variants WHERE product_id = \$1`).
		WithArgs(productID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountByProduct(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = repo.CountByProduct(context.Background(), "missing")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_ListStockAlerts(t *testing.T) {
	mock := newMock(t)
	repo := NewVariantRepository(mock)

	mock.ExpectQuery(`COALESCE\(i.stock_threshold, \$1\)`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "sku", "stock_quantity", "threshold"}).
			AddRow(variantID, productID, "A", 0, 5).
			AddRow(otherVar, productID, "B", 2, 5))

	alerts, err := repo.ListStockAlerts(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	low, out := domain.SplitVariantAlerts(alerts)
	assert.Len(t, low, 1)
	assert.Len(t, out, 1)
	assert.Equal(t, otherVar, low[0].VariantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_ListProductIDsWithVariants(t *testing.T) {
	mock := newMock(t)
	repo := NewVariantRepository(mock)

	mock.ExpectQuery(`SELECT DISTINCT product_id FROM product_variants`).
		WillReturnRows(pgxmock.NewRows([]string{"product_id"}).AddRow(productID))

	ids, err := repo.ListProductIDsWithVariants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{productID}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
