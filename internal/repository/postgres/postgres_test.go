package postgres

import (
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/muhammadjehanzaib/sultan-store/pkg/database"
)

const (
	productID = "8f6b2c1e-2f4a-4c3e-9b1d-6a7e5f4d3c2b"
	variantID = "1d2c3b4a-5e6f-4a7b-8c9d-0e1f2a3b4c5d"
	otherVar  = "2e3d4c5b-6f70-4b8c-9dae-1f2a3b4c5d6e"
)

var (
	inventoryCols = []string{"product_id", "stock", "stock_threshold", "updated_at"}
	variantCols   = []string{"id", "product_id", "sku", "stock_quantity", "in_stock", "updated_at"}
	fixedTime     = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func inventoryRow(stock, threshold int) *pgxmock.Rows {
	return pgxmock.NewRows(inventoryCols).AddRow(productID, stock, threshold, fixedTime)
}

func variantRow(id string, qty int, inStock bool) *pgxmock.Rows {
	return pgxmock.NewRows(variantCols).AddRow(id, productID, "SKU-"+id[:4], qty, inStock, fixedTime)
}
