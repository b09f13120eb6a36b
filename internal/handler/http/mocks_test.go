package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/pkg/health"
	"github.com/muhammadjehanzaib/sultan-store/pkg/middleware"
	"github.com/muhammadjehanzaib/sultan-store/pkg/pagination"
)

const (
	productID = "11111111-1111-4111-8111-111111111111"
	variantID = "22222222-2222-4222-8222-222222222222"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) GetInventory(ctx context.Context, productID string) (*domain.Inventory, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inventory), args.Error(1)
}

func (m *mockService) AdjustProductStock(ctx context.Context, productID string, delta int, reason string) (*domain.Inventory, error) {
	args := m.Called(ctx, productID, delta, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inventory), args.Error(1)
}

func (m *mockService) SetThreshold(ctx context.Context, productID string, threshold int) (*domain.Inventory, error) {
	args := m.Called(ctx, productID, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inventory), args.Error(1)
}

func (m *mockService) GetStockHistory(ctx context.Context, productID string, variantID *string, limit int) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, productID, variantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

func (m *mockService) Reconcile(ctx context.Context, productID string) (*domain.ReconcileResult, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconcileResult), args.Error(1)
}

func (m *mockService) SyncAll(ctx context.Context) (*domain.SyncReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncReport), args.Error(1)
}

func (m *mockService) BulkAdjust(ctx context.Context, updates []domain.StockUpdate) (*domain.BatchReport, error) {
	args := m.Called(ctx, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatchReport), args.Error(1)
}

func (m *mockService) GetLowStock(ctx context.Context, page pagination.Params) (*domain.LowStockReport, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LowStockReport), args.Error(1)
}

func (m *mockService) AdjustVariantStock(ctx context.Context, variantID string, delta int, reason string) (*domain.VariantAdjustment, error) {
	args := m.Called(ctx, variantID, delta, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VariantAdjustment), args.Error(1)
}

func (m *mockService) ToggleAvailability(ctx context.Context, variantID string) (*domain.Variant, error) {
	args := m.Called(ctx, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *mockService) IsAvailable(ctx context.Context, productID string, selection domain.AttributeSelection) (bool, *domain.Variant, error) {
	args := m.Called(ctx, productID, selection)
	var v *domain.Variant
	if args.Get(1) != nil {
		v = args.Get(1).(*domain.Variant)
	}
	return args.Bool(0), v, args.Error(2)
}

func (m *mockService) PlaceOrder(ctx context.Context, order *domain.Order) (*domain.FulfillmentReport, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FulfillmentReport), args.Error(1)
}

func (m *mockService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

// ============================================================================
// Test Helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRouter(svc *mockService) http.Handler {
	return NewRouter(svc, health.NewHandler(), testLogger(), RouterConfig{CORS: middleware.NewCORSConfig([]string{"*"})})
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, role string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set(middleware.HeaderUserRole, role)
		req.Header.Set(middleware.HeaderUserID, "user-1")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}
