package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/pkg/httputil"
	"github.com/muhammadjehanzaib/sultan-store/pkg/pagination"
	"github.com/muhammadjehanzaib/sultan-store/pkg/validator"
)

// Service is the inventory service surface the HTTP layer needs.
type Service interface {
	GetInventory(ctx context.Context, productID string) (*domain.Inventory, error)
	AdjustProductStock(ctx context.Context, productID string, delta int, reason string) (*domain.Inventory, error)
	SetThreshold(ctx context.Context, productID string, threshold int) (*domain.Inventory, error)
	GetStockHistory(ctx context.Context, productID string, variantID *string, limit int) ([]domain.LedgerEntry, error)
	Reconcile(ctx context.Context, productID string) (*domain.ReconcileResult, error)
	SyncAll(ctx context.Context) (*domain.SyncReport, error)
	BulkAdjust(ctx context.Context, updates []domain.StockUpdate) (*domain.BatchReport, error)
	GetLowStock(ctx context.Context, page pagination.Params) (*domain.LowStockReport, error)
	AdjustVariantStock(ctx context.Context, variantID string, delta int, reason string) (*domain.VariantAdjustment, error)
	ToggleAvailability(ctx context.Context, variantID string) (*domain.Variant, error)
	IsAvailable(ctx context.Context, productID string, selection domain.AttributeSelection) (bool, *domain.Variant, error)
	PlaceOrder(ctx context.Context, order *domain.Order) (*domain.FulfillmentReport, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

// InventoryHandler handles HTTP requests for product inventory endpoints.
type InventoryHandler struct {
	service Service
	logger  *slog.Logger
}

// NewInventoryHandler creates a new inventory HTTP handler.
func NewInventoryHandler(svc Service, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AdjustStockRequest is the JSON request body for adjusting stock.
type AdjustStockRequest struct {
	Delta  int    `json:"delta" validate:"required,min=-2147483648,max=2147483647"`
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

// SetThresholdRequest is the JSON request body for changing the threshold.
type SetThresholdRequest struct {
	StockThreshold *int `json:"stock_threshold" validate:"required,gte=0,lte=1000000"`
}

// BulkAdjustRequest is the JSON request body for a bulk adjustment.
// Items are validated individually by the service so one bad item does
// not reject the batch.
type BulkAdjustRequest struct {
	Updates []domain.StockUpdate `json:"updates" validate:"required,min=1,max=500"`
}

// decode reads and validates the request body, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}

func productIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return "", false
	}
	return id.String(), true
}

// --- Handlers ---

// GetInventory handles GET /api/v1/inventory/{productId}
func (h *InventoryHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	inv, err := h.service.GetInventory(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: inventoryView(inv)})
}

// AdjustStock handles POST /api/v1/inventory/{productId}/adjust
func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req AdjustStockRequest
	if !decode(w, r, &req) {
		return
	}

	inv, err := h.service.AdjustProductStock(r.Context(), productID, req.Delta, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: inventoryView(inv)})
}

// SetThreshold handles PUT /api/v1/inventory/{productId}/threshold
func (h *InventoryHandler) SetThreshold(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req SetThresholdRequest
	if !decode(w, r, &req) {
		return
	}

	inv, err := h.service.SetThreshold(r.Context(), productID, *req.StockThreshold)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: inventoryView(inv)})
}

// GetHistory handles GET /api/v1/inventory/{productId}/history
func (h *InventoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "limit must be a valid positive integer"},
			})
			return
		}
		limit = l
	}

	var variantID *string
	if v := strings.TrimSpace(r.URL.Query().Get("variant_id")); v != "" {
		id, ok := httputil.ParseUUID(w, v)
		if !ok {
			return
		}
		s := id.String()
		variantID = &s
	}

	entries, err := h.service.GetStockHistory(r.Context(), productID, variantID, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: entries})
}

// Reconcile handles POST /api/v1/inventory/{productId}/reconcile
func (h *InventoryHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.service.Reconcile(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// SyncAll handles POST /api/v1/inventory/sync
func (h *InventoryHandler) SyncAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.SyncAll(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}

// BulkAdjust handles POST /api/v1/inventory/bulk
func (h *InventoryHandler) BulkAdjust(w http.ResponseWriter, r *http.Request) {
	var req BulkAdjustRequest
	if !decode(w, r, &req) {
		return
	}

	report, err := h.service.BulkAdjust(r.Context(), req.Updates)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}

// GetLowStock handles GET /api/v1/inventory/low-stock
func (h *InventoryHandler) GetLowStock(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	report, err := h.service.GetLowStock(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: LowStockResponse{
		Products:           pagination.NewResult(inventoryViews(report.Products), report.ProductsTotal, params),
		Variants:           nonNil(report.Variants),
		OutOfStockVariants: nonNil(report.OutOfStockVariants),
	}})
}

// --- Response views ---

// InventoryView adds the derived flags to an inventory row.
type InventoryView struct {
	*domain.Inventory
	InStock bool `json:"in_stock"`
	IsLow   bool `json:"is_low"`
}

func inventoryView(inv *domain.Inventory) InventoryView {
	return InventoryView{Inventory: inv, InStock: inv.InStock(), IsLow: inv.IsLow()}
}

func inventoryViews(rows []domain.Inventory) []InventoryView {
	views := make([]InventoryView, len(rows))
	for i := range rows {
		views[i] = inventoryView(&rows[i])
	}
	return views
}

// LowStockResponse is the body of GET /inventory/low-stock.
type LowStockResponse struct {
	Products           pagination.Result[InventoryView] `json:"products"`
	Variants           []domain.VariantAlert            `json:"variants"`
	OutOfStockVariants []domain.VariantAlert            `json:"out_of_stock_variants"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
