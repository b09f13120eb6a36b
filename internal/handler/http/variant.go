package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/pkg/httputil"
)

// VariantHandler handles HTTP requests for variant endpoints.
type VariantHandler struct {
	service Service
	logger  *slog.Logger
}

// NewVariantHandler creates a new variant HTTP handler.
func NewVariantHandler(svc Service, logger *slog.Logger) *VariantHandler {
	return &VariantHandler{service: svc, logger: logger}
}

// AvailabilityRequest is the JSON request body for an availability check.
type AvailabilityRequest struct {
	SelectedAttributes domain.AttributeSelection `json:"selected_attributes" validate:"required,min=1"`
}

// AvailabilityResponse answers an availability check.
type AvailabilityResponse struct {
	Available bool            `json:"available"`
	Variant   *domain.Variant `json:"variant,omitempty"`
}

// AdjustStock handles POST /api/v1/variants/{variantId}/adjust
func (h *VariantHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	variantID, ok := httputil.ParseUUID(w, chi.URLParam(r, "variantId"))
	if !ok {
		return
	}

	var req AdjustStockRequest
	if !decode(w, r, &req) {
		return
	}

	adj, err := h.service.AdjustVariantStock(r.Context(), variantID.String(), req.Delta, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: adj})
}

// ToggleAvailability handles POST /api/v1/variants/{variantId}/toggle
func (h *VariantHandler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	variantID, ok := httputil.ParseUUID(w, chi.URLParam(r, "variantId"))
	if !ok {
		return
	}

	v, err := h.service.ToggleAvailability(r.Context(), variantID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: v})
}

// CheckAvailability handles POST /api/v1/products/{productId}/availability
func (h *VariantHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req AvailabilityRequest
	if !decode(w, r, &req) {
		return
	}

	available, v, err := h.service.IsAvailable(r.Context(), productID, req.SelectedAttributes)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: AvailabilityResponse{Available: available, Variant: v}})
}
