package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/pkg/httputil"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service Service
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc Service, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// PlaceOrderRequest is the JSON request body for placing an order.
type PlaceOrderRequest struct {
	ID            string             `json:"id" validate:"omitempty,max=64"`
	CustomerEmail string             `json:"customer_email" validate:"required,email"`
	Items         []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderItemRequest is one line of a PlaceOrderRequest. The product ID is
// not required to be a UUID: an unknown product fails only its own line.
type OrderItemRequest struct {
	ProductID          string                    `json:"product_id" validate:"required"`
	VariantID          *string                   `json:"variant_id" validate:"omitempty,uuid"`
	SelectedAttributes domain.AttributeSelection `json:"selected_attributes"`
	Quantity           int                       `json:"quantity" validate:"required,gte=1,lte=2147483647"`
	Price              int64                     `json:"price" validate:"gte=0"`
}

func (req *PlaceOrderRequest) order() *domain.Order {
	order := &domain.Order{
		ID:            req.ID,
		CustomerEmail: req.CustomerEmail,
		Items:         make([]domain.OrderItem, len(req.Items)),
	}
	for i, it := range req.Items {
		order.Items[i] = domain.OrderItem{
			ProductID:          it.ProductID,
			VariantID:          it.VariantID,
			SelectedAttributes: it.SelectedAttributes,
			Quantity:           it.Quantity,
			Price:              it.Price,
		}
	}
	return order
}

// PlaceOrder handles POST /api/v1/orders. A replayed order ID answers 200
// with the duplicate flag set instead of 201.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !decode(w, r, &req) {
		return
	}

	report, err := h.service.PlaceOrder(r.Context(), req.order())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusCreated
	if report.Duplicate {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: report})
}

// GetOrder handles GET /api/v1/orders/{orderId}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}
