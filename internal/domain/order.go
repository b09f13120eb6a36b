package domain

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order is a placed order. Only its creation touches stock.
type Order struct {
	ID            string      `json:"id"`
	CustomerEmail string      `json:"customer_email"`
	Status        OrderStatus `json:"status"`
	Subtotal      int64       `json:"subtotal"`
	Total         int64       `json:"total"`
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"created_at"`
}

// OrderItem is one line. A variant is identified either directly by
// VariantID or by the attribute values the customer selected.
type OrderItem struct {
	ID                 string             `json:"id"`
	OrderID            string             `json:"order_id"`
	ProductID          string             `json:"product_id"`
	VariantID          *string            `json:"variant_id,omitempty"`
	SelectedAttributes AttributeSelection `json:"selected_attributes,omitempty"`
	Quantity           int                `json:"quantity"`
	Price              int64              `json:"price"`
	Total              int64              `json:"total"`
}

// HasVariantSelector reports whether the item names a variant.
func (i *OrderItem) HasVariantSelector() bool {
	return (i.VariantID != nil && *i.VariantID != "") || len(i.SelectedAttributes) > 0
}

// Validate checks the order before it is persisted.
func (o *Order) Validate() error {
	if o.ID == "" {
		return errors.New("order id is required")
	}
	if _, err := mail.ParseAddress(o.CustomerEmail); err != nil {
		return fmt.Errorf("customer_email is invalid: %w", err)
	}
	if len(o.Items) == 0 {
		return errors.New("order must contain at least one item")
	}
	for idx, item := range o.Items {
		if item.ProductID == "" {
			return fmt.Errorf("items[%d]: product_id is required", idx)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("items[%d]: quantity must be positive", idx)
		}
		if item.Quantity > math.MaxInt32 {
			return fmt.Errorf("items[%d]: quantity must be <= %d", idx, math.MaxInt32)
		}
		if item.Price < 0 {
			return fmt.Errorf("items[%d]: price must be >= 0", idx)
		}
		if len(item.SelectedAttributes) > 0 {
			if err := item.SelectedAttributes.Validate(); err != nil {
				return fmt.Errorf("items[%d]: %w", idx, err)
			}
		}
	}
	return nil
}

// ComputeTotals fills line totals and the order subtotal and total.
func (o *Order) ComputeTotals() {
	var subtotal int64
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		o.Items[i].Total = o.Items[i].Price * int64(o.Items[i].Quantity)
		subtotal += o.Items[i].Total
	}
	o.Subtotal = subtotal
	o.Total = subtotal
}

// ItemStatus is the fulfillment outcome of one order line.
type ItemStatus string

const (
	ItemFulfilled ItemStatus = "fulfilled"
	ItemFailed    ItemStatus = "failed"
)

// FulfillmentItem records what happened to one order line.
type FulfillmentItem struct {
	ProductID string     `json:"product_id"`
	VariantID *string    `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
	Status    ItemStatus `json:"status"`
	Stock     *int       `json:"stock,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// FulfillmentReport summarizes stock decrements for one order. Failures are
// for operators; the order stands regardless.
type FulfillmentReport struct {
	OrderID   string            `json:"order_id"`
	Duplicate bool              `json:"duplicate,omitempty"`
	Items     []FulfillmentItem `json:"items"`
	Fulfilled int               `json:"fulfilled"`
	Failed    int               `json:"failed"`
}

// Record appends an item outcome and updates the counters.
func (r *FulfillmentReport) Record(item FulfillmentItem) {
	r.Items = append(r.Items, item)
	if item.Status == ItemFulfilled {
		r.Fulfilled++
	} else {
		r.Failed++
	}
}
