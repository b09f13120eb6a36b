package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	pkgkafka "github.com/muhammadjehanzaib/sultan-store/pkg/kafka"
)

// TopicOrderCreated is consumed to fulfill orders placed by other services.
var TopicOrderCreated = pkgkafka.Topic("order", "created")

// OrderPlacer is the service surface the consumer needs.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order *domain.Order) (*domain.FulfillmentReport, error)
}

// OrderCreatedItem is one line of an order.created payload.
type OrderCreatedItem struct {
	ProductID          string                    `json:"product_id"`
	VariantID          *string                   `json:"variant_id,omitempty"`
	SelectedAttributes domain.AttributeSelection `json:"selected_attributes,omitempty"`
	Quantity           int                       `json:"quantity"`
	Price              int64                     `json:"price"`
}

// OrderCreatedData is the payload of an order.created event.
type OrderCreatedData struct {
	OrderID       string             `json:"order_id"`
	CustomerEmail string             `json:"customer_email"`
	Items         []OrderCreatedItem `json:"items"`
}

// Order converts the payload into a domain order.
func (d *OrderCreatedData) Order() *domain.Order {
	order := &domain.Order{
		ID:            d.OrderID,
		CustomerEmail: d.CustomerEmail,
		Status:        domain.OrderStatusPending,
		Items:         make([]domain.OrderItem, 0, len(d.Items)),
	}
	for _, it := range d.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:          it.ProductID,
			VariantID:          it.VariantID,
			SelectedAttributes: it.SelectedAttributes,
			Quantity:           it.Quantity,
			Price:              it.Price,
		})
	}
	return order
}

// Consumer processes order events for the inventory service.
type Consumer struct {
	service OrderPlacer
	logger  *slog.Logger
}

// NewConsumer creates a consumer.
func NewConsumer(service OrderPlacer, logger *slog.Logger) *Consumer {
	return &Consumer{service: service, logger: logger}
}

// HandleOrderCreated places and fulfills the order carried by the event.
// The order ID makes redelivery harmless: an already-placed order is not
// fulfilled twice.
func (c *Consumer) HandleOrderCreated(ctx context.Context, evt *pkgkafka.Event) error {
	var data OrderCreatedData
	if err := evt.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal order.created data: %w", err)
	}
	if data.OrderID == "" {
		data.OrderID = evt.AggregateID
	}

	c.logger.InfoContext(ctx, "processing order.created event",
		slog.String("order_id", data.OrderID),
		slog.Int("items", len(data.Items)),
		slog.String("actor", evt.Actor()),
	)

	report, err := c.service.PlaceOrder(ctx, data.Order())
	if err != nil {
		return fmt.Errorf("place order %s: %w", data.OrderID, err)
	}

	if report.Failed > 0 {
		c.logger.WarnContext(ctx, "order fulfilled with failed items",
			slog.String("order_id", report.OrderID),
			slog.Int("fulfilled", report.Fulfilled),
			slog.Int("failed", report.Failed),
		)
	}
	return nil
}
