package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	pkgkafka "github.com/muhammadjehanzaib/sultan-store/pkg/kafka"
	"github.com/muhammadjehanzaib/sultan-store/pkg/logger"
)

// Event types and the topics they are published on.
const (
	TypeInventoryUpdated = "inventory.updated"
	TypeLowStock         = "inventory.low_stock"
	TypeVariantUpdated   = "inventory.variant_updated"
)

var (
	TopicInventoryUpdated = pkgkafka.Topic("inventory", "updated")
	TopicLowStock         = pkgkafka.Topic("inventory", "low_stock")
	TopicVariantUpdated   = pkgkafka.Topic("inventory", "variant_updated")
)

const (
	AggregateTypeInventory = "inventory"
	AggregateTypeVariant   = "variant"
	SourceInventoryService = "inventory-service"
)

// InventoryUpdatedData is the payload of inventory.updated.
type InventoryUpdatedData struct {
	ProductID      string `json:"product_id"`
	Stock          int    `json:"stock"`
	StockThreshold int    `json:"stock_threshold"`
	InStock        bool   `json:"in_stock"`
	Change         int    `json:"change"`
	Reason         string `json:"reason"`
}

// LowStockData is the payload of inventory.low_stock.
type LowStockData struct {
	ProductID      string `json:"product_id"`
	Stock          int    `json:"stock"`
	StockThreshold int    `json:"stock_threshold"`
	OutOfStock     bool   `json:"out_of_stock"`
}

// VariantUpdatedData is the payload of inventory.variant_updated.
type VariantUpdatedData struct {
	VariantID     string `json:"variant_id"`
	ProductID     string `json:"product_id"`
	SKU           string `json:"sku"`
	StockQuantity int    `json:"stock_quantity"`
	InStock       bool   `json:"in_stock"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes inventory domain events.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates an event producer over a Kafka producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, SourceInventoryService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx)).
		WithActor(logger.UserIDFromContext(ctx))
	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishInventoryUpdated publishes an inventory.updated event.
func (p *Producer) PublishInventoryUpdated(ctx context.Context, inv *domain.Inventory, change int, reason string) error {
	return p.publish(ctx, TopicInventoryUpdated, TypeInventoryUpdated, inv.ProductID, AggregateTypeInventory, InventoryUpdatedData{
		ProductID:      inv.ProductID,
		Stock:          inv.Stock,
		StockThreshold: inv.StockThreshold,
		InStock:        inv.InStock(),
		Change:         change,
		Reason:         reason,
	})
}

// PublishLowStock publishes an inventory.low_stock event.
func (p *Producer) PublishLowStock(ctx context.Context, inv *domain.Inventory) error {
	return p.publish(ctx, TopicLowStock, TypeLowStock, inv.ProductID, AggregateTypeInventory, LowStockData{
		ProductID:      inv.ProductID,
		Stock:          inv.Stock,
		StockThreshold: inv.StockThreshold,
		OutOfStock:     !inv.InStock(),
	})
}

// PublishVariantUpdated publishes an inventory.variant_updated event keyed
// by the owning product so it orders with the product's other events.
func (p *Producer) PublishVariantUpdated(ctx context.Context, v *domain.Variant) error {
	return p.publish(ctx, TopicVariantUpdated, TypeVariantUpdated, v.ProductID, AggregateTypeVariant, VariantUpdatedData{
		VariantID:     v.ID,
		ProductID:     v.ProductID,
		SKU:           v.SKU,
		StockQuantity: v.StockQuantity,
		InStock:       v.InStock,
	})
}
