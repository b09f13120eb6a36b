package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stockAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_stock_adjustments_total",
		Help: "Committed stock mutations by source.",
	}, []string{"source"})

	fulfillmentItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_fulfillment_items_total",
		Help: "Order line items processed by outcome.",
	}, []string{"result"})

	reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_reconciliations_total",
		Help: "Aggregate recomputations by outcome.",
	}, []string{"result"})

	bulkItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_bulk_items_total",
		Help: "Bulk adjustment items by outcome.",
	}, []string{"result"})

	lowStockAlerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_low_stock_alerts_total",
		Help: "Low-stock alerts raised after a mutation.",
	}, []string{"scope"})
)
