package domain

import "time"

// ReconcileResult describes one product's aggregate recomputation.
type ReconcileResult struct {
	ProductID    string `json:"product_id"`
	VariantCount int    `json:"variant_count"`
	Previous     int    `json:"previous"`
	Stock        int    `json:"stock"`
	InStock      bool   `json:"in_stock"`
}

// Drift is the correction applied to the aggregate.
func (r *ReconcileResult) Drift() int {
	return r.Stock - r.Previous
}

// SumVariantStock adds up variant quantities, ignoring negatives the
// storage constraints should already exclude.
func SumVariantStock(variants []Variant) int {
	total := 0
	for _, v := range variants {
		total += max(0, v.StockQuantity)
	}
	return total
}

// SyncFailure names a product a sync could not reconcile.
type SyncFailure struct {
	ProductID string `json:"product_id"`
	Error     string `json:"error"`
}

// SyncReport summarizes a full reconciliation sweep.
type SyncReport struct {
	Products   int           `json:"products"`
	Reconciled int           `json:"reconciled"`
	Corrected  int           `json:"corrected"`
	Failed     int           `json:"failed"`
	Failures   []SyncFailure `json:"failures,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
}
