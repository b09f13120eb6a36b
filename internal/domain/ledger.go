package domain

import (
	"errors"
	"strings"
	"time"
)

// Ledger reasons written by the service itself.
const (
	ReasonManualAdjustment = "Manual adjustment"
	ReasonBulkUpdate       = "Bulk update"
	ReasonReconciliation   = "Reconciliation sync"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// LedgerEntry is one immutable stock history row.
type LedgerEntry struct {
	ID        int64     `json:"id"`
	ProductID string    `json:"product_id"`
	VariantID *string   `json:"variant_id,omitempty"`
	Change    int       `json:"change"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderReason is the ledger reason for stock sold by an order.
func OrderReason(orderID string) string {
	return "Order " + orderID
}

// Validate checks the entry before it is appended.
func (e *LedgerEntry) Validate() error {
	if e.ProductID == "" {
		return errors.New("ledger entry requires a product id")
	}
	if strings.TrimSpace(e.Reason) == "" {
		return errors.New("ledger entry requires a reason")
	}
	if e.Change == 0 {
		return errors.New("ledger entry change must be non-zero")
	}
	return nil
}

// HistoryLimit normalizes a requested page size: non-positive means the
// configured default, and values above MaxHistoryLimit are capped.
func HistoryLimit(requested, configured int) int {
	if configured <= 0 {
		configured = DefaultHistoryLimit
	}
	if requested <= 0 {
		requested = configured
	}
	return min(requested, MaxHistoryLimit)
}
