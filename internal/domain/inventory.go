package domain

import (
	"fmt"
	"math"
	"time"
)

// DefaultStockThreshold is the reorder point given to lazily created
// inventory rows.
const DefaultStockThreshold = 5

// Inventory is the aggregate stock level of one product.
type Inventory struct {
	ProductID      string    `json:"product_id"`
	Stock          int       `json:"stock"`
	StockThreshold int       `json:"stock_threshold"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// InStock reports whether the product can be sold.
func (i *Inventory) InStock() bool {
	return i.Stock > 0
}

// IsLow reports whether stock is at or below the reorder threshold. The
// boundary is inclusive and zero stock counts as low at product level.
func (i *Inventory) IsLow() bool {
	return i.Stock <= i.StockThreshold
}

// InitialOrderStock is the stock given to an inventory row created by an
// order for quantity units: sold past available stock is recorded as zero.
func InitialOrderStock(quantity int) int {
	return max(0, -quantity)
}

// StockPolicy decides what happens when a decrement exceeds current stock.
type StockPolicy string

const (
	// PolicyClamp floors the result at zero.
	PolicyClamp StockPolicy = "clamp"
	// PolicyStrict rejects the mutation with an insufficient-stock error.
	PolicyStrict StockPolicy = "strict"
)

// ParseStockPolicy validates a configured policy name.
func ParseStockPolicy(s string) (StockPolicy, error) {
	switch p := StockPolicy(s); p {
	case PolicyClamp, PolicyStrict:
		return p, nil
	default:
		return "", fmt.Errorf("unknown stock policy %q (want clamp or strict)", s)
	}
}

// Apply returns the stock that results from adding delta to current and
// whether the policy permits it.
func (p StockPolicy) Apply(current, delta int) (int, bool) {
	next := current + delta
	if next >= 0 {
		return next, true
	}
	if p == PolicyStrict {
		return current, false
	}
	return 0, true
}

// ValidateThreshold rejects negative reorder points and values the
// INTEGER column cannot hold.
func ValidateThreshold(threshold int) error {
	if threshold < 0 {
		return fmt.Errorf("stock_threshold must be >= 0, got %d", threshold)
	}
	if threshold > math.MaxInt32 {
		return fmt.Errorf("stock_threshold must be <= %d, got %d", math.MaxInt32, threshold)
	}
	return nil
}

// ValidateStockChange rejects deltas outside the INTEGER range.
func ValidateStockChange(delta int) error {
	if delta < math.MinInt32 || delta > math.MaxInt32 {
		return fmt.Errorf("stock_change must be between %d and %d, got %d", math.MinInt32, math.MaxInt32, delta)
	}
	return nil
}
