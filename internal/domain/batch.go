package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxBatchSize caps the number of updates in one bulk request.
const MaxBatchSize = 500

// LenientInt decodes a JSON integer or a numeric string. Anything else is
// kept as Raw with Valid false so the owning item can fail validation on its
// own instead of rejecting the whole request body.
type LenientInt struct {
	Value int
	Raw   string
	Valid bool
}

// Int builds a valid LenientInt.
func Int(v int) *LenientInt {
	return &LenientInt{Value: v, Raw: strconv.Itoa(v), Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler and never fails.
func (n *LenientInt) UnmarshalJSON(b []byte) error {
	raw := string(bytes.TrimSpace(b))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	n.Raw = raw
	v, err := strconv.Atoi(raw)
	n.Value, n.Valid = v, err == nil
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n LenientInt) MarshalJSON() ([]byte, error) {
	if n.Valid {
		return []byte(strconv.Itoa(n.Value)), nil
	}
	return json.Marshal(n.Raw)
}

// StockUpdate is one item of a bulk adjustment.
type StockUpdate struct {
	ProductID      string      `json:"product_id"`
	StockChange    *LenientInt `json:"stock_change,omitempty"`
	StockThreshold *LenientInt `json:"stock_threshold,omitempty"`
	Reason         string      `json:"reason,omitempty"`
}

// Validate applies the item-level checks: product id present, stock change
// an integer in range, threshold a non-negative integer in range.
func (u *StockUpdate) Validate() error {
	if strings.TrimSpace(u.ProductID) == "" {
		return errors.New("product_id is required")
	}
	if u.StockChange != nil {
		if !u.StockChange.Valid {
			return fmt.Errorf("stock_change must be an integer, got %q", u.StockChange.Raw)
		}
		if err := ValidateStockChange(u.StockChange.Value); err != nil {
			return err
		}
	}
	if u.StockThreshold != nil {
		if !u.StockThreshold.Valid {
			return fmt.Errorf("stock_threshold must be an integer, got %q", u.StockThreshold.Raw)
		}
		if err := ValidateThreshold(u.StockThreshold.Value); err != nil {
			return err
		}
	}
	return nil
}

// Change returns the requested delta, zero when absent.
func (u *StockUpdate) Change() int {
	if u.StockChange == nil {
		return 0
	}
	return u.StockChange.Value
}

// LedgerReason returns the caller's reason or the bulk default.
func (u *StockUpdate) LedgerReason() string {
	if r := strings.TrimSpace(u.Reason); r != "" {
		return r
	}
	return ReasonBulkUpdate
}

// BatchItemResult is the outcome of one bulk item.
type BatchItemResult struct {
	ProductID string     `json:"product_id"`
	Success   bool       `json:"success"`
	Inventory *Inventory `json:"inventory,omitempty"`
	ErrorCode string     `json:"error_code,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// BatchReport is returned by a bulk adjustment so callers can retry just the
// failed items.
type BatchReport struct {
	Results   []BatchItemResult `json:"results"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// Record appends a result and updates the counters.
func (r *BatchReport) Record(res BatchItemResult) {
	r.Results = append(r.Results, res)
	r.Total++
	if res.Success {
		r.Succeeded++
	} else {
		r.Failed++
	}
}
