package domain

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Variant is a purchasable configuration of a product with its own stock.
type Variant struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"product_id"`
	SKU           string           `json:"sku"`
	StockQuantity int              `json:"stock_quantity"`
	InStock       bool             `json:"in_stock"`
	Attributes    []AttributeValue `json:"attributes,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Available reports whether the variant can be sold: it must be flagged in
// stock and hold at least one unit. The flag alone is not enough because
// staff may mark a stocked variant unavailable.
func (v *Variant) Available() bool {
	return v.InStock && v.StockQuantity > 0
}

// AttributeValue associates a variant with one value of one attribute,
// e.g. size=M.
type AttributeValue struct {
	AttributeID string `json:"attribute_id"`
	ValueID     string `json:"value_id"`
}

// AttributeSelection maps attribute IDs to the chosen value IDs.
type AttributeSelection map[string]string

// Validate rejects empty selections and blank IDs.
func (s AttributeSelection) Validate() error {
	if len(s) == 0 {
		return errors.New("attribute selection is empty")
	}
	for attr, value := range s {
		if strings.TrimSpace(attr) == "" || strings.TrimSpace(value) == "" {
			return errors.New("attribute selection contains a blank id")
		}
	}
	return nil
}

// Values returns the selection as attribute values ordered by attribute ID.
func (s AttributeSelection) Values() []AttributeValue {
	out := make([]AttributeValue, 0, len(s))
	for attr, value := range s {
		out = append(out, AttributeValue{AttributeID: attr, ValueID: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttributeID < out[j].AttributeID })
	return out
}

// CombinationKey renders attribute values in canonical order. Two variants of
// one product must never share a key.
func CombinationKey(values []AttributeValue) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, v.AttributeID+"="+v.ValueID)
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

// VariantAdjustment is the outcome of a variant stock change.
type VariantAdjustment struct {
	Variant   Variant    `json:"variant"`
	Requested int        `json:"requested"`
	Applied   int        `json:"applied"`
	Inventory *Inventory `json:"inventory,omitempty"`
}
