package domain

// StockBand classifies a variant's quantity against its threshold.
type StockBand string

const (
	BandOK  StockBand = "ok"
	BandLow StockBand = "low"
	BandOut StockBand = "out"
)

// VariantIsLow reports 0 < quantity <= threshold. Zero is out of stock, a
// separate state, even when the threshold is positive.
func VariantIsLow(quantity, threshold int) bool {
	return quantity > 0 && quantity <= threshold
}

// ClassifyVariant returns the band for quantity.
func ClassifyVariant(quantity, threshold int) StockBand {
	switch {
	case quantity <= 0:
		return BandOut
	case VariantIsLow(quantity, threshold):
		return BandLow
	default:
		return BandOK
	}
}

// VariantAlert is a variant whose stock needs attention, evaluated against
// the owning product's threshold.
type VariantAlert struct {
	VariantID     string    `json:"variant_id"`
	ProductID     string    `json:"product_id"`
	SKU           string    `json:"sku"`
	StockQuantity int       `json:"stock_quantity"`
	Threshold     int       `json:"threshold"`
	Band          StockBand `json:"band"`
}

// SplitVariantAlerts classifies candidates into low and out bands and drops
// the rest.
func SplitVariantAlerts(candidates []VariantAlert) (low, out []VariantAlert) {
	low, out = []VariantAlert{}, []VariantAlert{}
	for _, c := range candidates {
		c.Band = ClassifyVariant(c.StockQuantity, c.Threshold)
		switch c.Band {
		case BandLow:
			low = append(low, c)
		case BandOut:
			out = append(out, c)
		}
	}
	return low, out
}

// LowStockReport is the combined product and variant view.
type LowStockReport struct {
	Products           []Inventory    `json:"products"`
	ProductsTotal      int            `json:"products_total"`
	Variants           []VariantAlert `json:"variants"`
	OutOfStockVariants []VariantAlert `json:"out_of_stock_variants"`
}
