package domain

// Product is the slice of a catalog product this service reads. Only
// InStock is written here, always together with the stock it derives from.
type Product struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	InStock bool   `json:"in_stock"`
}
