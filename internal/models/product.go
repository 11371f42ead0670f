package models

// Product is a catalog entry owned by a single seller.
type Product struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user"`
	ProductName string  `json:"product_name"`
	CategoryID  int64   `json:"category"`
	SKU         string  `json:"sku"`
	ProductImg  *string `json:"product_img,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int32   `json:"quantity"`
	Description *string `json:"description,omitempty"`
}

// Category groups products; rows are seeded at migration time.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
