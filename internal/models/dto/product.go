package dto

import "github.com/sellorahq/sellora-be/internal/models"

type ProductCreateRequest struct {
	ProductName string  `json:"product_name" validate:"required"`
	Category    int64   `json:"category" validate:"required"`
	SKU         string  `json:"sku" validate:"required"`
	ProductImg  *string `json:"product_img"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	Quantity    int32   `json:"quantity" validate:"gte=0"`
	Description *string `json:"description"`
}

// ProductUpdateRequest uses pointers so absent fields are left untouched.
type ProductUpdateRequest struct {
	ProductName *string  `json:"product_name"`
	Category    *int64   `json:"category"`
	SKU         *string  `json:"sku"`
	ProductImg  *string  `json:"product_img"`
	UnitPrice   *float64 `json:"unit_price" validate:"omitempty,gte=0"`
	Quantity    *int32   `json:"quantity" validate:"omitempty,gte=0"`
	Description *string  `json:"description"`
}

type ProductResponse struct {
	Message string         `json:"message"`
	Product models.Product `json:"product"`
}

type ProductPage struct {
	Count   int              `json:"count"`
	Results []models.Product `json:"results"`
}
