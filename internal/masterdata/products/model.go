package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the canonical catalog record. Identity (ID, SKU, barcode) is
// immutable once created; price and the active flag are admin-mutable.
// ShelfLifeDays is read only at batch completion to compute lot expiry.
type Product struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Barcode       string          `json:"barcode"`
	Name          string          `json:"name"`
	PriceB2B      decimal.Decimal `json:"priceB2b"`
	ShelfLifeDays int             `json:"shelfLifeDays"`
	MinStockAlert int             `json:"minStockAlert"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// PublicProduct is the reduced shape served to the marketing site.
type PublicProduct struct {
	ID       string          `json:"id"`
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	PriceB2B decimal.Decimal `json:"priceB2b"`
}

// CreateProductRequest carries admin input for a new product.
type CreateProductRequest struct {
	SKU           string `json:"sku" validate:"required"`
	Barcode       string `json:"barcode" validate:"required"`
	Name          string `json:"name" validate:"required"`
	PriceB2B      string `json:"priceB2b" validate:"required"`
	ShelfLifeDays int    `json:"shelfLifeDays" validate:"required,gt=0"`
	MinStockAlert int    `json:"minStockAlert" validate:"gte=0"`
}

// UpdateProductRequest carries partial admin updates.
type UpdateProductRequest struct {
	Name          *string `json:"name,omitempty"`
	PriceB2B      *string `json:"priceB2b,omitempty"`
	ShelfLifeDays *int    `json:"shelfLifeDays,omitempty" validate:"omitempty,gt=0"`
	MinStockAlert *int    `json:"minStockAlert,omitempty" validate:"omitempty,gte=0"`
	IsActive      *bool   `json:"isActive,omitempty"`
}
