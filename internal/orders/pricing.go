package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sdthai/backoffice/internal/masterdata/products"
	"github.com/sdthai/backoffice/internal/shared"
)

// ProductLookup is the slice of the catalog the pricer needs.
type ProductLookup interface {
	Get(ctx context.Context, id string) (*products.Product, error)
}

// Pricer computes order totals. The VAT amount is recomputed from the final
// subtotal, not summed per line, so line rounding can never drift the total.
type Pricer struct {
	VATRate       decimal.Decimal
	MinOrderValue decimal.Decimal
}

// NewPricer builds a Pricer from configured string constants.
func NewPricer(vatRate, minOrderValue string) (Pricer, error) {
	vat, err := decimal.NewFromString(vatRate)
	if err != nil {
		return Pricer{}, fmt.Errorf("pricing: invalid VAT rate %q", vatRate)
	}
	minimum, err := decimal.NewFromString(minOrderValue)
	if err != nil {
		return Pricer{}, fmt.Errorf("pricing: invalid minimum order value %q", minOrderValue)
	}
	return Pricer{VATRate: vat, MinOrderValue: minimum}, nil
}

// PricingResult is a priced cart.
type PricingResult struct {
	Lines     []OrderLine
	Subtotal  decimal.Decimal
	VATAmount decimal.Decimal
	Total     decimal.Decimal
}

// Price looks up and freezes unit prices for the requested items and
// computes subtotal, VAT and total. Inactive or unknown products reject.
// The minimum-order rule is skipped for urgent orders, mirroring the
// deadline bypass.
func (p Pricer) Price(ctx context.Context, catalog ProductLookup, items []OrderItemInput, isUrgent bool) (PricingResult, error) {
	var result PricingResult
	subtotal := decimal.Zero

	for _, item := range items {
		if item.Quantity <= 0 {
			return PricingResult{}, fmt.Errorf("%w: quantity must be positive for product %s", shared.ErrBusinessRule, item.ProductID)
		}
		product, err := catalog.Get(ctx, item.ProductID)
		if err != nil {
			return PricingResult{}, fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		if !product.IsActive {
			return PricingResult{}, fmt.Errorf("%w: product %s is not active", shared.ErrBusinessRule, product.Name)
		}
		lineSubtotal := product.PriceB2B.Mul(decimal.NewFromInt(int64(item.Quantity)))
		result.Lines = append(result.Lines, OrderLine{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			UnitPrice: product.PriceB2B,
			Subtotal:  lineSubtotal,
		})
		subtotal = subtotal.Add(lineSubtotal)
	}

	if !isUrgent && subtotal.LessThan(p.MinOrderValue) {
		return PricingResult{}, fmt.Errorf("%w: minimum order amount is %s CHF (excluding VAT)", shared.ErrBusinessRule, p.MinOrderValue.StringFixed(0))
	}

	result.Subtotal = subtotal
	result.VATAmount = subtotal.Mul(p.VATRate).Round(2)
	result.Total = result.Subtotal.Add(result.VATAmount)
	return result, nil
}
