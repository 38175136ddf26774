package pos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sdthai/backoffice/internal/masterdata/products"
	"github.com/sdthai/backoffice/internal/partners"
	"github.com/sdthai/backoffice/internal/shared"
)

// PartnerLookup resolves the depot a sale belongs to.
type PartnerLookup interface {
	Get(ctx context.Context, id string) (*partners.Partner, error)
}

// ProductLookup resolves sold products.
type ProductLookup interface {
	Get(ctx context.Context, id string) (*products.Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*products.Product, error)
}

// Service records depot-automate sales. Sales have no minimum amount and
// no deadline; they are settled on the spot.
type Service struct {
	repo     Repository
	partners PartnerLookup
	catalog  ProductLookup
	vatRate  decimal.Decimal
}

// NewService builds Service.
func NewService(repo Repository, partnerLookup PartnerLookup, catalog ProductLookup, vatRate string) (*Service, error) {
	vat, err := decimal.NewFromString(vatRate)
	if err != nil {
		return nil, fmt.Errorf("pos: invalid VAT rate %q", vatRate)
	}
	return &Service{repo: repo, partners: partnerLookup, catalog: catalog, vatRate: vat}, nil
}

// Create records a sale for a depot automate partner.
func (s *Service) Create(ctx context.Context, req CreateTransactionRequest) (*Transaction, error) {
	partner, err := s.partners.Get(ctx, req.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("partner %s: %w", req.PartnerID, err)
	}
	if partner.Type != partners.TypeDepotAutomate {
		return nil, fmt.Errorf("%w: partner %s is not a depot automate", shared.ErrBusinessRule, partner.Name)
	}
	if !partner.IsActive {
		return nil, fmt.Errorf("%w: partner %s is not active", shared.ErrBusinessRule, partner.Name)
	}

	t := Transaction{
		ID:            uuid.NewString(),
		PartnerID:     partner.ID,
		PaymentMethod: req.PaymentMethod,
	}
	subtotal := decimal.Zero
	for _, item := range req.Items {
		product, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: product %s is not active", shared.ErrBusinessRule, product.Name)
		}
		lineSubtotal := product.PriceB2B.Mul(decimal.NewFromInt(int64(item.Quantity)))
		t.Lines = append(t.Lines, TransactionLine{
			ID:            uuid.NewString(),
			TransactionID: t.ID,
			ProductID:     product.ID,
			Quantity:      item.Quantity,
			UnitPrice:     product.PriceB2B,
			Subtotal:      lineSubtotal,
		})
		subtotal = subtotal.Add(lineSubtotal)
	}
	t.Subtotal = subtotal
	t.VATAmount = subtotal.Mul(s.vatRate).Round(2)
	t.Total = t.Subtotal.Add(t.VATAmount)

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, t.ID)
}

// Get returns one transaction with its lines.
func (s *Service) Get(ctx context.Context, id string) (*Transaction, error) {
	return s.repo.Get(ctx, id)
}

// List returns transactions in [from, to), optionally for one depot.
func (s *Service) List(ctx context.Context, partnerID *string, from, to time.Time) ([]Transaction, error) {
	return s.repo.List(ctx, partnerID, from, to)
}

// Stats aggregates turnover by payment method over [from, to).
func (s *Service) Stats(ctx context.Context, partnerID *string, from, to time.Time) (*Stats, error) {
	return s.repo.Stats(ctx, partnerID, from, to)
}
