package pos

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sdthai/backoffice/internal/masterdata/products"
	"github.com/sdthai/backoffice/internal/partners"
	"github.com/sdthai/backoffice/internal/shared"
)

type memoryPosRepo struct {
	transactions map[string]*Transaction
}

func newMemoryPosRepo() *memoryPosRepo {
	return &memoryPosRepo{transactions: make(map[string]*Transaction)}
}

func (r *memoryPosRepo) Create(ctx context.Context, t Transaction) error {
	stored := t
	r.transactions[t.ID] = &stored
	return nil
}

func (r *memoryPosRepo) Get(ctx context.Context, id string) (*Transaction, error) {
	t, ok := r.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: pos transaction", shared.ErrNotFound)
	}
	copied := *t
	return &copied, nil
}

func (r *memoryPosRepo) List(ctx context.Context, partnerID *string, from, to time.Time) ([]Transaction, error) {
	var out []Transaction
	for _, t := range r.transactions {
		out = append(out, *t)
	}
	return out, nil
}

func (r *memoryPosRepo) Stats(ctx context.Context, partnerID *string, from, to time.Time) (*Stats, error) {
	return &Stats{From: from, To: to}, nil
}

type posPartners struct {
	partners map[string]*partners.Partner
}

func (m *posPartners) Get(ctx context.Context, id string) (*partners.Partner, error) {
	p, ok := m.partners[id]
	if !ok {
		return nil, fmt.Errorf("%w: partner %s", shared.ErrNotFound, id)
	}
	return p, nil
}

type posCatalog struct {
	products map[string]*products.Product
}

func (c *posCatalog) Get(ctx context.Context, id string) (*products.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", shared.ErrNotFound, id)
	}
	return p, nil
}

func (c *posCatalog) GetByBarcode(ctx context.Context, barcode string) (*products.Product, error) {
	for _, p := range c.products {
		if p.Barcode == barcode {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: barcode %s", shared.ErrNotFound, barcode)
}

func newPosService(t *testing.T) (*Service, *memoryPosRepo) {
	t.Helper()
	repo := newMemoryPosRepo()
	lookup := &posPartners{partners: map[string]*partners.Partner{
		"depot1":      {ID: "depot1", Name: "Depot Gare", Type: partners.TypeDepotAutomate, IsActive: true},
		"restaurant1": {ID: "restaurant1", Name: "Chez Marcel", Type: partners.TypeRestaurant, IsActive: true},
	}}
	catalog := &posCatalog{products: map[string]*products.Product{
		"tofu":   {ID: "tofu", Name: "Tofu nature", Barcode: "761234", PriceB2B: decimal.RequireFromString("12.50"), IsActive: true},
		"tempeh": {ID: "tempeh", Name: "Tempeh", Barcode: "761235", PriceB2B: decimal.RequireFromString("10.50"), IsActive: true},
	}}
	svc, err := NewService(repo, lookup, catalog, "0.081")
	require.NoError(t, err)
	return svc, repo
}

func TestCreateSaleHasNoMinimum(t *testing.T) {
	svc, _ := newPosService(t)

	sale, err := svc.Create(context.Background(), CreateTransactionRequest{
		PartnerID:     "depot1",
		PaymentMethod: PaymentTwint,
		Items:         []SaleItemInput{{ProductID: "tofu", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, "12.50", sale.Subtotal.StringFixed(2))
	require.Equal(t, "1.01", sale.VATAmount.StringFixed(2))
	require.Equal(t, "13.51", sale.Total.StringFixed(2))
	require.Len(t, sale.Lines, 1)
}

func TestCreateSaleTotalsMultipleLines(t *testing.T) {
	svc, _ := newPosService(t)

	sale, err := svc.Create(context.Background(), CreateTransactionRequest{
		PartnerID:     "depot1",
		PaymentMethod: PaymentCash,
		Items: []SaleItemInput{
			{ProductID: "tofu", Quantity: 2},
			{ProductID: "tempeh", Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "35.50", sale.Subtotal.StringFixed(2))
	require.Equal(t, "2.88", sale.VATAmount.StringFixed(2))
	require.Equal(t, "38.38", sale.Total.StringFixed(2))
	require.True(t, sale.Total.Equal(sale.Subtotal.Add(sale.VATAmount)))
}

func TestCreateSaleRejectsNonDepotPartner(t *testing.T) {
	svc, repo := newPosService(t)

	_, err := svc.Create(context.Background(), CreateTransactionRequest{
		PartnerID:     "restaurant1",
		PaymentMethod: PaymentCard,
		Items:         []SaleItemInput{{ProductID: "tofu", Quantity: 1}},
	})
	require.ErrorIs(t, err, shared.ErrBusinessRule)
	require.Contains(t, err.Error(), "depot automate")
	require.Empty(t, repo.transactions)
}

func TestCreateSaleRejectsUnknownProduct(t *testing.T) {
	svc, repo := newPosService(t)

	_, err := svc.Create(context.Background(), CreateTransactionRequest{
		PartnerID:     "depot1",
		PaymentMethod: PaymentCash,
		Items:         []SaleItemInput{{ProductID: "seitan", Quantity: 1}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.transactions)
}
