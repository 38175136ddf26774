package production

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sdthai/backoffice/internal/masterdata/products"
	"github.com/sdthai/backoffice/internal/shared"
	"github.com/sdthai/backoffice/internal/stock"
)

// ledgerFake records lot and movement inserts; the rest of the interface
// is unused by batch completion.
type ledgerFake struct {
	lots      []stock.Lot
	movements []stock.Movement
}

func (l *ledgerFake) WithTx(ctx context.Context, fn func(context.Context, stock.Repository) error) error {
	return fn(ctx, l)
}

func (l *ledgerFake) GetLot(ctx context.Context, id string) (*stock.Lot, error) {
	return nil, fmt.Errorf("%w: stock lot", shared.ErrNotFound)
}

func (l *ledgerFake) GetLotForUpdate(ctx context.Context, id string) (*stock.Lot, error) {
	return nil, fmt.Errorf("%w: stock lot", shared.ErrNotFound)
}

func (l *ledgerFake) LotsForProductForUpdate(ctx context.Context, productID string) ([]stock.Lot, error) {
	return nil, nil
}

func (l *ledgerFake) ListLots(ctx context.Context, productID *string) ([]stock.Lot, error) {
	return nil, nil
}

func (l *ledgerFake) InsertLot(ctx context.Context, lot stock.Lot) error {
	l.lots = append(l.lots, lot)
	return nil
}

func (l *ledgerFake) SetLotQuantities(ctx context.Context, id string, quantity, reserved, initial int) error {
	return nil
}

func (l *ledgerFake) InsertMovement(ctx context.Context, m stock.Movement) error {
	l.movements = append(l.movements, m)
	return nil
}

func (l *ledgerFake) ListMovements(ctx context.Context, lotID string) ([]stock.Movement, error) {
	return nil, nil
}

func (l *ledgerFake) GetOrder(ctx context.Context, orderID string) (*stock.OrderRef, error) {
	return nil, fmt.Errorf("%w: order", shared.ErrNotFound)
}

func (l *ledgerFake) Summary(ctx context.Context, productID *string) ([]stock.ProductSummary, error) {
	return nil, nil
}

func (l *ledgerFake) LowStock(ctx context.Context) ([]stock.LowStockAlert, error) {
	return nil, nil
}

func (l *ledgerFake) ExpiringLots(ctx context.Context, before time.Time) ([]stock.ExpiryAlert, error) {
	return nil, nil
}

type memoryBatchRepo struct {
	batches map[string]*Batch
	items   map[string][]BatchItem
	demand  []DemandRow
	ledger  *ledgerFake
	seq     int
}

func newMemoryBatchRepo() *memoryBatchRepo {
	return &memoryBatchRepo{
		batches: make(map[string]*Batch),
		items:   make(map[string][]BatchItem),
		ledger:  &ledgerFake{},
	}
}

func (r *memoryBatchRepo) WithTx(ctx context.Context, fn func(context.Context, Repository, stock.Repository) error) error {
	return fn(ctx, r, r.ledger)
}

func (r *memoryBatchRepo) Get(ctx context.Context, id string) (*Batch, error) {
	b, ok := r.batches[id]
	if !ok {
		return nil, fmt.Errorf("%w: production batch", shared.ErrNotFound)
	}
	copied := *b
	copied.Items = append([]BatchItem(nil), r.items[id]...)
	return &copied, nil
}

func (r *memoryBatchRepo) GetForUpdate(ctx context.Context, id string) (*Batch, error) {
	return r.Get(ctx, id)
}

func (r *memoryBatchRepo) List(ctx context.Context, date *time.Time) ([]Batch, error) {
	var out []Batch
	for _, b := range r.batches {
		out = append(out, *b)
	}
	return out, nil
}

func (r *memoryBatchRepo) Create(ctx context.Context, b Batch) error {
	stored := b
	r.batches[b.ID] = &stored
	return nil
}

func (r *memoryBatchRepo) InsertItem(ctx context.Context, item BatchItem) error {
	r.items[item.BatchID] = append(r.items[item.BatchID], item)
	return nil
}

func (r *memoryBatchRepo) SetStatus(ctx context.Context, id string, status BatchStatus) error {
	b, ok := r.batches[id]
	if !ok {
		return fmt.Errorf("%w: production batch", shared.ErrNotFound)
	}
	b.Status = status
	return nil
}

func (r *memoryBatchRepo) Complete(ctx context.Context, id string, expiry time.Time) error {
	b, ok := r.batches[id]
	if !ok {
		return fmt.Errorf("%w: production batch", shared.ErrNotFound)
	}
	b.Status = StatusCompleted
	b.ExpiryDate = &expiry
	return nil
}

func (r *memoryBatchRepo) SetActualQuantity(ctx context.Context, itemID string, quantity int) error {
	for _, items := range r.items {
		for i := range items {
			if items[i].ID == itemID {
				q := quantity
				items[i].ActualQuantity = &q
				return nil
			}
		}
	}
	return fmt.Errorf("%w: batch item", shared.ErrNotFound)
}

func (r *memoryBatchRepo) NextBatchNumber(ctx context.Context, day time.Time) (string, error) {
	r.seq++
	return fmt.Sprintf("%s-%03d", day.Format("20060102"), r.seq), nil
}

func (r *memoryBatchRepo) ConfirmedDemand(ctx context.Context, date time.Time) ([]DemandRow, error) {
	return r.demand, nil
}

type batchCatalog struct {
	products map[string]*products.Product
}

func (c *batchCatalog) Get(ctx context.Context, id string) (*products.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", shared.ErrNotFound, id)
	}
	return p, nil
}

func testBatchCatalog() *batchCatalog {
	return &batchCatalog{products: map[string]*products.Product{
		"tofu":   {ID: "tofu", Name: "Tofu nature", ShelfLifeDays: 10, IsActive: true},
		"tempeh": {ID: "tempeh", Name: "Tempeh", ShelfLifeDays: 21, IsActive: true},
		"seitan": {ID: "seitan", Name: "Seitan", ShelfLifeDays: 14, IsActive: false},
	}}
}

func TestPlanningViewAggregatesByProduct(t *testing.T) {
	repo := newMemoryBatchRepo()
	repo.demand = []DemandRow{
		{ProductID: "tofu", ProductName: "Tofu nature", OrderID: "o1", OrderNumber: "ORD-20250602-0001", Quantity: 4},
		{ProductID: "tempeh", ProductName: "Tempeh", OrderID: "o1", OrderNumber: "ORD-20250602-0001", Quantity: 2},
		{ProductID: "tofu", ProductName: "Tofu nature", OrderID: "o2", OrderNumber: "ORD-20250602-0002", Quantity: 6},
	}
	svc := NewService(repo, testBatchCatalog())

	lines, err := svc.PlanningView(context.Background(), time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, "tofu", lines[0].ProductID)
	require.Equal(t, 10, lines[0].TotalQuantity)
	require.Len(t, lines[0].Orders, 2)
	require.Equal(t, "tempeh", lines[1].ProductID)
	require.Equal(t, 2, lines[1].TotalQuantity)
}

func TestCreatePlansBatch(t *testing.T) {
	repo := newMemoryBatchRepo()
	svc := NewService(repo, testBatchCatalog())

	batch, err := svc.Create(context.Background(), CreateBatchRequest{
		ProductionDate: "2025-06-04",
		Items: []BatchItemInput{
			{ProductID: "tofu", Quantity: 40},
			{ProductID: "tempeh", Quantity: 20},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPlanned, batch.Status)
	require.Equal(t, "20250604-001", batch.BatchNumber)
	require.Len(t, batch.Items, 2)
	require.Nil(t, batch.Items[0].ActualQuantity)
}

func TestCreateRejectsDuplicateProduct(t *testing.T) {
	repo := newMemoryBatchRepo()
	svc := NewService(repo, testBatchCatalog())

	_, err := svc.Create(context.Background(), CreateBatchRequest{
		ProductionDate: "2025-06-04",
		Items: []BatchItemInput{
			{ProductID: "tofu", Quantity: 40},
			{ProductID: "tofu", Quantity: 10},
		},
	})
	require.ErrorIs(t, err, shared.ErrBusinessRule)
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	repo := newMemoryBatchRepo()
	svc := NewService(repo, testBatchCatalog())

	_, err := svc.Create(context.Background(), CreateBatchRequest{
		ProductionDate: "2025-06-04",
		Items:          []BatchItemInput{{ProductID: "seitan", Quantity: 5}},
	})
	require.ErrorIs(t, err, shared.ErrBusinessRule)
	require.Contains(t, err.Error(), "Seitan")
}

func TestStartRequiresPlannedBatch(t *testing.T) {
	repo := newMemoryBatchRepo()
	svc := NewService(repo, testBatchCatalog())

	batch, err := svc.Create(context.Background(), CreateBatchRequest{
		ProductionDate: "2025-06-04",
		Items:          []BatchItemInput{{ProductID: "tofu", Quantity: 40}},
	})
	require.NoError(t, err)

	started, err := svc.Start(context.Background(), batch.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, started.Status)

	_, err = svc.Start(context.Background(), batch.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCompleteCreatesLotsWithShelfLifeExpiry(t *testing.T) {
	repo := newMemoryBatchRepo()
	svc := NewService(repo, testBatchCatalog())

	batch, err := svc.Create(context.Background(), CreateBatchRequest{
		ProductionDate: "2025-06-04",
		Items: []BatchItemInput{
			{ProductID: "tofu", Quantity: 40},
			{ProductID: "tempeh", Quantity: 20},
		},
	})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), batch.ID)
	require.NoError(t, err)

	completed, err := svc.Complete(context.Background(), batch.ID, CompleteBatchRequest{
		ActualQuantities: map[string]int{"tofu": 38},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)

	require.Len(t, repo.ledger.lots, 2)
	tofuLot := repo.ledger.lots[0]
	require.Equal(t, "tofu", tofuLot.ProductID)
	require.Equal(t, 38, tofuLot.Quantity)
	require.Equal(t, 38, tofuLot.InitialQuantity)
	require.Equal(t, batch.ID, *tofuLot.BatchID)
	// Tofu keeps 10 days, tempeh 21.
	require.Equal(t, tofuLot.ProductionDate.AddDate(0, 0, 10), tofuLot.ExpiryDate)
	tempehLot := repo.ledger.lots[1]
	require.Equal(t, 20, tempehLot.Quantity)
	require.Equal(t, tempehLot.ProductionDate.AddDate(0, 0, 21), tempehLot.ExpiryDate)

	// The batch expiry is the earliest item expiry.
	require.NotNil(t, completed.ExpiryDate)
	require.Equal(t, tofuLot.ExpiryDate, *completed.ExpiryDate)

	// Actual quantities recorded, defaulting to plan where absent.
	require.Equal(t, 38, *completed.Items[0].ActualQuantity)
	require.Equal(t, 20, *completed.Items[1].ActualQuantity)

	require.Len(t, repo.ledger.movements, 2)
	require.Equal(t, stock.MovementInProduction, repo.ledger.movements[0].Type)
	require.Equal(t, batch.BatchNumber, *repo.ledger.movements[0].Reference)
}

func TestCompleteSkipsZeroActual(t *testing.T) {
	repo := newMemoryBatchRepo()
	svc := NewService(repo, testBatchCatalog())

	batch, err := svc.Create(context.Background(), CreateBatchRequest{
		ProductionDate: "2025-06-04",
		Items: []BatchItemInput{
			{ProductID: "tofu", Quantity: 40},
			{ProductID: "tempeh", Quantity: 20},
		},
	})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), batch.ID)
	require.NoError(t, err)

	completed, err := svc.Complete(context.Background(), batch.ID, CompleteBatchRequest{
		ActualQuantities: map[string]int{"tofu": 0},
	})
	require.NoError(t, err)
	require.Len(t, repo.ledger.lots, 1)
	require.Equal(t, "tempeh", repo.ledger.lots[0].ProductID)
	require.Equal(t, 0, *completed.Items[0].ActualQuantity)
}

func TestCompleteRejectsUnplannedProduct(t *testing.T) {
	repo := newMemoryBatchRepo()
	svc := NewService(repo, testBatchCatalog())

	batch, err := svc.Create(context.Background(), CreateBatchRequest{
		ProductionDate: "2025-06-04",
		Items:          []BatchItemInput{{ProductID: "tofu", Quantity: 40}},
	})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), batch.ID)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), batch.ID, CompleteBatchRequest{
		ActualQuantities: map[string]int{"tempeh": 5},
	})
	require.ErrorIs(t, err, shared.ErrBusinessRule)

	_, err = svc.Complete(context.Background(), batch.ID, CompleteBatchRequest{
		ActualQuantities: map[string]int{"tofu": -1},
	})
	require.ErrorIs(t, err, shared.ErrBusinessRule)
}

func TestCompleteRequiresInProgress(t *testing.T) {
	repo := newMemoryBatchRepo()
	svc := NewService(repo, testBatchCatalog())

	batch, err := svc.Create(context.Background(), CreateBatchRequest{
		ProductionDate: "2025-06-04",
		Items:          []BatchItemInput{{ProductID: "tofu", Quantity: 40}},
	})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), batch.ID, CompleteBatchRequest{})
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Empty(t, repo.ledger.lots)
}

func TestCancelRejectsCompletedBatch(t *testing.T) {
	repo := newMemoryBatchRepo()
	svc := NewService(repo, testBatchCatalog())

	batch, err := svc.Create(context.Background(), CreateBatchRequest{
		ProductionDate: "2025-06-04",
		Items:          []BatchItemInput{{ProductID: "tofu", Quantity: 40}},
	})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), batch.ID)
	require.NoError(t, err)
	_, err = svc.Complete(context.Background(), batch.ID, CompleteBatchRequest{})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), batch.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}
