package stock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sdthai/backoffice/internal/shared"
)

// memoryStockRepo keeps lots in insertion order, which the tests maintain
// as FEFO order, matching the repository's sorted reads.
type memoryStockRepo struct {
	lots      []*Lot
	movements []Movement
	orders    map[string]*OrderRef
	expiring  []ExpiryAlert
	lowStock  []LowStockAlert
}

func newMemoryStockRepo() *memoryStockRepo {
	return &memoryStockRepo{orders: make(map[string]*OrderRef)}
}

// WithTx rolls the fake back on error the way the real transaction would.
func (r *memoryStockRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	snapshot := make([]Lot, len(r.lots))
	for i, lot := range r.lots {
		snapshot[i] = *lot
	}
	movementsLen := len(r.movements)
	if err := fn(ctx, r); err != nil {
		r.lots = r.lots[:len(snapshot)]
		for i := range snapshot {
			*r.lots[i] = snapshot[i]
		}
		r.movements = r.movements[:movementsLen]
		return err
	}
	return nil
}

func (r *memoryStockRepo) find(id string) *Lot {
	for _, lot := range r.lots {
		if lot.ID == id {
			return lot
		}
	}
	return nil
}

func (r *memoryStockRepo) GetLot(ctx context.Context, id string) (*Lot, error) {
	lot := r.find(id)
	if lot == nil {
		return nil, fmt.Errorf("%w: stock lot", shared.ErrNotFound)
	}
	copied := *lot
	return &copied, nil
}

func (r *memoryStockRepo) GetLotForUpdate(ctx context.Context, id string) (*Lot, error) {
	return r.GetLot(ctx, id)
}

func (r *memoryStockRepo) LotsForProductForUpdate(ctx context.Context, productID string) ([]Lot, error) {
	var out []Lot
	for _, lot := range r.lots {
		if lot.ProductID == productID {
			out = append(out, *lot)
		}
	}
	return out, nil
}

func (r *memoryStockRepo) ListLots(ctx context.Context, productID *string) ([]Lot, error) {
	var out []Lot
	for _, lot := range r.lots {
		if productID == nil || lot.ProductID == *productID {
			out = append(out, *lot)
		}
	}
	return out, nil
}

func (r *memoryStockRepo) InsertLot(ctx context.Context, lot Lot) error {
	stored := lot
	r.lots = append(r.lots, &stored)
	return nil
}

func (r *memoryStockRepo) SetLotQuantities(ctx context.Context, id string, quantity, reserved, initial int) error {
	lot := r.find(id)
	if lot == nil {
		return fmt.Errorf("%w: stock lot", shared.ErrNotFound)
	}
	lot.Quantity = quantity
	lot.ReservedQuantity = reserved
	lot.InitialQuantity = initial
	return nil
}

func (r *memoryStockRepo) InsertMovement(ctx context.Context, m Movement) error {
	r.movements = append(r.movements, m)
	return nil
}

func (r *memoryStockRepo) ListMovements(ctx context.Context, lotID string) ([]Movement, error) {
	var out []Movement
	for _, m := range r.movements {
		if m.LotID == lotID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryStockRepo) GetOrder(ctx context.Context, orderID string) (*OrderRef, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order", shared.ErrNotFound)
	}
	return o, nil
}

func (r *memoryStockRepo) Summary(ctx context.Context, productID *string) ([]ProductSummary, error) {
	return nil, nil
}

func (r *memoryStockRepo) LowStock(ctx context.Context) ([]LowStockAlert, error) {
	return r.lowStock, nil
}

func (r *memoryStockRepo) ExpiringLots(ctx context.Context, before time.Time) ([]ExpiryAlert, error) {
	return r.expiring, nil
}

func (r *memoryStockRepo) seedLot(id, productID string, quantity, expiryDays int) {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	r.lots = append(r.lots, &Lot{
		ID:              id,
		ProductID:       productID,
		InitialQuantity: quantity,
		Quantity:        quantity,
		Purpose:         PurposeSale,
		ProductionDate:  base,
		ExpiryDate:      base.AddDate(0, 0, expiryDays),
	})
}

func (r *memoryStockRepo) seedOrder(id, number string, lines ...OrderLineRef) {
	r.orders[id] = &OrderRef{ID: id, OrderNumber: number, Status: "CONFIRMED", Lines: lines}
}

func TestReserveTakesOldestLotsFirst(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	repo.seedLot("lot2", "tofu", 10, 10)
	repo.seedOrder("o1", "ORD-20250602-0001", OrderLineRef{ProductID: "tofu", Quantity: 7})
	svc := NewService(repo, 7*24*time.Hour)

	reservations, err := svc.Reserve(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, []Reservation{{LotID: "lot1", Quantity: 5}, {LotID: "lot2", Quantity: 2}}, reservations)
	require.Equal(t, 5, repo.find("lot1").ReservedQuantity)
	require.Equal(t, 2, repo.find("lot2").ReservedQuantity)
	// Reservation is a hold, not a consumption.
	require.Equal(t, 5, repo.find("lot1").Quantity)
	require.Equal(t, 10, repo.find("lot2").Quantity)
}

func TestReserveShortfallHoldsNothing(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	repo.seedLot("lot2", "tempeh", 2, 10)
	repo.seedOrder("o1", "ORD-20250602-0001",
		OrderLineRef{ProductID: "tofu", Quantity: 3},
		OrderLineRef{ProductID: "tempeh", Quantity: 4},
	)
	svc := NewService(repo, 7*24*time.Hour)

	_, err := svc.Reserve(context.Background(), "o1")
	require.ErrorIs(t, err, shared.ErrBusinessRule)
	require.Contains(t, err.Error(), "tempeh")
	require.Contains(t, err.Error(), "short 2")
	// The feasible tofu line must not be left held.
	require.Equal(t, 0, repo.find("lot1").ReservedQuantity)
	require.Equal(t, 0, repo.find("lot2").ReservedQuantity)
}

func TestReserveSkipsFullyHeldLots(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	repo.seedLot("lot2", "tofu", 10, 10)
	repo.find("lot1").ReservedQuantity = 5
	repo.seedOrder("o1", "ORD-20250602-0001", OrderLineRef{ProductID: "tofu", Quantity: 4})
	svc := NewService(repo, 7*24*time.Hour)

	reservations, err := svc.Reserve(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, []Reservation{{LotID: "lot2", Quantity: 4}}, reservations)
}

func TestReserveRejectsCancelledOrder(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	repo.seedOrder("o1", "ORD-20250602-0001", OrderLineRef{ProductID: "tofu", Quantity: 1})
	repo.orders["o1"].Status = "CANCELLED"
	svc := NewService(repo, 7*24*time.Hour)

	_, err := svc.Reserve(context.Background(), "o1")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestReleaseRestoresHolds(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	repo.seedLot("lot2", "tofu", 10, 10)
	repo.seedOrder("o1", "ORD-20250602-0001", OrderLineRef{ProductID: "tofu", Quantity: 7})
	svc := NewService(repo, 7*24*time.Hour)

	_, err := svc.Reserve(context.Background(), "o1")
	require.NoError(t, err)
	require.NoError(t, svc.Release(context.Background(), "o1"))
	require.Equal(t, 0, repo.find("lot1").ReservedQuantity)
	require.Equal(t, 0, repo.find("lot2").ReservedQuantity)
	require.Equal(t, 5, repo.find("lot1").Quantity)
	require.Equal(t, 10, repo.find("lot2").Quantity)
}

func TestReleaseIsBoundedByCurrentHolds(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	repo.find("lot1").ReservedQuantity = 2
	repo.seedOrder("o1", "ORD-20250602-0001", OrderLineRef{ProductID: "tofu", Quantity: 7})
	svc := NewService(repo, 7*24*time.Hour)

	require.NoError(t, svc.Release(context.Background(), "o1"))
	require.Equal(t, 0, repo.find("lot1").ReservedQuantity)
}

func TestDecrementConsumesFEFOAndWritesMovements(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	repo.seedLot("lot2", "tofu", 10, 10)
	repo.seedOrder("o1", "ORD-20250602-0001", OrderLineRef{ProductID: "tofu", Quantity: 7})
	svc := NewService(repo, 7*24*time.Hour)

	_, err := svc.Reserve(context.Background(), "o1")
	require.NoError(t, err)
	movements, err := svc.Decrement(context.Background(), "o1")
	require.NoError(t, err)

	require.Equal(t, 0, repo.find("lot1").Quantity)
	require.Equal(t, 8, repo.find("lot2").Quantity)
	require.Equal(t, 0, repo.find("lot1").ReservedQuantity)
	require.Equal(t, 0, repo.find("lot2").ReservedQuantity)

	require.Len(t, movements, 2)
	require.Equal(t, MovementOutDelivery, movements[0].Type)
	require.Equal(t, "lot1", movements[0].LotID)
	require.Equal(t, -5, movements[0].Quantity)
	require.Equal(t, "lot2", movements[1].LotID)
	require.Equal(t, -2, movements[1].Quantity)
	require.Equal(t, "ORD-20250602-0001", *movements[0].Reference)
}

func TestDecrementWithoutReservationFloorsReservedAtZero(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	repo.seedOrder("o1", "ORD-20250602-0001", OrderLineRef{ProductID: "tofu", Quantity: 3})
	svc := NewService(repo, 7*24*time.Hour)

	_, err := svc.Decrement(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, 2, repo.find("lot1").Quantity)
	require.Equal(t, 0, repo.find("lot1").ReservedQuantity)
}

func TestDecrementShortfallLeavesStockIntact(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	repo.seedLot("lot2", "tempeh", 2, 10)
	repo.seedOrder("o1", "ORD-20250602-0001",
		OrderLineRef{ProductID: "tofu", Quantity: 3},
		OrderLineRef{ProductID: "tempeh", Quantity: 4},
	)
	svc := NewService(repo, 7*24*time.Hour)

	_, err := svc.Decrement(context.Background(), "o1")
	require.ErrorIs(t, err, shared.ErrBusinessRule)
	require.Equal(t, 5, repo.find("lot1").Quantity)
	require.Equal(t, 2, repo.find("lot2").Quantity)
	require.Empty(t, repo.movements)
}

func TestDecrementSumsDuplicateLinesBeforeChecking(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	repo.seedOrder("o1", "ORD-20250602-0001",
		OrderLineRef{ProductID: "tofu", Quantity: 3},
		OrderLineRef{ProductID: "tofu", Quantity: 3},
	)
	svc := NewService(repo, 7*24*time.Hour)

	// Each line fits on its own but together they exceed the lot.
	_, err := svc.Decrement(context.Background(), "o1")
	require.ErrorIs(t, err, shared.ErrBusinessRule)
	require.Contains(t, err.Error(), "short 1")
	require.Equal(t, 5, repo.find("lot1").Quantity)
	require.Empty(t, repo.movements)
}

func TestDecrementConsumesDuplicateLinesAcrossLots(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	repo.seedLot("lot2", "tofu", 10, 10)
	repo.seedOrder("o1", "ORD-20250602-0001",
		OrderLineRef{ProductID: "tofu", Quantity: 3},
		OrderLineRef{ProductID: "tofu", Quantity: 4},
	)
	svc := NewService(repo, 7*24*time.Hour)

	movements, err := svc.Decrement(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, 0, repo.find("lot1").Quantity)
	require.Equal(t, 8, repo.find("lot2").Quantity)
	require.Len(t, movements, 2)
	require.Equal(t, -5, movements[0].Quantity)
	require.Equal(t, -2, movements[1].Quantity)
}

func TestAdjustMovesInitialWithDelta(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	svc := NewService(repo, 7*24*time.Hour)

	notes := "crate dropped during loading"
	lot, err := svc.Adjust(context.Background(), "lot1", AdjustRequest{Delta: -2, Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, 3, lot.Quantity)
	require.Equal(t, 3, lot.InitialQuantity)

	movements, err := svc.Movements(context.Background(), "lot1")
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, MovementAdjustment, movements[0].Type)
	require.Equal(t, -2, movements[0].Quantity)
}

func TestAdjustRejectsNegativeResult(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	svc := NewService(repo, 7*24*time.Hour)

	_, err := svc.Adjust(context.Background(), "lot1", AdjustRequest{Delta: -6})
	require.ErrorIs(t, err, shared.ErrBusinessRule)
	require.Equal(t, 5, repo.find("lot1").Quantity)
}

func TestAdjustRejectsDroppingBelowReserved(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	repo.find("lot1").ReservedQuantity = 4
	svc := NewService(repo, 7*24*time.Hour)

	_, err := svc.Adjust(context.Background(), "lot1", AdjustRequest{Delta: -2})
	require.ErrorIs(t, err, shared.ErrBusinessRule)
	require.Contains(t, err.Error(), "reserved")
}

func TestReturnToStockCreditsFreshestLot(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.seedLot("lot1", "tofu", 5, 3)
	repo.seedLot("lot2", "tofu", 10, 10)
	svc := NewService(repo, 7*24*time.Hour)

	require.NoError(t, svc.ReturnToStock(context.Background(), "tofu", 3, "return r1"))
	require.Equal(t, 5, repo.find("lot1").Quantity)
	require.Equal(t, 13, repo.find("lot2").Quantity)

	movements, err := svc.Movements(context.Background(), "lot2")
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, MovementInReturn, movements[0].Type)
	require.Equal(t, 3, movements[0].Quantity)
	require.Equal(t, "return r1", *movements[0].Reference)
}

func TestReturnToStockNeedsAnExistingLot(t *testing.T) {
	repo := newMemoryStockRepo()
	svc := NewService(repo, 7*24*time.Hour)

	err := svc.ReturnToStock(context.Background(), "tofu", 3, "return r1")
	require.ErrorIs(t, err, shared.ErrBusinessRule)

	err = svc.ReturnToStock(context.Background(), "tofu", 0, "return r1")
	require.ErrorIs(t, err, shared.ErrBusinessRule)
}

func TestCreateLotRejectsExpiryBeforeProduction(t *testing.T) {
	repo := newMemoryStockRepo()
	svc := NewService(repo, 7*24*time.Hour)

	_, err := svc.CreateLot(context.Background(), CreateLotRequest{
		ProductID:      "tofu",
		Quantity:       10,
		ProductionDate: "2025-06-02",
		ExpiryDate:     "2025-05-30",
	})
	require.ErrorIs(t, err, shared.ErrBusinessRule)
	require.Empty(t, repo.lots)
}

func TestCreateLotDefaultsPurposeAndRecordsIntake(t *testing.T) {
	repo := newMemoryStockRepo()
	svc := NewService(repo, 7*24*time.Hour)

	lot, err := svc.CreateLot(context.Background(), CreateLotRequest{
		ProductID:      "tofu",
		Quantity:       10,
		ProductionDate: "2025-06-02",
		ExpiryDate:     "2025-06-12",
	})
	require.NoError(t, err)
	require.Equal(t, PurposeSale, lot.Purpose)
	require.Equal(t, 10, lot.Quantity)
	require.Equal(t, 10, lot.InitialQuantity)

	movements, err := svc.Movements(context.Background(), lot.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, MovementInProduction, movements[0].Type)
}
