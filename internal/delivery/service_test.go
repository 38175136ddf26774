package delivery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sdthai/backoffice/internal/orders"
	"github.com/sdthai/backoffice/internal/shared"
	"github.com/sdthai/backoffice/internal/stock"
)

type memoryDeliveryRepo struct {
	deliveries map[string]*Delivery
}

func newMemoryDeliveryRepo() *memoryDeliveryRepo {
	return &memoryDeliveryRepo{deliveries: make(map[string]*Delivery)}
}

func (r *memoryDeliveryRepo) Get(ctx context.Context, id string) (*Delivery, error) {
	d, ok := r.deliveries[id]
	if !ok {
		return nil, fmt.Errorf("%w: delivery", shared.ErrNotFound)
	}
	copied := *d
	return &copied, nil
}

func (r *memoryDeliveryRepo) GetByOrder(ctx context.Context, orderID string) (*Delivery, error) {
	for _, d := range r.deliveries {
		if d.OrderID == orderID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: delivery", shared.ErrNotFound)
}

func (r *memoryDeliveryRepo) List(ctx context.Context, req ListDeliveriesRequest) ([]Delivery, error) {
	var out []Delivery
	for _, d := range r.deliveries {
		out = append(out, *d)
	}
	return out, nil
}

func (r *memoryDeliveryRepo) Create(ctx context.Context, d Delivery) error {
	for _, existing := range r.deliveries {
		if existing.OrderID == d.OrderID {
			return fmt.Errorf("%w: order %s already has a delivery", shared.ErrConflict, d.OrderID)
		}
	}
	stored := d
	r.deliveries[d.ID] = &stored
	return nil
}

func (r *memoryDeliveryRepo) Assign(ctx context.Context, id, driverID string) error {
	d, ok := r.deliveries[id]
	if !ok {
		return fmt.Errorf("%w: delivery", shared.ErrNotFound)
	}
	d.DriverID = &driverID
	d.Status = StatusAssigned
	return nil
}

func (r *memoryDeliveryRepo) SetStatus(ctx context.Context, id string, status Status) error {
	d, ok := r.deliveries[id]
	if !ok {
		return fmt.Errorf("%w: delivery", shared.ErrNotFound)
	}
	d.Status = status
	return nil
}

func (r *memoryDeliveryRepo) Complete(ctx context.Context, id string, signatureKey *string, photoKeys []string, at time.Time) error {
	d, ok := r.deliveries[id]
	if !ok {
		return fmt.Errorf("%w: delivery", shared.ErrNotFound)
	}
	d.Status = StatusCompleted
	d.SignatureKey = signatureKey
	d.PhotoKeys = photoKeys
	d.CompletedAt = &at
	return nil
}

func (r *memoryDeliveryRepo) Fail(ctx context.Context, id, reason string) error {
	d, ok := r.deliveries[id]
	if !ok {
		return fmt.Errorf("%w: delivery", shared.ErrNotFound)
	}
	d.Status = StatusFailed
	d.FailureReason = &reason
	return nil
}

type ordersPortFake struct {
	orders map[string]*OrderInfo
}

func (f *ordersPortFake) Get(ctx context.Context, id string) (OrderInfo, error) {
	o, ok := f.orders[id]
	if !ok {
		return OrderInfo{}, fmt.Errorf("%w: order", shared.ErrNotFound)
	}
	return *o, nil
}

func (f *ordersPortFake) SetStatus(ctx context.Context, id string, status orders.OrderStatus) error {
	o, ok := f.orders[id]
	if !ok {
		return fmt.Errorf("%w: order", shared.ErrNotFound)
	}
	o.Status = status
	return nil
}

type stockPortFake struct {
	calls []string
	err   error
}

func (f *stockPortFake) Decrement(ctx context.Context, orderID string) ([]stock.Movement, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, orderID)
	return []stock.Movement{{Type: stock.MovementOutDelivery, Quantity: -1}}, nil
}

func newDeliveryFixture(status orders.OrderStatus) (*Service, *memoryDeliveryRepo, *ordersPortFake, *stockPortFake) {
	repo := newMemoryDeliveryRepo()
	ordersPort := &ordersPortFake{orders: map[string]*OrderInfo{
		"o1": {
			ID:            "o1",
			OrderNumber:   "ORD-20250602-0001",
			Status:        status,
			RequestedDate: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
		},
	}}
	stockPort := &stockPortFake{}
	return NewService(repo, ordersPort, stockPort), repo, ordersPort, stockPort
}

func TestCreateSchedulesAndMarksOrderReady(t *testing.T) {
	svc, _, ordersPort, _ := newDeliveryFixture(orders.StatusConfirmed)

	d, err := svc.Create(context.Background(), CreateDeliveryRequest{OrderID: "o1"})
	require.NoError(t, err)
	require.Equal(t, StatusPending, d.Status)
	require.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), d.ScheduledDate)
	require.Equal(t, orders.StatusReady, ordersPort.orders["o1"].Status)
}

func TestCreateRejectsPendingOrder(t *testing.T) {
	svc, _, _, _ := newDeliveryFixture(orders.StatusPending)

	_, err := svc.Create(context.Background(), CreateDeliveryRequest{OrderID: "o1"})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCreateRejectsSecondDelivery(t *testing.T) {
	svc, _, _, _ := newDeliveryFixture(orders.StatusConfirmed)

	_, err := svc.Create(context.Background(), CreateDeliveryRequest{OrderID: "o1"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateDeliveryRequest{OrderID: "o1"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestStartMovesOrderIntoDelivery(t *testing.T) {
	svc, _, ordersPort, _ := newDeliveryFixture(orders.StatusConfirmed)

	d, err := svc.Create(context.Background(), CreateDeliveryRequest{OrderID: "o1"})
	require.NoError(t, err)

	// Starting before assignment is rejected.
	_, err = svc.Start(context.Background(), d.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.Assign(context.Background(), d.ID, AssignRequest{DriverID: "driver1"})
	require.NoError(t, err)
	started, err := svc.Start(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, started.Status)
	require.Equal(t, orders.StatusInDelivery, ordersPort.orders["o1"].Status)
}

func TestCompleteDecrementsThenDelivers(t *testing.T) {
	svc, _, ordersPort, stockPort := newDeliveryFixture(orders.StatusConfirmed)

	d, err := svc.Create(context.Background(), CreateDeliveryRequest{OrderID: "o1"})
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), d.ID, AssignRequest{DriverID: "driver1"})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), d.ID)
	require.NoError(t, err)

	sig := "sig-key"
	completed, err := svc.Complete(context.Background(), d.ID, CompleteRequest{
		SignatureKey: &sig,
		PhotoKeys:    []string{"photo1"},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.Equal(t, "sig-key", *completed.SignatureKey)
	require.Equal(t, []string{"o1"}, stockPort.calls)
	require.Equal(t, orders.StatusDelivered, ordersPort.orders["o1"].Status)
}

func TestCompleteShortStockLeavesDeliveryRetryable(t *testing.T) {
	svc, repo, ordersPort, stockPort := newDeliveryFixture(orders.StatusConfirmed)

	d, err := svc.Create(context.Background(), CreateDeliveryRequest{OrderID: "o1"})
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), d.ID, AssignRequest{DriverID: "driver1"})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), d.ID)
	require.NoError(t, err)

	stockPort.err = fmt.Errorf("%w: insufficient stock for product tofu, short 2", shared.ErrBusinessRule)
	_, err = svc.Complete(context.Background(), d.ID, CompleteRequest{})
	require.ErrorIs(t, err, shared.ErrBusinessRule)
	require.Equal(t, StatusInProgress, repo.deliveries[d.ID].Status)
	require.Equal(t, orders.StatusInDelivery, ordersPort.orders["o1"].Status)
}

func TestFailReturnsOrderToReadyWithoutTouchingStock(t *testing.T) {
	svc, _, ordersPort, stockPort := newDeliveryFixture(orders.StatusConfirmed)

	d, err := svc.Create(context.Background(), CreateDeliveryRequest{OrderID: "o1"})
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), d.ID, AssignRequest{DriverID: "driver1"})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), d.ID)
	require.NoError(t, err)

	failed, err := svc.Fail(context.Background(), d.ID, FailRequest{Reason: "nobody on site"})
	require.NoError(t, err)
	require.Equal(t, StatusFailed, failed.Status)
	require.Equal(t, "nobody on site", *failed.FailureReason)
	require.Empty(t, stockPort.calls)
	require.Equal(t, orders.StatusReady, ordersPort.orders["o1"].Status)

	// A failed run is terminal for the delivery record itself.
	_, err = svc.Complete(context.Background(), d.ID, CompleteRequest{})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}
