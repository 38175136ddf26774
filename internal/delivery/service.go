package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sdthai/backoffice/internal/orders"
	"github.com/sdthai/backoffice/internal/shared"
)

// Service runs delivery execution and keeps order status in step with it.
type Service struct {
	repo   Repository
	orders OrdersPort
	stock  StockPort
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, ordersPort OrdersPort, stockPort StockPort) *Service {
	return &Service{repo: repo, orders: ordersPort, stock: stockPort, now: time.Now}
}

// Create schedules the delivery for a confirmed or ready order and marks
// the order READY. One delivery per order; the unique constraint backs
// that up.
func (s *Service) Create(ctx context.Context, req CreateDeliveryRequest) (*Delivery, error) {
	order, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != orders.StatusConfirmed && order.Status != orders.StatusReady {
		return nil, fmt.Errorf("%w: order %s is %s, deliveries need a confirmed order",
			shared.ErrInvalidState, order.OrderNumber, order.Status)
	}

	d := Delivery{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		Status:        StatusPending,
		ScheduledDate: order.RequestedDate,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	if order.Status != orders.StatusReady {
		if err := s.orders.SetStatus(ctx, order.ID, orders.StatusReady); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, d.ID)
}

// Assign hands a pending or already-assigned delivery to a driver.
func (s *Service) Assign(ctx context.Context, id string, req AssignRequest) (*Delivery, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusPending && d.Status != StatusAssigned {
		return nil, fmt.Errorf("%w: delivery is %s and can no longer be assigned", shared.ErrInvalidState, d.Status)
	}
	if err := s.repo.Assign(ctx, id, req.DriverID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Start begins the run: delivery IN_PROGRESS, order IN_DELIVERY.
func (s *Service) Start(ctx context.Context, id string) (*Delivery, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusAssigned {
		return nil, fmt.Errorf("%w: delivery is %s, only assigned deliveries can start", shared.ErrInvalidState, d.Status)
	}
	if err := s.repo.SetStatus(ctx, id, StatusInProgress); err != nil {
		return nil, err
	}
	if err := s.orders.SetStatus(ctx, d.OrderID, orders.StatusInDelivery); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Complete consumes the order's stock, then closes the delivery and marks
// the order DELIVERED. The decrement runs first: if stock is short the
// error propagates and both delivery and order keep their in-progress
// state for another attempt.
func (s *Service) Complete(ctx context.Context, id string, req CompleteRequest) (*Delivery, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: delivery is %s, only in-progress deliveries can complete", shared.ErrInvalidState, d.Status)
	}

	if _, err := s.stock.Decrement(ctx, d.OrderID); err != nil {
		return nil, err
	}
	if err := s.repo.Complete(ctx, id, req.SignatureKey, req.PhotoKeys, s.now()); err != nil {
		return nil, err
	}
	if err := s.orders.SetStatus(ctx, d.OrderID, orders.StatusDelivered); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Fail records a failed attempt. Stock was only reserved, never consumed,
// so the order goes back to READY for redelivery with its holds intact.
func (s *Service) Fail(ctx context.Context, id string, req FailRequest) (*Delivery, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: delivery is %s, only in-progress deliveries can fail", shared.ErrInvalidState, d.Status)
	}
	if err := s.repo.Fail(ctx, id, req.Reason); err != nil {
		return nil, err
	}
	if err := s.orders.SetStatus(ctx, d.OrderID, orders.StatusReady); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get returns one delivery.
func (s *Service) Get(ctx context.Context, id string) (*Delivery, error) {
	return s.repo.Get(ctx, id)
}

// GetByOrder returns the delivery paired with an order.
func (s *Service) GetByOrder(ctx context.Context, orderID string) (*Delivery, error) {
	return s.repo.GetByOrder(ctx, orderID)
}

// List returns filtered deliveries.
func (s *Service) List(ctx context.Context, req ListDeliveriesRequest) ([]Delivery, error) {
	return s.repo.List(ctx, req)
}
