package delivery

import (
	"context"
	"time"

	"github.com/sdthai/backoffice/internal/orders"
	"github.com/sdthai/backoffice/internal/stock"
)

// OrderInfo is the slice of an order delivery execution needs.
type OrderInfo struct {
	ID            string
	OrderNumber   string
	Status        orders.OrderStatus
	RequestedDate time.Time
}

// OrdersPort is the narrow view of the orders module this package depends
// on. Keeps the delivery service testable without the full order stack.
type OrdersPort interface {
	Get(ctx context.Context, id string) (OrderInfo, error)
	SetStatus(ctx context.Context, id string, status orders.OrderStatus) error
}

// StockPort triggers ledger consumption on completion. Failure paths never
// touch stock; holds stay reserved for the retry.
type StockPort interface {
	Decrement(ctx context.Context, orderID string) ([]stock.Movement, error)
}

type ordersAdapter struct {
	svc *orders.Service
}

// NewOrdersAdapter wraps the order service as an OrdersPort.
func NewOrdersAdapter(svc *orders.Service) OrdersPort {
	return &ordersAdapter{svc: svc}
}

func (a *ordersAdapter) Get(ctx context.Context, id string) (OrderInfo, error) {
	o, err := a.svc.Get(ctx, id)
	if err != nil {
		return OrderInfo{}, err
	}
	return OrderInfo{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		RequestedDate: o.RequestedDate,
	}, nil
}

func (a *ordersAdapter) SetStatus(ctx context.Context, id string, status orders.OrderStatus) error {
	return a.svc.SetStatus(ctx, id, status)
}

type stockAdapter struct {
	svc *stock.Service
}

// NewStockAdapter wraps the stock service as a StockPort.
func NewStockAdapter(svc *stock.Service) StockPort {
	return &stockAdapter{svc: svc}
}

func (a *stockAdapter) Decrement(ctx context.Context, orderID string) ([]stock.Movement, error) {
	return a.svc.Decrement(ctx, orderID)
}
