package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle of a partner order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusConfirmed  OrderStatus = "CONFIRMED"
	StatusReady      OrderStatus = "READY"
	StatusInDelivery OrderStatus = "IN_DELIVERY"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanCancel reports whether the order may still be cancelled.
func (s OrderStatus) CanCancel() bool {
	return s != StatusDelivered
}

// DeliveryType distinguishes a routed delivery from on-site pickup.
type DeliveryType string

const (
	DeliveryStandard DeliveryType = "STANDARD"
	DeliveryOnSite   DeliveryType = "ON_SITE"
)

// DeadlineClassification tags how an order relates to its cutoff.
type DeadlineClassification string

const (
	DeadlineStandard DeadlineClassification = "STANDARD"
	DeadlineLate     DeadlineClassification = "LATE"
)

// Order is a partner order. Totals always satisfy
// total = subtotal + vatAmount with vatAmount = round(subtotal * VAT, 2).
// Orders are never deleted; cancellation is a status transition.
type Order struct {
	ID               string                 `json:"id"`
	OrderNumber      string                 `json:"orderNumber"`
	PartnerID        string                 `json:"partnerId"`
	UserID           string                 `json:"userId"`
	Status           OrderStatus            `json:"status"`
	RequestedDate    time.Time              `json:"requestedDate"`
	DeliveryType     DeliveryType           `json:"deliveryType"`
	OnSiteTime       *string                `json:"onSiteTime,omitempty"`
	IsUrgent         bool                   `json:"isUrgent"`
	UrgentReason     *string                `json:"urgentReason,omitempty"`
	UrgentApproved   *bool                  `json:"urgentApproved,omitempty"`
	DeadlineType     DeadlineClassification `json:"deadlineType"`
	RequiresApproval bool                   `json:"requiresApproval"`
	Subtotal         decimal.Decimal        `json:"subtotal"`
	VATAmount        decimal.Decimal        `json:"vatAmount"`
	Total            decimal.Decimal        `json:"total"`
	Notes            *string                `json:"notes,omitempty"`
	Lines            []OrderLine            `json:"lines,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// OrderLine snapshots one product at order time. UnitPrice is frozen here:
// later catalog price changes never touch existing lines.
type OrderLine struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderItemInput is one requested (product, quantity) pair.
type OrderItemInput struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest carries order placement input.
type CreateOrderRequest struct {
	PartnerID     string           `json:"partnerId" validate:"required"`
	RequestedDate string           `json:"requestedDate" validate:"required,datetime=2006-01-02"`
	DeliveryType  DeliveryType     `json:"deliveryType" validate:"omitempty,oneof=STANDARD ON_SITE"`
	OnSiteTime    *string          `json:"onSiteTime,omitempty"`
	Items         []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	IsUrgent      bool             `json:"isUrgent"`
	UrgentReason  *string          `json:"urgentReason,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}

// UpdateOrderRequest carries partial updates. Changing the requested date
// re-runs the deadline policy; changing items re-runs pricing.
type UpdateOrderRequest struct {
	RequestedDate *string           `json:"requestedDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Items         *[]OrderItemInput `json:"items,omitempty" validate:"omitempty,min=1,dive"`
	Notes         *string           `json:"notes,omitempty"`
}

// ListOrdersRequest filters the order list.
type ListOrdersRequest struct {
	PartnerID *string
	Status    *OrderStatus
	Limit     int
	Offset    int
}
