package delivery

import "time"

// Status is the delivery lifecycle. COMPLETED and FAILED are terminal.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Delivery executes one order. Orders and deliveries pair one to one.
// Completion artifacts are object-store keys; the files live elsewhere.
type Delivery struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"orderId"`
	Status        Status     `json:"status"`
	DriverID      *string    `json:"driverId,omitempty"`
	ScheduledDate time.Time  `json:"scheduledDate"`
	SignatureKey  *string    `json:"signatureKey,omitempty"`
	PhotoKeys     []string   `json:"photoKeys,omitempty"`
	FailureReason *string    `json:"failureReason,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// CreateDeliveryRequest schedules the delivery for an order.
type CreateDeliveryRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

// AssignRequest hands the delivery to a driver.
type AssignRequest struct {
	DriverID string `json:"driverId" validate:"required"`
}

// CompleteRequest closes a delivery with its proof artifacts.
type CompleteRequest struct {
	SignatureKey *string  `json:"signatureKey,omitempty"`
	PhotoKeys    []string `json:"photoKeys,omitempty"`
}

// FailRequest records a failed delivery attempt.
type FailRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ListDeliveriesRequest filters the delivery list.
type ListDeliveriesRequest struct {
	DriverID *string
	Status   *Status
	Date     *time.Time
}
