package returns

import "time"

// Status is the return request lifecycle. REJECTED and PROCESSED are
// terminal; only PROCESSED touches stock.
type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusApproved  Status = "APPROVED"
	StatusProcessed Status = "PROCESSED"
	StatusRejected  Status = "REJECTED"
)

// Return is one partner return request, photographed and reviewed before
// any stock moves.
type Return struct {
	ID          string       `json:"id"`
	PartnerID   string       `json:"partnerId"`
	OrderID     *string      `json:"orderId,omitempty"`
	Status      Status       `json:"status"`
	Reason      string       `json:"reason"`
	PhotoKeys   []string     `json:"photoKeys,omitempty"`
	Items       []ReturnItem `json:"items,omitempty"`
	ProcessedAt *time.Time   `json:"processedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// ReturnItem is one returned product. Restock marks whether the goods go
// back to a lot when the return is processed; refused or spoiled goods are
// recorded but never re-enter stock.
type ReturnItem struct {
	ID        string `json:"id"`
	ReturnID  string `json:"returnId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Restock   bool   `json:"restock"`
}

// ReturnItemInput is one returned (product, quantity) pair.
type ReturnItemInput struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Restock   bool   `json:"restock"`
}

// CreateReturnRequest opens a return request.
type CreateReturnRequest struct {
	PartnerID string            `json:"partnerId" validate:"required"`
	OrderID   *string           `json:"orderId,omitempty"`
	Reason    string            `json:"reason" validate:"required"`
	PhotoKeys []string          `json:"photoKeys,omitempty"`
	Items     []ReturnItemInput `json:"items" validate:"required,min=1,dive"`
}

// ListReturnsRequest filters the return list.
type ListReturnsRequest struct {
	PartnerID *string
	Status    *Status
}
