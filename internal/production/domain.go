package production

import "time"

// BatchStatus is the production batch lifecycle.
type BatchStatus string

const (
	StatusPlanned    BatchStatus = "PLANNED"
	StatusInProgress BatchStatus = "IN_PROGRESS"
	StatusCompleted  BatchStatus = "COMPLETED"
	StatusCancelled  BatchStatus = "CANCELLED"
)

// Batch groups the products made on one production run. ExpiryDate is
// computed at completion as the earliest item expiry and stays nil before
// that.
type Batch struct {
	ID             string      `json:"id"`
	BatchNumber    string      `json:"batchNumber"`
	ProductionDate time.Time   `json:"productionDate"`
	ExpiryDate     *time.Time  `json:"expiryDate,omitempty"`
	Status         BatchStatus `json:"status"`
	Items          []BatchItem `json:"items,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// BatchItem is one planned product in a batch. ActualQuantity is set at
// completion and defaults to the planned quantity.
type BatchItem struct {
	ID              string `json:"id"`
	BatchID         string `json:"batchId"`
	ProductID       string `json:"productId"`
	PlannedQuantity int    `json:"plannedQuantity"`
	ActualQuantity  *int   `json:"actualQuantity,omitempty"`
}

// BatchItemInput is one planned (product, quantity) pair.
type BatchItemInput struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CreateBatchRequest plans a batch.
type CreateBatchRequest struct {
	ProductionDate string           `json:"productionDate" validate:"required,datetime=2006-01-02"`
	Items          []BatchItemInput `json:"items" validate:"required,min=1,dive"`
}

// CompleteBatchRequest closes a batch. ActualQuantities maps product id to
// the quantity actually produced; missing products default to plan.
type CompleteBatchRequest struct {
	ActualQuantities map[string]int `json:"actualQuantities,omitempty"`
}

// PlanningOrderRef is one confirmed order contributing demand.
type PlanningOrderRef struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Quantity    int    `json:"quantity"`
}

// PlanningLine is the aggregated demand for one product on one day.
type PlanningLine struct {
	ProductID     string             `json:"productId"`
	ProductName   string             `json:"productName"`
	TotalQuantity int                `json:"totalQuantity"`
	Orders        []PlanningOrderRef `json:"orders"`
}
