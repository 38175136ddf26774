package stock

import "time"

// MovementType classifies a ledger entry.
type MovementType string

const (
	MovementInProduction MovementType = "IN_PRODUCTION"
	MovementAdjustment   MovementType = "ADJUSTMENT"
	MovementOutDelivery  MovementType = "OUT_DELIVERY"
	MovementInReturn     MovementType = "IN_RETURN"
)

// Purpose tags what a lot was produced for.
type Purpose string

const (
	PurposeSale  Purpose = "SALE"
	PurposeDemo  Purpose = "DEMO"
	PurposeStaff Purpose = "STAFF"
)

// Lot is one traceable quantity of a product. InitialQuantity is the audit
// snapshot and only moves with adjustments. Quantity is on-hand; reservation
// holds part of it without consuming it. The invariant
// 0 <= ReservedQuantity <= Quantity holds after every operation.
type Lot struct {
	ID               string     `json:"id"`
	ProductID        string     `json:"productId"`
	BatchID          *string    `json:"batchId,omitempty"`
	InitialQuantity  int        `json:"initialQuantity"`
	Quantity         int        `json:"quantity"`
	ReservedQuantity int        `json:"reservedQuantity"`
	Purpose          Purpose    `json:"purpose"`
	ProductionDate   time.Time  `json:"productionDate"`
	ExpiryDate       time.Time  `json:"expiryDate"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Available is the quantity not held by reservations.
func (l Lot) Available() int {
	return l.Quantity - l.ReservedQuantity
}

// Movement is one append-only ledger record.
type Movement struct {
	ID        string       `json:"id"`
	LotID     string       `json:"lotId"`
	Type      MovementType `json:"type"`
	Quantity  int          `json:"quantity"`
	Reference *string      `json:"reference,omitempty"`
	Notes     *string      `json:"notes,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Reservation reports one (lot, quantity) hold taken by Reserve.
type Reservation struct {
	LotID    string `json:"lotId"`
	Quantity int    `json:"quantity"`
}

// CreateLotRequest registers non-production stock by hand.
type CreateLotRequest struct {
	ProductID      string  `json:"productId" validate:"required"`
	Quantity       int     `json:"quantity" validate:"required,gt=0"`
	Purpose        Purpose `json:"purpose" validate:"omitempty,oneof=SALE DEMO STAFF"`
	ProductionDate string  `json:"productionDate" validate:"required,datetime=2006-01-02"`
	ExpiryDate     string  `json:"expiryDate" validate:"required,datetime=2006-01-02"`
}

// AdjustRequest corrects a lot's on-hand count.
type AdjustRequest struct {
	Delta int     `json:"delta" validate:"required"`
	Notes *string `json:"notes,omitempty"`
}

// ProductSummary aggregates the lots of one product.
type ProductSummary struct {
	ProductID      string     `json:"productId"`
	ProductName    string     `json:"productName"`
	Quantity       int        `json:"quantity"`
	Reserved       int        `json:"reserved"`
	Available      int        `json:"available"`
	EarliestExpiry *time.Time `json:"earliestExpiry,omitempty"`
}

// LowStockAlert flags a product under its alert threshold.
type LowStockAlert struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Available   int    `json:"available"`
	Threshold   int    `json:"threshold"`
}

// ExpiryAlert flags a lot close to its expiry date.
type ExpiryAlert struct {
	LotID       string    `json:"lotId"`
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	ExpiryDate  time.Time `json:"expiryDate"`
}

// Alerts is the combined alert report.
type Alerts struct {
	LowStock []LowStockAlert `json:"lowStock"`
	Expiring []ExpiryAlert   `json:"expiring"`
}
