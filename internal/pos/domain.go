package pos

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a point-of-sale transaction was settled.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "CASH"
	PaymentCard  PaymentMethod = "CARD"
	PaymentTwint PaymentMethod = "TWINT"
)

// Transaction is one sale rung up at a depot automate. Same VAT arithmetic
// as orders: vatAmount recomputed from the final subtotal.
type Transaction struct {
	ID            string            `json:"id"`
	PartnerID     string            `json:"partnerId"`
	PaymentMethod PaymentMethod     `json:"paymentMethod"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	VATAmount     decimal.Decimal   `json:"vatAmount"`
	Total         decimal.Decimal   `json:"total"`
	Lines         []TransactionLine `json:"lines,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// TransactionLine is one sold product with its price frozen at sale time.
type TransactionLine struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transactionId"`
	ProductID     string          `json:"productId"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// SaleItemInput is one scanned (product, quantity) pair.
type SaleItemInput struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CreateTransactionRequest records a depot sale.
type CreateTransactionRequest struct {
	PartnerID     string          `json:"partnerId" validate:"required"`
	PaymentMethod PaymentMethod   `json:"paymentMethod" validate:"required,oneof=CASH CARD TWINT"`
	Items         []SaleItemInput `json:"items" validate:"required,min=1,dive"`
}

// PaymentStats aggregates settled turnover for one payment method.
type PaymentStats struct {
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Count         int             `json:"count"`
	Total         decimal.Decimal `json:"total"`
}

// Stats is the depot turnover report for a date range.
type Stats struct {
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Count     int             `json:"count"`
	Total     decimal.Decimal `json:"total"`
	ByPayment []PaymentStats  `json:"byPayment"`
}
