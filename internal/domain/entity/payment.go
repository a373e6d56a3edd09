package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a customer payment as served by the billing backend.
// CustomerID is nil for anonymous cash sales. InvoiceID links the payment
// to a specific invoice when it was taken against one.
type Payment struct {
	ID          int64           `json:"id"`
	CustomerID  *int64          `json:"customer_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Mode        string          `json:"mode"`
	Reference   string          `json:"reference,omitempty"`
	PaymentDate time.Time       `json:"payment_date"`
	InvoiceID   *int64          `json:"invoice_id,omitempty"`
}

// BelongsTo reports whether the payment is owned by the given customer.
func (p *Payment) BelongsTo(customerID int64) bool {
	return p.CustomerID != nil && *p.CustomerID == customerID
}
