package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks how much of an invoice has been settled
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPartial PaymentStatus = "Partial"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// Invoice is a sales invoice as served by the billing backend. The backend
// owns it; this service only reads and cross-checks it.
type Invoice struct {
	ID            int64           `json:"id"`
	CustomerID    int64           `json:"customer_id"`
	InvoiceNo     string          `json:"invoice_no"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	BalanceAmount decimal.Decimal `json:"balance_amount"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Locked        bool            `json:"locked"`
}

// Outstanding returns the unpaid remainder. The backend serves
// balance_amount directly, but a missing value falls back to the
// grand_total minus paid_amount identity.
func (i *Invoice) Outstanding() decimal.Decimal {
	if !i.BalanceAmount.IsZero() || i.GrandTotal.Equal(i.PaidAmount) {
		return i.BalanceAmount
	}
	return i.GrandTotal.Sub(i.PaidAmount)
}
