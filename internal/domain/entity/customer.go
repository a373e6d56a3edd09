package entity

import "github.com/shopspring/decimal"

// CustomerSnapshot is the customer record as served by the billing backend.
// Balance is the backend's stored balance; the reconciliation validator
// compares it against the balance derived from invoices and payments.
type CustomerSnapshot struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone,omitempty"`
	RouteID     *int64          `json:"route_id,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}
