package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType identifies what kind of movement a ledger row records
type EntryType string

const (
	EntrySale    EntryType = "Sale"
	EntryPayment EntryType = "Payment"
	EntryReturn  EntryType = "Return"
)

// LedgerEntry is one row of a customer's running financial history.
// The backend computes the running balance; it is treated as ground truth
// once the snapshot it belongs to has passed validation.
type LedgerEntry struct {
	Date           time.Time       `json:"date"`
	Type           EntryType       `json:"type"`
	Reference      string          `json:"reference"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	Status         string          `json:"status"`
	PaymentMode    string          `json:"payment_mode,omitempty"`
}
