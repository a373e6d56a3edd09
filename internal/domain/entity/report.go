package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// IssueCode is a stable machine-readable code for one reconciliation finding
type IssueCode string

const (
	CodeInvoiceMismatch      IssueCode = "INVOICE_MISMATCH"
	CodePaymentMismatch      IssueCode = "PAYMENT_MISMATCH"
	CodeBalanceMismatch      IssueCode = "BALANCE_MISMATCH"
	CodeLedgerDebitMismatch  IssueCode = "LEDGER_DEBIT_MISMATCH"
	CodeLedgerCreditMismatch IssueCode = "LEDGER_CREDIT_MISMATCH"
	CodeLinkMismatch         IssueCode = "LINK_MISMATCH"
	CodePaymentInvalid       IssueCode = "PAYMENT_INVALID"
)

// Issue is one reconciliation finding, naming the offending record when one
// exists.
type Issue struct {
	Code     IssueCode `json:"code"`
	Message  string    `json:"message"`
	RecordID int64     `json:"record_id,omitempty"`
}

// Discrepancy carries the numbers behind a mismatch finding so the caller
// can display expected vs stored values and the delta.
type Discrepancy struct {
	Code       IssueCode       `json:"code"`
	Expected   decimal.Decimal `json:"expected"`
	Actual     decimal.Decimal `json:"actual"`
	Difference decimal.Decimal `json:"difference"`
	Detail     string          `json:"detail,omitempty"`
}

// ReconciliationReport is the validator's output for one snapshot. Errors
// mean the snapshot's totals cannot be trusted for display; warnings are
// advisory. The report is data, never a thrown error.
type ReconciliationReport struct {
	CustomerID    int64         `json:"customer_id"`
	Valid         bool          `json:"is_valid"`
	Errors        []Issue       `json:"errors"`
	Warnings      []Issue       `json:"warnings"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	CheckedAt     time.Time     `json:"checked_at"`
}

// HasFindings reports whether anything at all was flagged.
func (r *ReconciliationReport) HasFindings() bool {
	return len(r.Errors) > 0 || len(r.Warnings) > 0
}
