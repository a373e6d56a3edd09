package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentDraft is the user-entered payload of a payment submission before
// it is sent to the backend.
type PaymentDraft struct {
	CustomerID  int64           `json:"customer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Mode        string          `json:"mode"`
	Reference   string          `json:"reference,omitempty"`
	PaymentDate time.Time       `json:"payment_date"`
	InvoiceID   *int64          `json:"invoice_id,omitempty"`
}

// InvoiceAllocation assigns part of a payment amount to one invoice.
type InvoiceAllocation struct {
	InvoiceID int64           `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// AllocationPlan spreads one payment across outstanding invoices, oldest
// first. It is computed client-side and re-validated against the amount and
// the current outstanding set before submission.
type AllocationPlan []InvoiceAllocation

// Total sums the allocated amounts.
func (p AllocationPlan) Total() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p {
		total = total.Add(a.Amount)
	}
	return total
}

// PlanAllocations fills outstanding invoices in order until the amount is
// exhausted. Invoices must already be sorted oldest first.
func PlanAllocations(amount decimal.Decimal, outstanding []Invoice) AllocationPlan {
	plan := make(AllocationPlan, 0, len(outstanding))
	remaining := amount
	for _, inv := range outstanding {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		due := inv.Outstanding()
		if due.LessThanOrEqual(decimal.Zero) {
			continue
		}
		take := decimal.Min(remaining, due)
		plan = append(plan, InvoiceAllocation{InvoiceID: inv.ID, Amount: take})
		remaining = remaining.Sub(take)
	}
	return plan
}
