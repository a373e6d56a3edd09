package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"github.com/nandi-systems/ledgerflow-api/pkg/pagination"
)

// The billing backend is external and eventually consistent. These interfaces
// describe the only operations this service consumes from it; the HTTP
// implementation lives in infrastructure/billing.

// LedgerRepository reads the backend-computed customer ledger
type LedgerRepository interface {
	// CustomerLedger returns the ledger rows for a customer within the
	// filter's date window, chronologically ordered.
	CustomerLedger(ctx context.Context, customerID int64, filter entity.LedgerFilter) ([]entity.LedgerEntry, error)
}

// SalesQuery scopes one page of the sales report
type SalesQuery struct {
	CustomerID int64
	From       time.Time
	To         time.Time
	Params     *pagination.PaginationParams
}

// InvoiceRepository reads invoices owned by the backend
type InvoiceRepository interface {
	// SalesReport returns one page of invoices plus the total count.
	SalesReport(ctx context.Context, q SalesQuery) ([]entity.Invoice, int64, error)
	// Outstanding returns all invoices with an unpaid balance, oldest first.
	Outstanding(ctx context.Context, customerID int64) ([]entity.Invoice, error)
}

// CustomerRepository reads customer records and triggers server-side
// balance corrections
type CustomerRepository interface {
	GetByID(ctx context.Context, customerID int64) (*entity.CustomerSnapshot, error)
	// RecalculateBalance asks the backend to recompute the stored balance.
	// Advisory: failure is logged, never surfaced.
	RecalculateBalance(ctx context.Context, customerID int64) error
}

// PaymentResult is the backend's acknowledgement of a successful payment
// write. Invoice and Customer carry the post-write records when the backend
// returns them.
type PaymentResult struct {
	Payment  *entity.Payment
	Invoice  *entity.Invoice
	Customer *entity.CustomerSnapshot
	Message  string
}

// PaymentRepository reads and writes payments through the backend
type PaymentRepository interface {
	List(ctx context.Context, customerID int64, params *pagination.PaginationParams) ([]entity.Payment, error)
	// CheckDuplicate asks the backend whether a payment with the same
	// customer, amount and calendar day already exists.
	CheckDuplicate(ctx context.Context, customerID int64, amount string, day string) (bool, error)
	// Create submits a single payment under the given idempotency key.
	Create(ctx context.Context, draft entity.PaymentDraft, key uuid.UUID) (*PaymentResult, error)
	// Allocate submits a payment spread across the invoices in the plan.
	Allocate(ctx context.Context, draft entity.PaymentDraft, plan entity.AllocationPlan, key uuid.UUID) (*PaymentResult, error)
}
