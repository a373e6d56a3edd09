package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reconciler cross-validates one customer snapshot: derived totals against
// the stored balance, ledger sums against their sources, and record
// ownership. It never mutates data and never blocks a load; findings are
// returned as data and logged, not thrown.
type Reconciler struct {
	tolerance    decimal.Decimal
	customerRepo repository.CustomerRepository
	log          *zap.Logger
}

// NewReconciler creates a reconciler with the given balance tolerance
// (0.01 unless a tenant overrides it in config).
func NewReconciler(tolerance decimal.Decimal, customerRepo repository.CustomerRepository, log *zap.Logger) *Reconciler {
	return &Reconciler{
		tolerance:    tolerance,
		customerRepo: customerRepo,
		log:          log,
	}
}

// Reconcile computes the discrepancy report for one snapshot. Pure with
// respect to its input: the same snapshot always yields the same report.
func (r *Reconciler) Reconcile(snap *entity.LedgerSnapshot) entity.ReconciliationReport {
	report := entity.ReconciliationReport{
		CustomerID:    snap.CustomerID,
		Errors:        []entity.Issue{},
		Warnings:      []entity.Issue{},
		Discrepancies: []entity.Discrepancy{},
	}

	r.checkOwnership(snap, &report)
	r.checkBalance(snap, &report)
	r.checkLinkage(snap, &report)
	r.checkLedgerSums(snap, &report)
	r.checkPaymentSanity(snap, &report)

	report.Valid = len(report.Errors) == 0
	return report
}

// checkOwnership verifies every invoice and payment carries the snapshot's
// customer ID. A mismatch means the snapshot cannot be trusted: hard error.
func (r *Reconciler) checkOwnership(snap *entity.LedgerSnapshot, report *entity.ReconciliationReport) {
	for _, inv := range snap.Invoices {
		if inv.CustomerID != snap.CustomerID {
			report.Errors = append(report.Errors, entity.Issue{
				Code:     entity.CodeInvoiceMismatch,
				Message:  fmt.Sprintf("invoice %s belongs to customer %d, not %d", inv.InvoiceNo, inv.CustomerID, snap.CustomerID),
				RecordID: inv.ID,
			})
		}
	}
	for _, p := range snap.Payments {
		if p.CustomerID != nil && *p.CustomerID != snap.CustomerID {
			report.Errors = append(report.Errors, entity.Issue{
				Code:     entity.CodePaymentMismatch,
				Message:  fmt.Sprintf("payment %d belongs to customer %d, not %d", p.ID, *p.CustomerID, snap.CustomerID),
				RecordID: p.ID,
			})
		}
	}
}

// checkBalance compares the stored customer balance against
// sum(invoice totals) minus sum(payment amounts).
func (r *Reconciler) checkBalance(snap *entity.LedgerSnapshot, report *entity.ReconciliationReport) {
	if snap.Customer == nil {
		return
	}
	invoiced := decimal.Zero
	for _, inv := range snap.Invoices {
		invoiced = invoiced.Add(inv.GrandTotal)
	}
	paid := decimal.Zero
	for _, p := range snap.Payments {
		paid = paid.Add(p.Amount)
	}
	calculated := invoiced.Sub(paid)
	diff := calculated.Sub(snap.Customer.Balance).Abs()
	if diff.GreaterThan(r.tolerance) {
		report.Warnings = append(report.Warnings, entity.Issue{
			Code: entity.CodeBalanceMismatch,
			Message: fmt.Sprintf("stored balance %s differs from calculated %s by %s",
				snap.Customer.Balance.StringFixed(2), calculated.StringFixed(2), diff.StringFixed(2)),
			RecordID: snap.CustomerID,
		})
		report.Discrepancies = append(report.Discrepancies, entity.Discrepancy{
			Code:       entity.CodeBalanceMismatch,
			Expected:   calculated,
			Actual:     snap.Customer.Balance,
			Difference: diff,
			Detail:     "invoice totals minus payment amounts vs stored customer balance",
		})
	}
}

// checkLinkage verifies invoice-linked payments point at an invoice of the
// same customer.
func (r *Reconciler) checkLinkage(snap *entity.LedgerSnapshot, report *entity.ReconciliationReport) {
	invoices := make(map[int64]*entity.Invoice, len(snap.Invoices))
	for i := range snap.Invoices {
		invoices[snap.Invoices[i].ID] = &snap.Invoices[i]
	}
	for _, p := range snap.Payments {
		if p.InvoiceID == nil || p.CustomerID == nil {
			continue
		}
		inv, known := invoices[*p.InvoiceID]
		if !known {
			continue
		}
		if inv.CustomerID != *p.CustomerID {
			report.Warnings = append(report.Warnings, entity.Issue{
				Code: entity.CodeLinkMismatch,
				Message: fmt.Sprintf("payment %d (customer %d) is linked to invoice %s (customer %d)",
					p.ID, *p.CustomerID, inv.InvoiceNo, inv.CustomerID),
				RecordID: p.ID,
			})
		}
	}
}

// checkLedgerSums cross-checks backend ledger totals against their source
// documents: debits vs invoice totals, credits vs payment amounts.
func (r *Reconciler) checkLedgerSums(snap *entity.LedgerSnapshot, report *entity.ReconciliationReport) {
	if len(snap.Entries) == 0 {
		return
	}
	debits, credits := decimal.Zero, decimal.Zero
	for _, e := range snap.Entries {
		debits = debits.Add(e.Debit)
		credits = credits.Add(e.Credit)
	}
	invoiced := decimal.Zero
	for _, inv := range snap.Invoices {
		invoiced = invoiced.Add(inv.GrandTotal)
	}
	paid := decimal.Zero
	for _, p := range snap.Payments {
		paid = paid.Add(p.Amount)
	}

	if diff := debits.Sub(invoiced).Abs(); diff.GreaterThan(r.tolerance) {
		report.Warnings = append(report.Warnings, entity.Issue{
			Code: entity.CodeLedgerDebitMismatch,
			Message: fmt.Sprintf("ledger debits %s differ from invoice totals %s by %s",
				debits.StringFixed(2), invoiced.StringFixed(2), diff.StringFixed(2)),
		})
		report.Discrepancies = append(report.Discrepancies, entity.Discrepancy{
			Code:       entity.CodeLedgerDebitMismatch,
			Expected:   invoiced,
			Actual:     debits,
			Difference: diff,
			Detail:     "ledger debit column vs invoice grand totals",
		})
	}
	if diff := credits.Sub(paid).Abs(); diff.GreaterThan(r.tolerance) {
		report.Warnings = append(report.Warnings, entity.Issue{
			Code: entity.CodeLedgerCreditMismatch,
			Message: fmt.Sprintf("ledger credits %s differ from payment totals %s by %s",
				credits.StringFixed(2), paid.StringFixed(2), diff.StringFixed(2)),
		})
		report.Discrepancies = append(report.Discrepancies, entity.Discrepancy{
			Code:       entity.CodeLedgerCreditMismatch,
			Expected:   paid,
			Actual:     credits,
			Difference: diff,
			Detail:     "ledger credit column vs payment amounts",
		})
	}
}

// checkPaymentSanity itemizes structurally broken payments: non-positive
// amounts, missing dates, or an invoice-linked amount exceeding what the
// invoice had outstanding.
func (r *Reconciler) checkPaymentSanity(snap *entity.LedgerSnapshot, report *entity.ReconciliationReport) {
	invoices := make(map[int64]*entity.Invoice, len(snap.Invoices))
	for i := range snap.Invoices {
		invoices[snap.Invoices[i].ID] = &snap.Invoices[i]
	}
	for _, p := range snap.Payments {
		if !p.Amount.IsPositive() {
			report.Warnings = append(report.Warnings, entity.Issue{
				Code:     entity.CodePaymentInvalid,
				Message:  fmt.Sprintf("payment %d has non-positive amount %s", p.ID, p.Amount.StringFixed(2)),
				RecordID: p.ID,
			})
		}
		if p.PaymentDate.IsZero() {
			report.Warnings = append(report.Warnings, entity.Issue{
				Code:     entity.CodePaymentInvalid,
				Message:  fmt.Sprintf("payment %d has no payment date", p.ID),
				RecordID: p.ID,
			})
		}
		if p.InvoiceID != nil {
			if inv, known := invoices[*p.InvoiceID]; known {
				if p.Amount.GreaterThan(inv.Outstanding().Add(r.tolerance)) {
					report.Warnings = append(report.Warnings, entity.Issue{
						Code: entity.CodePaymentInvalid,
						Message: fmt.Sprintf("payment %d amount %s exceeds invoice %s outstanding",
							p.ID, p.Amount.StringFixed(2), inv.InvoiceNo),
						RecordID: p.ID,
					})
				}
			}
		}
	}
}

// Run is the user-invoked reconciliation: it validates the snapshot, logs
// the findings, and asks the backend to recompute the stored balance. This
// is the only path that surfaces pass/fail to the user; routine loads log
// the report and stay quiet.
func (r *Reconciler) Run(ctx context.Context, snap *entity.LedgerSnapshot) entity.ReconciliationReport {
	report := r.Reconcile(snap)
	report.CheckedAt = time.Now()
	r.Log(report)

	if err := r.customerRepo.RecalculateBalance(ctx, snap.CustomerID); err != nil {
		// Advisory trigger: a failure here never blocks the report.
		r.log.Warn("balance recalculation request failed",
			zap.Int64("customer_id", snap.CustomerID),
			zap.Error(err),
		)
	}
	return report
}

// Log writes the report's findings. Errors and warnings are always logged;
// neither is surfaced as a notification on routine loads.
func (r *Reconciler) Log(report entity.ReconciliationReport) {
	if !report.HasFindings() {
		r.log.Debug("reconciliation clean", zap.Int64("customer_id", report.CustomerID))
		return
	}
	for _, issue := range report.Errors {
		r.log.Error("reconciliation error",
			zap.Int64("customer_id", report.CustomerID),
			zap.String("code", string(issue.Code)),
			zap.String("detail", issue.Message),
		)
	}
	for _, issue := range report.Warnings {
		r.log.Warn("reconciliation warning",
			zap.Int64("customer_id", report.CustomerID),
			zap.String("code", string(issue.Code)),
			zap.String("detail", issue.Message),
		)
	}
}
