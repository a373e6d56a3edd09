package billing

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// The billing backend has grown several response dialects: snake_case,
// camelCase and PascalCase keys, IDs as numbers or quoted numbers, dates in
// more than one layout. Everything the backend returns passes through this
// file exactly once and comes out as a canonical entity. No other code in
// the repository branches on field-name variants.

// record is one raw backend object before normalization
type record map[string]json.RawMessage

func (r record) pick(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && !bytes.Equal(v, []byte("null")) {
			return v, true
		}
	}
	return nil, false
}

// int64At reads the first present alias as an int64, tolerating quoted
// numbers.
func (r record) int64At(keys ...string) int64 {
	raw, ok := r.pick(keys...)
	if !ok {
		return 0
	}
	s := string(bytes.Trim(raw, `"`))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (r record) optInt64At(keys ...string) *int64 {
	raw, ok := r.pick(keys...)
	if !ok {
		return nil
	}
	s := string(bytes.Trim(raw, `"`))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// decimalAt reads the first present alias as a decimal. shopspring accepts
// both quoted and bare numbers.
func (r record) decimalAt(keys ...string) decimal.Decimal {
	raw, ok := r.pick(keys...)
	if !ok {
		return decimal.Zero
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return decimal.Zero
	}
	return d
}

func (r record) stringAt(keys ...string) string {
	raw, ok := r.pick(keys...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

func (r record) boolAt(keys ...string) bool {
	raw, ok := r.pick(keys...)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	// Some endpoints serve booleans as 0/1.
	return string(bytes.Trim(raw, `"`)) == "1"
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (r record) timeAt(keys ...string) time.Time {
	s := r.stringAt(keys...)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func normalizeLedgerEntry(r record) entity.LedgerEntry {
	return entity.LedgerEntry{
		Date:           r.timeAt("date", "entry_date", "entryDate", "Date"),
		Type:           entity.EntryType(r.stringAt("type", "entry_type", "entryType", "Type")),
		Reference:      r.stringAt("reference", "ref_no", "refNo", "Reference"),
		Debit:          r.decimalAt("debit", "Debit"),
		Credit:         r.decimalAt("credit", "Credit"),
		RunningBalance: r.decimalAt("running_balance", "runningBalance", "balance", "Balance"),
		Status:         r.stringAt("status", "Status"),
		PaymentMode:    r.stringAt("payment_mode", "paymentMode", "mode"),
	}
}

func normalizeInvoice(r record) entity.Invoice {
	inv := entity.Invoice{
		ID:            r.int64At("id", "invoice_id", "invoiceId", "ID"),
		CustomerID:    r.int64At("customer_id", "customerId", "CustomerID"),
		InvoiceNo:     r.stringAt("invoice_no", "invoiceNo", "number"),
		InvoiceDate:   r.timeAt("invoice_date", "invoiceDate", "date"),
		GrandTotal:    r.decimalAt("grand_total", "grandTotal", "total"),
		PaidAmount:    r.decimalAt("paid_amount", "paidAmount", "paid"),
		BalanceAmount: r.decimalAt("balance_amount", "balanceAmount", "balance", "due"),
		PaymentStatus: entity.PaymentStatus(r.stringAt("payment_status", "paymentStatus", "status")),
		Locked:        r.boolAt("locked", "is_locked", "isLocked"),
	}
	if inv.BalanceAmount.IsZero() && !inv.GrandTotal.Equal(inv.PaidAmount) {
		inv.BalanceAmount = inv.GrandTotal.Sub(inv.PaidAmount)
	}
	return inv
}

func normalizePayment(r record) entity.Payment {
	return entity.Payment{
		ID:          r.int64At("id", "payment_id", "paymentId", "ID"),
		CustomerID:  r.optInt64At("customer_id", "customerId", "CustomerID"),
		Amount:      r.decimalAt("amount", "Amount"),
		Mode:        r.stringAt("mode", "payment_mode", "paymentMode"),
		Reference:   r.stringAt("reference", "ref_no", "refNo"),
		PaymentDate: r.timeAt("payment_date", "paymentDate", "date"),
		InvoiceID:   r.optInt64At("invoice_id", "invoiceId", "linked_invoice_id", "linkedInvoiceId"),
	}
}

func normalizeCustomer(r record) entity.CustomerSnapshot {
	return entity.CustomerSnapshot{
		ID:          r.int64At("id", "customer_id", "customerId", "ID"),
		Name:        r.stringAt("name", "customer_name", "customerName"),
		Phone:       r.stringAt("phone", "phone_number", "phoneNumber"),
		RouteID:     r.optInt64At("route_id", "routeId"),
		Balance:     r.decimalAt("balance", "current_balance", "currentBalance"),
		CreditLimit: r.decimalAt("credit_limit", "creditLimit"),
	}
}

func decodeRecords(data json.RawMessage) ([]record, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}
