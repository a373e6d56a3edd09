package billing

import (
	"encoding/json"
	"testing"

	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toRecord(t *testing.T, raw string) record {
	t.Helper()
	var r record
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	return r
}

func TestNormalizeInvoice(t *testing.T) {
	t.Run("snake_case with numeric ids", func(t *testing.T) {
		inv := normalizeInvoice(toRecord(t, `{
			"id": 12, "customer_id": 7, "invoice_no": "INV-0012",
			"invoice_date": "2024-01-05", "grand_total": 1500.50,
			"paid_amount": 500, "balance_amount": 1000.50,
			"payment_status": "Partial", "locked": false
		}`))
		assert.Equal(t, int64(12), inv.ID)
		assert.Equal(t, int64(7), inv.CustomerID)
		assert.True(t, inv.GrandTotal.Equal(decimal.NewFromFloat(1500.50)))
		assert.Equal(t, entity.PaymentStatusPartial, inv.PaymentStatus)
	})

	t.Run("camelCase with string ids and amounts", func(t *testing.T) {
		inv := normalizeInvoice(toRecord(t, `{
			"invoiceId": "12", "customerId": "7", "invoiceNo": "INV-0012",
			"invoiceDate": "2024-01-05T10:30:00Z", "grandTotal": "1500.50",
			"paidAmount": "500.00", "balanceAmount": "1000.50",
			"paymentStatus": "Partial", "isLocked": "1"
		}`))
		assert.Equal(t, int64(12), inv.ID)
		assert.Equal(t, int64(7), inv.CustomerID)
		assert.True(t, inv.GrandTotal.Equal(decimal.NewFromFloat(1500.50)))
		assert.True(t, inv.Locked)
	})

	t.Run("missing balance derived from total minus paid", func(t *testing.T) {
		inv := normalizeInvoice(toRecord(t, `{"id": 3, "customer_id": 7, "grand_total": 200, "paid_amount": 50}`))
		assert.True(t, inv.BalanceAmount.Equal(decimal.NewFromInt(150)))
		assert.True(t, inv.Outstanding().Equal(decimal.NewFromInt(150)))
	})
}

func TestNormalizePayment(t *testing.T) {
	t.Run("nullable customer for cash sales", func(t *testing.T) {
		p := normalizePayment(toRecord(t, `{"id": 9, "customer_id": null, "amount": 250, "mode": "cash", "payment_date": "2024-02-01"}`))
		assert.Nil(t, p.CustomerID)
		assert.True(t, p.Amount.Equal(decimal.NewFromInt(250)))
		assert.False(t, p.BelongsTo(7))
	})

	t.Run("linked invoice alias", func(t *testing.T) {
		p := normalizePayment(toRecord(t, `{"id": 9, "customerId": 7, "amount": "99.95", "linkedInvoiceId": "4", "paymentDate": "2024-02-01 09:15:00"}`))
		require.NotNil(t, p.CustomerID)
		assert.Equal(t, int64(7), *p.CustomerID)
		require.NotNil(t, p.InvoiceID)
		assert.Equal(t, int64(4), *p.InvoiceID)
		assert.Equal(t, 2024, p.PaymentDate.Year())
	})
}

func TestNormalizeLedgerEntry(t *testing.T) {
	e := normalizeLedgerEntry(toRecord(t, `{
		"entryDate": "2024-03-10", "entryType": "Sale", "refNo": "INV-0044",
		"debit": "1200.00", "credit": 0, "runningBalance": "1200.00", "status": "posted"
	}`))
	assert.Equal(t, entity.EntrySale, e.Type)
	assert.Equal(t, "INV-0044", e.Reference)
	assert.True(t, e.Debit.Equal(decimal.NewFromInt(1200)))
	assert.True(t, e.Credit.IsZero())
}

func TestNormalizeCustomer(t *testing.T) {
	c := normalizeCustomer(toRecord(t, `{"customerId": "42", "customerName": "Mama Njeri Stores", "currentBalance": "610.25", "creditLimit": 5000}`))
	assert.Equal(t, int64(42), c.ID)
	assert.Equal(t, "Mama Njeri Stores", c.Name)
	assert.True(t, c.Balance.Equal(decimal.NewFromFloat(610.25)))
}

func TestRecordPickSkipsNull(t *testing.T) {
	r := toRecord(t, `{"balance": null, "current_balance": "10.00"}`)
	assert.True(t, r.decimalAt("balance", "current_balance").Equal(decimal.NewFromInt(10)))
}
