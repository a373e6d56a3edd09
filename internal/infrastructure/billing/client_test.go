package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/repository"
	"github.com/nandi-systems/ledgerflow-api/pkg/apperror"
	"github.com/nandi-systems/ledgerflow-api/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, 5*time.Second, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestCustomerLedger(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/7/ledger", r.URL.Path)
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("from_date"))
		assert.Equal(t, "3", r.URL.Query().Get("branch_id"))
		w.Write([]byte(`{"success":true,"data":[
			{"date":"2024-01-02","type":"Sale","reference":"INV-1","debit":"100.00","credit":0,"running_balance":"100.00"},
			{"date":"2024-01-03","type":"Payment","reference":"PAY-1","debit":0,"credit":"40.00","running_balance":"60.00"}
		]}`))
	})

	branch := int64(3)
	entries, err := c.CustomerLedger(context.Background(), 7, entity.LedgerFilter{
		BranchID: &branch,
		From:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, entity.EntryPayment, entries[1].Type)
	assert.True(t, entries[1].RunningBalance.Equal(decimal.NewFromInt(60)))
}

func TestSalesReportTotals(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reports/sales", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"items":[{"id":1,"customer_id":7,"grand_total":"10.00"}],"totalCount":41}}`))
	})

	invoices, total, err := c.SalesReport(context.Background(), repository.SalesQuery{
		CustomerID: 7,
		From:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Params:     pagination.DefaultPagination(),
	})
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
	assert.Equal(t, int64(41), total)
}

func TestCheckDuplicateAliases(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "500.00", r.URL.Query().Get("amount"))
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("date"))
		w.Write([]byte(`{"success":true,"data":{"hasDuplicate":true}}`))
	})

	dup, err := c.CheckDuplicate(context.Background(), 7, "500.00", "2024-01-01")
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestCreateSendsIdempotencyKey(t *testing.T) {
	key := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, key.String(), r.Header.Get(IdempotencyKeyHeader))
		w.Write([]byte(`{"success":true,"message":"Payment recorded","data":{"payment":{"id":15,"customer_id":7,"amount":"250.00"}}}`))
	})

	result, err := c.Create(context.Background(), entity.PaymentDraft{
		CustomerID:  7,
		Amount:      decimal.NewFromInt(250),
		Mode:        "cash",
		PaymentDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}, key)
	require.NoError(t, err)
	require.NotNil(t, result.Payment)
	assert.Equal(t, int64(15), result.Payment.ID)
	assert.Equal(t, "Payment recorded", result.Message)
}

func TestErrorStatusBecomesAppError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success":false,"message":"invoice was modified"}`))
	})

	_, err := c.GetByID(context.Background(), 7)
	require.Error(t, err)
	appErr := apperror.GetAppError(err)
	assert.Equal(t, http.StatusConflict, appErr.Code)
	assert.Equal(t, "invoice was modified", appErr.Message)
	assert.Equal(t, apperror.KindConflict, apperror.Classify(err).Kind)
}

func TestBareErrorStatusGetsGenericMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.GetByID(context.Background(), 7)
	require.Error(t, err)
	appErr := apperror.GetAppError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Code)
	assert.Equal(t, apperror.ErrNotFound.Message, appErr.Message)
}
