package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/repository"
	applog "github.com/nandi-systems/ledgerflow-api/internal/infrastructure/logger"
	"github.com/nandi-systems/ledgerflow-api/pkg/apperror"
	"github.com/nandi-systems/ledgerflow-api/pkg/pagination"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader carries the client-generated token on mutating calls
const IdempotencyKeyHeader = "Idempotency-Key"

// Client talks to the remote billing backend over HTTP. It implements the
// domain repository interfaces; all responses are normalized at this
// boundary before anything else sees them.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zap.Logger
}

// Compile-time checks that the client satisfies the backend contracts.
var (
	_ repository.LedgerRepository   = (*Client)(nil)
	_ repository.InvoiceRepository  = (*Client)(nil)
	_ repository.CustomerRepository = (*Client)(nil)
	_ repository.PaymentRepository  = (*Client)(nil)
)

// NewClient creates a billing backend client
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}, nil
}

// envelope is the backend's standard response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, headers map[string]string) (*envelope, error) {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}

	var env envelope
	if len(raw) > 0 {
		// A broken envelope on an error status still classifies by status.
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		appErr := apperror.FromStatus(resp.StatusCode)
		if env.Message != "" {
			appErr = apperror.NewAppError(resp.StatusCode, env.Message)
		}
		c.log.Debug("backend call failed",
			zap.String("request_id", applog.GetRequestID(ctx)),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", appErr.Message),
		)
		return nil, appErr
	}
	return &env, nil
}

// CustomerLedger returns the customer's ledger rows for the filter window.
func (c *Client) CustomerLedger(ctx context.Context, customerID int64, filter entity.LedgerFilter) ([]entity.LedgerEntry, error) {
	q := url.Values{}
	q.Set("from_date", filter.From.Format("2006-01-02"))
	q.Set("to_date", filter.To.Format("2006-01-02"))
	setOptID(q, "branch_id", filter.BranchID)
	setOptID(q, "route_id", filter.RouteID)
	setOptID(q, "staff_id", filter.StaffID)

	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("customers/%d/ledger", customerID), q, nil, nil)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords(env.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding ledger rows: %w", err)
	}
	entries := make([]entity.LedgerEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, normalizeLedgerEntry(r))
	}
	return entries, nil
}

// SalesReport returns one page of invoices plus the total count.
func (c *Client) SalesReport(ctx context.Context, q repository.SalesQuery) ([]entity.Invoice, int64, error) {
	params := url.Values{}
	params.Set("customer_id", strconv.FormatInt(q.CustomerID, 10))
	params.Set("from_date", q.From.Format("2006-01-02"))
	params.Set("to_date", q.To.Format("2006-01-02"))
	params.Set("page", strconv.Itoa(q.Params.Page))
	params.Set("per_page", strconv.Itoa(q.Params.PerPage))

	env, err := c.do(ctx, http.MethodGet, "reports/sales", params, nil, nil)
	if err != nil {
		return nil, 0, err
	}

	var page struct {
		Items      []record `json:"items"`
		TotalCount int64    `json:"total_count"`
		TotalAlias int64    `json:"totalCount"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		return nil, 0, fmt.Errorf("decoding sales report: %w", err)
	}
	total := page.TotalCount
	if total == 0 {
		total = page.TotalAlias
	}
	invoices := make([]entity.Invoice, 0, len(page.Items))
	for _, r := range page.Items {
		invoices = append(invoices, normalizeInvoice(r))
	}
	return invoices, total, nil
}

// Outstanding returns all invoices with an unpaid balance, oldest first.
func (c *Client) Outstanding(ctx context.Context, customerID int64) ([]entity.Invoice, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("customers/%d/invoices/outstanding", customerID), nil, nil, nil)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords(env.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding outstanding invoices: %w", err)
	}
	invoices := make([]entity.Invoice, 0, len(records))
	for _, r := range records {
		invoices = append(invoices, normalizeInvoice(r))
	}
	return invoices, nil
}

// GetByID returns the customer record.
func (c *Client) GetByID(ctx context.Context, customerID int64) (*entity.CustomerSnapshot, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("customers/%d", customerID), nil, nil, nil)
	if err != nil {
		return nil, err
	}
	var r record
	if err := json.Unmarshal(env.Data, &r); err != nil {
		return nil, fmt.Errorf("decoding customer: %w", err)
	}
	cust := normalizeCustomer(r)
	return &cust, nil
}

// RecalculateBalance asks the backend to recompute the stored balance.
func (c *Client) RecalculateBalance(ctx context.Context, customerID int64) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("customers/%d/recalculate", customerID), nil, nil, nil)
	return err
}

// List returns one page of the customer's payments.
func (c *Client) List(ctx context.Context, customerID int64, params *pagination.PaginationParams) ([]entity.Payment, error) {
	q := url.Values{}
	q.Set("customer_id", strconv.FormatInt(customerID, 10))
	q.Set("page", strconv.Itoa(params.Page))
	q.Set("per_page", strconv.Itoa(params.PerPage))

	env, err := c.do(ctx, http.MethodGet, "payments", q, nil, nil)
	if err != nil {
		return nil, err
	}
	var page struct {
		Items []record `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		return nil, fmt.Errorf("decoding payments: %w", err)
	}
	payments := make([]entity.Payment, 0, len(page.Items))
	for _, r := range page.Items {
		payments = append(payments, normalizePayment(r))
	}
	return payments, nil
}

// CheckDuplicate asks the backend whether a same-day payment with the same
// amount already exists for this customer.
func (c *Client) CheckDuplicate(ctx context.Context, customerID int64, amount string, day string) (bool, error) {
	q := url.Values{}
	q.Set("customer_id", strconv.FormatInt(customerID, 10))
	q.Set("amount", amount)
	q.Set("date", day)

	env, err := c.do(ctx, http.MethodGet, "payments/duplicate-check", q, nil, nil)
	if err != nil {
		return false, err
	}
	var r record
	if err := json.Unmarshal(env.Data, &r); err != nil {
		return false, fmt.Errorf("decoding duplicate check: %w", err)
	}
	return r.boolAt("has_duplicate", "hasDuplicate"), nil
}

// paymentBody is the wire shape for payment writes
type paymentBody struct {
	CustomerID  int64            `json:"customer_id"`
	Amount      string           `json:"amount"`
	Mode        string           `json:"mode"`
	Reference   string           `json:"reference,omitempty"`
	PaymentDate string           `json:"payment_date"`
	InvoiceID   *int64           `json:"invoice_id,omitempty"`
	Allocations []allocationBody `json:"allocations,omitempty"`
}

type allocationBody struct {
	InvoiceID int64  `json:"invoice_id"`
	Amount    string `json:"amount"`
}

func newPaymentBody(draft entity.PaymentDraft, plan entity.AllocationPlan) paymentBody {
	body := paymentBody{
		CustomerID:  draft.CustomerID,
		Amount:      draft.Amount.StringFixed(2),
		Mode:        draft.Mode,
		Reference:   draft.Reference,
		PaymentDate: draft.PaymentDate.Format("2006-01-02"),
		InvoiceID:   draft.InvoiceID,
	}
	for _, a := range plan {
		body.Allocations = append(body.Allocations, allocationBody{
			InvoiceID: a.InvoiceID,
			Amount:    a.Amount.StringFixed(2),
		})
	}
	return body
}

// Create submits a single payment under the given idempotency key.
func (c *Client) Create(ctx context.Context, draft entity.PaymentDraft, key uuid.UUID) (*repository.PaymentResult, error) {
	return c.submit(ctx, "payments", newPaymentBody(draft, nil), key)
}

// Allocate submits a payment spread across the invoices in the plan.
func (c *Client) Allocate(ctx context.Context, draft entity.PaymentDraft, plan entity.AllocationPlan, key uuid.UUID) (*repository.PaymentResult, error) {
	return c.submit(ctx, "payments/allocate", newPaymentBody(draft, plan), key)
}

func (c *Client) submit(ctx context.Context, path string, body paymentBody, key uuid.UUID) (*repository.PaymentResult, error) {
	headers := map[string]string{IdempotencyKeyHeader: key.String()}
	env, err := c.do(ctx, http.MethodPost, path, nil, body, headers)
	if err != nil {
		return nil, err
	}

	var data struct {
		Payment  record `json:"payment"`
		Invoice  record `json:"invoice"`
		Customer record `json:"customer"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decoding payment result: %w", err)
		}
	}

	result := &repository.PaymentResult{Message: env.Message}
	if data.Payment != nil {
		p := normalizePayment(data.Payment)
		result.Payment = &p
	}
	if data.Invoice != nil {
		inv := normalizeInvoice(data.Invoice)
		result.Invoice = &inv
	}
	if data.Customer != nil {
		cust := normalizeCustomer(data.Customer)
		result.Customer = &cust
	}
	return result, nil
}

func setOptID(q url.Values, name string, id *int64) {
	if id != nil {
		q.Set(name, strconv.FormatInt(*id, 10))
	}
}
