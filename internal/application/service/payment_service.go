package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/repository"
	"github.com/nandi-systems/ledgerflow-api/pkg/apperror"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SubmitStatus is the terminal state of one Submit call.
type SubmitStatus string

const (
	// SubmitCompleted means the backend acknowledged the payment.
	SubmitCompleted SubmitStatus = "completed"
	// SubmitDuplicateSuspected means a same-day payment with the same
	// customer and amount already exists. Nothing was sent; the caller must
	// confirm and resubmit with the returned idempotency key, or drop the
	// submission.
	SubmitDuplicateSuspected SubmitStatus = "duplicate_suspected"
)

// SubmitInput is one payment submission attempt.
type SubmitInput struct {
	Draft entity.PaymentDraft
	// AllocateAll spreads the amount across outstanding invoices instead of
	// recording a single payment.
	AllocateAll bool
	Plan        entity.AllocationPlan
	// IdempotencyKey is zero for a fresh submission. A duplicate-confirm
	// resubmit carries the key returned by the suspended attempt so the
	// backend sees one logical payment however many times it is delivered.
	IdempotencyKey uuid.UUID
	// ConfirmDuplicate skips the duplicate probe. Set only when the user
	// explicitly confirmed a suspected duplicate.
	ConfirmDuplicate bool

	// retry marks the single deferred re-attempt after a rate limit. A
	// retried submission that fails again is not rescheduled.
	retry bool
}

// SubmitOutcome reports what happened to a submission.
type SubmitOutcome struct {
	Status         SubmitStatus              `json:"status"`
	IdempotencyKey uuid.UUID                 `json:"idempotency_key"`
	Result         *repository.PaymentResult `json:"result,omitempty"`
	Message        string                    `json:"message,omitempty"`
}

const journalRetention = 7 * 24 * time.Hour

// ErrSubmissionBusy is returned when a submission arrives while another one
// is still in flight.
var ErrSubmissionBusy = apperror.NewConflictError("another payment submission is in progress")

// PaymentService submits payments to the backend exactly once per user
// intent. One submission is in flight at a time; each attempt gets a
// client-generated idempotency token, is probed for same-day duplicates
// before sending, and is journalled locally so tokens survive restarts.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	invoiceRepo repository.InvoiceRepository
	journal     repository.SubmissionRepository
	convergence *ConvergenceScheduler
	throttle    *RefreshThrottle
	tolerance   decimal.Decimal
	ceiling     decimal.Decimal
	tz          *time.Location
	timeout     time.Duration
	log         *zap.Logger

	mu       sync.Mutex
	inFlight bool
}

// NewPaymentService creates the payment submitter. ceiling caps a single
// payment amount; tz anchors the calendar day used by the duplicate probe.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	invoiceRepo repository.InvoiceRepository,
	journal repository.SubmissionRepository,
	convergence *ConvergenceScheduler,
	throttle *RefreshThrottle,
	tolerance decimal.Decimal,
	ceiling decimal.Decimal,
	tz *time.Location,
	timeout time.Duration,
	log *zap.Logger,
) *PaymentService {
	if tz == nil {
		tz = time.UTC
	}
	return &PaymentService{
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		journal:     journal,
		convergence: convergence,
		throttle:    throttle,
		tolerance:   tolerance,
		ceiling:     ceiling,
		tz:          tz,
		timeout:     timeout,
		log:         log,
	}
}

// Submit runs one payment submission end to end: local validation, the
// allocation staleness check, the duplicate probe, the guarded network
// write, and the post-write convergence hand-off. It returns
// SubmitDuplicateSuspected without sending anything when a same-day
// duplicate is found and the caller has not confirmed.
func (s *PaymentService) Submit(ctx context.Context, input SubmitInput) (*SubmitOutcome, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrSubmissionBusy
	}
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if input.AllocateAll {
		if err := s.checkAllocationFresh(ctx, input); err != nil {
			return nil, err
		}
	}

	key := input.IdempotencyKey
	if key == uuid.Nil {
		key = uuid.New()
	}
	day := input.Draft.PaymentDate.In(s.tz).Format("2006-01-02")

	if !input.ConfirmDuplicate {
		if dup := s.probeDuplicate(ctx, input.Draft, day); dup {
			return &SubmitOutcome{
				Status:         SubmitDuplicateSuspected,
				IdempotencyKey: key,
				Message:        "a payment with this amount already exists for this customer today",
			}, nil
		}
	}

	s.journalCreate(ctx, input, key, day)

	result, err := s.send(ctx, input, key)
	if err != nil {
		return nil, s.resolveFailure(input, key, err)
	}

	s.journalResolve(key, entity.SubmissionSucceeded, 200)
	s.convergence.AfterWrite(ctx, input.Draft.CustomerID)

	return &SubmitOutcome{
		Status:         SubmitCompleted,
		IdempotencyKey: key,
		Result:         result,
		Message:        result.Message,
	}, nil
}

// validate rejects a bad draft before any network traffic.
func (s *PaymentService) validate(input SubmitInput) error {
	var fields []apperror.FieldError
	if input.Draft.Amount.LessThanOrEqual(decimal.Zero) {
		fields = append(fields, apperror.FieldError{Field: "amount", Message: "amount must be greater than zero"})
	}
	if s.ceiling.IsPositive() && input.Draft.Amount.GreaterThan(s.ceiling) {
		fields = append(fields, apperror.FieldError{Field: "amount", Message: "amount exceeds the single-payment limit"})
	}
	if input.Draft.PaymentDate.IsZero() {
		fields = append(fields, apperror.FieldError{Field: "payment_date", Message: "payment date is required"})
	}
	if input.Draft.CustomerID <= 0 {
		fields = append(fields, apperror.FieldError{Field: "customer_id", Message: "customer is required"})
	}
	if input.AllocateAll {
		if len(input.Plan) == 0 {
			fields = append(fields, apperror.FieldError{Field: "allocations", Message: "allocation plan is empty"})
		} else if input.Plan.Total().Sub(input.Draft.Amount).Abs().GreaterThan(s.tolerance) {
			fields = append(fields, apperror.FieldError{Field: "allocations", Message: "allocated total does not match the payment amount"})
		}
	}
	if len(fields) > 0 {
		return apperror.NewValidationError(fields)
	}
	return nil
}

// checkAllocationFresh re-derives the plan from the backend's current
// outstanding set. A plan computed against stale balances is rejected so the
// caller refreshes and retries instead of misallocating.
func (s *PaymentService) checkAllocationFresh(ctx context.Context, input SubmitInput) error {
	outstanding, err := s.invoiceRepo.Outstanding(ctx, input.Draft.CustomerID)
	if err != nil {
		return err
	}
	fresh := entity.PlanAllocations(input.Draft.Amount, outstanding)
	if !plansMatch(input.Plan, fresh, s.tolerance) {
		return apperror.NewConflictError("outstanding balances changed since the plan was prepared, refresh and retry")
	}
	return nil
}

func plansMatch(a, b entity.AllocationPlan, tolerance decimal.Decimal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].InvoiceID != b[i].InvoiceID {
			return false
		}
		if a[i].Amount.Sub(b[i].Amount).Abs().GreaterThan(tolerance) {
			return false
		}
	}
	return true
}

// probeDuplicate asks the backend for a same-day match, falling back to the
// local journal when the probe itself fails. An unreachable probe never
// blocks the submission.
func (s *PaymentService) probeDuplicate(ctx context.Context, draft entity.PaymentDraft, day string) bool {
	amount := draft.Amount.StringFixed(2)
	dup, err := s.paymentRepo.CheckDuplicate(ctx, draft.CustomerID, amount, day)
	if err == nil {
		return dup
	}
	s.log.Warn("duplicate probe failed, falling back to local journal",
		zap.Int64("customer_id", draft.CustomerID),
		zap.Error(err),
	)
	subs, jerr := s.journal.FindSameDay(ctx, draft.CustomerID, amount, day)
	if jerr != nil {
		s.log.Warn("journal duplicate lookup failed", zap.Error(jerr))
		return false
	}
	return len(subs) > 0
}

func (s *PaymentService) send(ctx context.Context, input SubmitInput, key uuid.UUID) (*repository.PaymentResult, error) {
	if input.AllocateAll {
		return s.paymentRepo.Allocate(ctx, input.Draft, input.Plan, key)
	}
	return s.paymentRepo.Create(ctx, input.Draft, key)
}

// resolveFailure journals the failure and runs the kind-specific recovery:
// a conflict forces a reload, a rate limit schedules one deferred retry
// with the same token, and an ambiguous timeout or network failure gets one
// convergence pass because the write may have landed.
func (s *PaymentService) resolveFailure(input SubmitInput, key uuid.UUID, err error) error {
	cls := apperror.Classify(err)
	s.journalResolve(key, entity.SubmissionFailed, cls.Status)

	customerID := input.Draft.CustomerID
	switch cls.Kind {
	case apperror.KindConflict:
		s.log.Warn("payment rejected as conflicting, forcing reload",
			zap.Int64("customer_id", customerID),
		)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			s.convergence.ForceReload(ctx, customerID)
		}()
	case apperror.KindRateLimited:
		if input.retry {
			break
		}
		s.log.Info("payment rate limited, deferring one retry",
			zap.Int64("customer_id", customerID),
			zap.String("idempotency_key", key.String()),
		)
		retry := input
		retry.IdempotencyKey = key
		retry.ConfirmDuplicate = true
		retry.retry = true
		// The scope carries the token so concurrent rate-limited payments
		// each keep their own retry; coalescing only ever merges redelivery
		// of the same logical submission.
		scope := "payments:retry:" + key.String()
		var deliver func()
		deliver = func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			_, rerr := s.Submit(ctx, retry)
			if rerr == nil {
				return
			}
			if errors.Is(rerr, ErrSubmissionBusy) {
				// Another submission holds the slot; wait out one more
				// throttle interval rather than dropping the retry.
				s.throttle.Defer(scope, deliver)
				return
			}
			s.log.Warn("deferred payment retry failed",
				zap.Int64("customer_id", customerID),
				zap.Error(rerr),
			)
		}
		s.throttle.Defer(scope, deliver)
	case apperror.KindTimeout, apperror.KindNetwork:
		s.log.Warn("payment outcome ambiguous, running recovery pass",
			zap.Int64("customer_id", customerID),
			zap.String("kind", string(cls.Kind)),
		)
		go s.convergence.Recover(customerID)
	}
	return cls.Err()
}

// journalCreate records the attempt before the write goes out. The journal
// is advisory bookkeeping; a write failure here must not block the payment.
// A retried submission reuses its existing record.
func (s *PaymentService) journalCreate(ctx context.Context, input SubmitInput, key uuid.UUID, day string) {
	if existing, err := s.journal.GetByKey(ctx, key.String()); err == nil && existing != nil {
		return
	}
	sub := &entity.Submission{
		ID:             uuid.New(),
		IdempotencyKey: key.String(),
		CustomerID:     input.Draft.CustomerID,
		Amount:         input.Draft.Amount,
		Mode:           input.Draft.Mode,
		PaymentDay:     day,
		Allocated:      input.AllocateAll,
		Status:         entity.SubmissionPending,
		ExpiresAt:      time.Now().Add(journalRetention),
	}
	if err := s.journal.Create(ctx, sub); err != nil {
		s.log.Warn("submission journal write failed",
			zap.String("idempotency_key", key.String()),
			zap.Error(err),
		)
	}
}

func (s *PaymentService) journalResolve(key uuid.UUID, status entity.SubmissionStatus, code int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.journal.Resolve(ctx, key.String(), status, code); err != nil {
		s.log.Warn("submission journal resolve failed",
			zap.String("idempotency_key", key.String()),
			zap.Error(err),
		)
	}
}
