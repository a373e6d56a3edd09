package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/repository"
	"github.com/nandi-systems/ledgerflow-api/pkg/pagination"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrLoadInFlight means an identical load is already running; the
	// caller skips. Not a failure and never shown to the user.
	ErrLoadInFlight = errors.New("identical load already in flight")
	// ErrLoadSuperseded means the selection changed while the load was
	// running; its result was discarded.
	ErrLoadSuperseded = errors.New("load superseded by a newer selection")
	// ErrNoSelection means no customer is selected.
	ErrNoSelection = errors.New("no customer selected")
)

// LedgerService owns the ledger view state: the currently selected customer,
// the committed filters, and the last validated snapshot. Loads are
// serialized through the flight gate; every suspension point re-checks that
// the response still matches the current selection before anything is
// committed, so late results for a superseded selection are discarded rather
// than cancelled.
type LedgerService struct {
	gate         *FlightGate
	ledgerRepo   repository.LedgerRepository
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	paymentRepo  repository.PaymentRepository
	reconciler   *Reconciler
	log          *zap.Logger

	mu         sync.Mutex
	selectedID int64
	committed  entity.LedgerFilter
	currentKey string
	snapshot   *entity.LedgerSnapshot
	lastReport *entity.ReconciliationReport
}

// NewLedgerService creates the ledger view service
func NewLedgerService(
	gate *FlightGate,
	ledgerRepo repository.LedgerRepository,
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	paymentRepo repository.PaymentRepository,
	reconciler *Reconciler,
	log *zap.Logger,
) *LedgerService {
	return &LedgerService{
		gate:         gate,
		ledgerRepo:   ledgerRepo,
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		paymentRepo:  paymentRepo,
		reconciler:   reconciler,
		log:          log,
	}
}

// Select switches the view to a customer. Stale snapshot data is cleared
// immediately; an in-flight load for the previous customer keeps running but
// its result will fail the identity check and be discarded on arrival.
func (s *LedgerService) Select(customerID int64, filter entity.LedgerFilter) entity.LoadRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = customerID
	s.committed = filter
	s.snapshot = nil
	s.lastReport = nil
	req := entity.LoadRequest{CustomerID: customerID, Filter: filter}
	s.currentKey = req.Key()
	return req
}

// CommitFilter replaces the committed filter for the current selection and
// returns the load request it implies. Called by the filter pipeline.
func (s *LedgerService) CommitFilter(filter entity.LedgerFilter) (entity.LoadRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID == 0 {
		return entity.LoadRequest{}, ErrNoSelection
	}
	s.committed = filter
	req := entity.LoadRequest{CustomerID: s.selectedID, Filter: filter}
	s.currentKey = req.Key()
	return req, nil
}

// Request returns the load request for the current selection.
func (s *LedgerService) Request() (entity.LoadRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID == 0 {
		return entity.LoadRequest{}, ErrNoSelection
	}
	return entity.LoadRequest{CustomerID: s.selectedID, Filter: s.committed}, nil
}

// Snapshot returns the last committed snapshot and its validation report.
func (s *LedgerService) Snapshot() (*entity.LedgerSnapshot, *entity.ReconciliationReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, s.lastReport
}

// stillCurrent reports whether req is still what the user is looking at.
// Checked after every network round-trip and immediately before the state
// commit, because the selection may change across any suspension point.
func (s *LedgerService) stillCurrent(req entity.LoadRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentKey == req.Key()
}

// Load fetches everything for one customer under the committed filter. The
// five sub-fetches run concurrently; the combined snapshot is assembled only
// once all of them resolved, passed through the reconciliation validator,
// and committed only if the selection has not moved on.
func (s *LedgerService) Load(ctx context.Context, req entity.LoadRequest) (*entity.LedgerSnapshot, error) {
	key := req.Key()
	if !s.gate.Admit(key) {
		return nil, ErrLoadInFlight
	}
	defer s.gate.Release(key)

	if !s.stillCurrent(req) {
		return nil, ErrLoadSuperseded
	}

	var (
		entries     []entity.LedgerEntry
		invoices    []entity.Invoice
		outstanding []entity.Invoice
		customer    *entity.CustomerSnapshot
		payments    []entity.Payment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.ledgerRepo.CustomerLedger(gctx, req.CustomerID, req.Filter)
		return s.checkpoint(req, err)
	})
	g.Go(func() error {
		var err error
		invoices, _, err = s.invoiceRepo.SalesReport(gctx, repository.SalesQuery{
			CustomerID: req.CustomerID,
			From:       req.Filter.From,
			To:         req.Filter.To,
			Params:     pagination.DefaultPagination(),
		})
		return s.checkpoint(req, err)
	})
	g.Go(func() error {
		var err error
		outstanding, err = s.invoiceRepo.Outstanding(gctx, req.CustomerID)
		return s.checkpoint(req, err)
	})
	g.Go(func() error {
		var err error
		customer, err = s.customerRepo.GetByID(gctx, req.CustomerID)
		return s.checkpoint(req, err)
	})
	g.Go(func() error {
		var err error
		payments, err = s.paymentRepo.List(gctx, req.CustomerID, pagination.DefaultPagination())
		return s.checkpoint(req, err)
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrLoadSuperseded) {
			s.log.Debug("discarding superseded load", zap.String("key", key))
			return nil, ErrLoadSuperseded
		}
		return nil, err
	}

	snap := &entity.LedgerSnapshot{
		CustomerID:  req.CustomerID,
		Filter:      req.Filter,
		Customer:    customer,
		Entries:     entries,
		Invoices:    invoices,
		Outstanding: outstanding,
		Payments:    payments,
		LoadedAt:    time.Now(),
	}

	report := s.reconciler.Reconcile(snap)
	report.CheckedAt = time.Now()
	s.reconciler.Log(report)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Final identity check inside the lock: the selection may have moved
	// while the validator ran.
	if s.currentKey != key {
		s.log.Debug("discarding superseded load", zap.String("key", key))
		return nil, ErrLoadSuperseded
	}
	s.snapshot = snap
	s.lastReport = &report
	return snap, nil
}

// checkpoint wraps the per-fetch identity re-check: a fetch that resolved
// after the selection moved on poisons the group with ErrLoadSuperseded.
func (s *LedgerService) checkpoint(req entity.LoadRequest, err error) error {
	if err != nil {
		return err
	}
	if !s.stillCurrent(req) {
		return ErrLoadSuperseded
	}
	return nil
}

// Reload re-runs the current load if customerID is still the selection.
// Used by the convergence scheduler after a write.
func (s *LedgerService) Reload(ctx context.Context, customerID int64) error {
	req, err := s.Request()
	if err != nil {
		return err
	}
	if req.CustomerID != customerID {
		// The user moved on; the delayed reload is moot.
		return ErrLoadSuperseded
	}
	_, err = s.Load(ctx, req)
	if errors.Is(err, ErrLoadInFlight) {
		return nil
	}
	return err
}
