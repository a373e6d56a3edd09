package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/nandi-systems/ledgerflow-api/internal/application/service"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"github.com/nandi-systems/ledgerflow-api/internal/presentation/http/dto/response"
	"github.com/nandi-systems/ledgerflow-api/pkg/pagination"
)

// LedgerHandler handles customer selection and ledger view requests
type LedgerHandler struct {
	ledgerService *service.LedgerService
	reconciler    *service.Reconciler
	pipeline      *service.FilterPipeline
	convergence   *service.ConvergenceScheduler
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(
	ledgerService *service.LedgerService,
	reconciler *service.Reconciler,
	pipeline *service.FilterPipeline,
	convergence *service.ConvergenceScheduler,
) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		reconciler:    reconciler,
		pipeline:      pipeline,
		convergence:   convergence,
	}
}

// ledgerView is the payload for a loaded ledger.
type ledgerView struct {
	Snapshot *entity.LedgerSnapshot       `json:"snapshot"`
	Report   *entity.ReconciliationReport `json:"report,omitempty"`
}

// Select switches the view to a customer, resets the filter pipeline, and
// loads the ledger.
func (h *LedgerHandler) Select(c *gin.Context) {
	id, ok := CustomerIDParam(c)
	if !ok {
		response.BadRequest(c, "Invalid customer ID")
		return
	}

	req := h.ledgerService.Select(id, entity.LedgerFilter{})
	h.pipeline.Activate(req.Filter)

	snap, err := h.ledgerService.Load(c.Request.Context(), req)
	if err != nil {
		h.loadError(c, err)
		return
	}
	_, report := h.ledgerService.Snapshot()
	response.OK(c, "Customer selected", ledgerView{Snapshot: snap, Report: report})
}

// Get reloads the ledger for the selected customer and returns the snapshot.
func (h *LedgerHandler) Get(c *gin.Context) {
	id, ok := CustomerIDParam(c)
	if !ok {
		response.BadRequest(c, "Invalid customer ID")
		return
	}

	req, err := h.ledgerService.Request()
	if err != nil || req.CustomerID != id {
		response.NotFound(c, "Customer is not selected")
		return
	}

	snap, err := h.ledgerService.Load(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrLoadInFlight) {
			// Another identical load is running; serve what we have.
			current, report := h.ledgerService.Snapshot()
			response.OK(c, "Load already in progress", ledgerView{Snapshot: current, Report: report})
			return
		}
		h.loadError(c, err)
		return
	}
	_, report := h.ledgerService.Snapshot()
	response.OK(c, "Ledger loaded", ledgerView{Snapshot: snap, Report: report})
}

// Entries returns one page of the loaded ledger's entry rows.
func (h *LedgerHandler) Entries(c *gin.Context) {
	id, ok := CustomerIDParam(c)
	if !ok {
		response.BadRequest(c, "Invalid customer ID")
		return
	}

	snap, _ := h.ledgerService.Snapshot()
	if snap == nil || snap.CustomerID != id {
		response.NotFound(c, "No loaded ledger for this customer")
		return
	}

	params := pagination.DefaultPagination()
	if err := c.ShouldBindQuery(params); err != nil {
		response.BadRequest(c, "Invalid pagination parameters")
		return
	}
	params.Validate()

	start := params.Offset()
	if start > len(snap.Entries) {
		start = len(snap.Entries)
	}
	end := start + params.PerPage
	if end > len(snap.Entries) {
		end = len(snap.Entries)
	}

	page := pagination.NewPagination(params.Page, params.PerPage, int64(len(snap.Entries)))
	result := pagination.NewPaginatedResult(snap.Entries[start:end], page)
	response.SuccessWithPagination(c, 200, "Ledger entries retrieved", result)
}

// Refreshing reports whether the post-write refresh for a customer is still
// running.
func (h *LedgerHandler) Refreshing(c *gin.Context) {
	id, ok := CustomerIDParam(c)
	if !ok {
		response.BadRequest(c, "Invalid customer ID")
		return
	}
	response.OK(c, "Refresh state retrieved", gin.H{
		"customer_id": id,
		"refreshing":  h.convergence.IsRefreshing(id),
	})
}

// Reconcile runs the user-invoked reconciliation against the current
// snapshot and returns the full report.
func (h *LedgerHandler) Reconcile(c *gin.Context) {
	id, ok := CustomerIDParam(c)
	if !ok {
		response.BadRequest(c, "Invalid customer ID")
		return
	}

	snap, _ := h.ledgerService.Snapshot()
	if snap == nil || snap.CustomerID != id {
		response.NotFound(c, "No loaded ledger for this customer")
		return
	}

	report := h.reconciler.Run(c.Request.Context(), snap)
	message := "Ledger is consistent"
	if !report.Valid {
		message = "Ledger has consistency errors"
	} else if len(report.Warnings) > 0 {
		message = "Ledger is consistent with warnings"
	}
	response.OK(c, message, report)
}

func (h *LedgerHandler) loadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLoadInFlight):
		response.ErrorWithCode(c, 409, "An identical load is already in progress")
	case errors.Is(err, service.ErrLoadSuperseded):
		response.ErrorWithCode(c, 409, "The selection changed while loading")
	default:
		response.Error(c, err)
	}
}
