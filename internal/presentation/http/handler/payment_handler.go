package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/nandi-systems/ledgerflow-api/internal/application/service"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	applog "github.com/nandi-systems/ledgerflow-api/internal/infrastructure/logger"
	"github.com/nandi-systems/ledgerflow-api/internal/presentation/http/dto/request"
	"github.com/nandi-systems/ledgerflow-api/internal/presentation/http/dto/response"
	"github.com/nandi-systems/ledgerflow-api/pkg/apperror"
	"go.uber.org/zap"
)

// PaymentHandler handles payment submission requests
type PaymentHandler struct {
	paymentService *service.PaymentService
	ledgerService  *service.LedgerService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *service.PaymentService, ledgerService *service.LedgerService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		ledgerService:  ledgerService,
	}
}

// Create handles recording a single payment
func (h *PaymentHandler) Create(c *gin.Context) {
	var req request.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}
	input, err := req.ToInput()
	if err != nil {
		response.Error(c, err)
		return
	}
	h.submit(c, input)
}

// Allocate handles paying all outstanding invoices with one amount. The
// allocation plan is derived from the loaded snapshot's outstanding set and
// re-verified against the backend before anything is sent.
func (h *PaymentHandler) Allocate(c *gin.Context) {
	var req request.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}
	input, err := req.ToInput()
	if err != nil {
		response.Error(c, err)
		return
	}

	snap, _ := h.ledgerService.Snapshot()
	if snap == nil || snap.CustomerID != input.Draft.CustomerID {
		response.NotFound(c, "No loaded ledger for this customer")
		return
	}
	input.AllocateAll = true
	input.Plan = entity.PlanAllocations(input.Draft.Amount, snap.Outstanding)

	h.submit(c, input)
}

func (h *PaymentHandler) submit(c *gin.Context, input service.SubmitInput) {
	out, err := h.paymentService.Submit(c.Request.Context(), input)
	if err != nil {
		cls := apperror.Classify(err)
		if cls.Kind == apperror.KindRateLimited {
			// The failure is handled internally: a retry is already
			// scheduled, so the caller gets an acknowledgement rather
			// than an error.
			response.Success(c, 202, "Submission deferred, a retry is scheduled", nil)
			return
		}
		applog.FromContext(c.Request.Context()).Warn("payment submission failed",
			zap.String("kind", string(cls.Kind)),
			zap.Int("status", cls.Status),
		)
		response.Error(c, err)
		return
	}

	if out.Status == service.SubmitDuplicateSuspected {
		response.Suspended(c, out.Message, out)
		return
	}
	response.Created(c, "Payment recorded successfully", out)
}
