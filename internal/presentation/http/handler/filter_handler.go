package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/nandi-systems/ledgerflow-api/internal/application/service"
	"github.com/nandi-systems/ledgerflow-api/internal/presentation/http/dto/request"
	"github.com/nandi-systems/ledgerflow-api/internal/presentation/http/dto/response"
)

// FilterHandler handles staged ledger filter edits
type FilterHandler struct {
	pipeline *service.FilterPipeline
}

// NewFilterHandler creates a new filter handler
func NewFilterHandler(pipeline *service.FilterPipeline) *FilterHandler {
	return &FilterHandler{pipeline: pipeline}
}

// Update stages the edits carried in the payload. Each staged edit restarts
// the quiet period; the batch commits and reloads on its own once edits
// stop.
func (h *FilterHandler) Update(c *gin.Context) {
	var req request.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload")
		return
	}

	if id, present := req.Branch(); present {
		h.pipeline.SetBranch(id)
	}
	if id, present := req.Route(); present {
		h.pipeline.SetRoute(id)
	}
	if id, present := req.Staff(); present {
		h.pipeline.SetStaff(id)
	}
	from, to, present, err := req.DateRange()
	if err != nil {
		response.Error(c, err)
		return
	}
	if present {
		h.pipeline.SetDateRange(from, to)
	}

	response.OK(c, "Filters staged", h.pipeline.Draft())
}

// Apply commits the staged filters immediately.
func (h *FilterHandler) Apply(c *gin.Context) {
	h.pipeline.Apply()
	response.OK(c, "Filters applied", h.pipeline.Committed())
}

// Reset discards the staged edits and any pending batch.
func (h *FilterHandler) Reset(c *gin.Context) {
	h.pipeline.Reset()
	response.OK(c, "Filters reset", h.pipeline.Draft())
}
