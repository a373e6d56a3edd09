package request

import (
	"time"

	"github.com/nandi-systems/ledgerflow-api/pkg/apperror"
)

// FilterRequest carries staged filter edits. Only the fields present in the
// payload are staged; a zero ID clears that filter.
type FilterRequest struct {
	BranchID *int64 `json:"branch_id"`
	RouteID  *int64 `json:"route_id"`
	StaffID  *int64 `json:"staff_id"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

// DateRange parses the date window when both ends are present.
func (r *FilterRequest) DateRange() (from, to time.Time, ok bool, err error) {
	if r.FromDate == "" && r.ToDate == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	if r.FromDate == "" || r.ToDate == "" {
		return time.Time{}, time.Time{}, false,
			apperror.NewBadRequestError("from_date and to_date must be set together")
	}
	from, err = time.Parse("2006-01-02", r.FromDate)
	if err != nil {
		return time.Time{}, time.Time{}, false,
			apperror.NewBadRequestError("from_date must be YYYY-MM-DD")
	}
	to, err = time.Parse("2006-01-02", r.ToDate)
	if err != nil {
		return time.Time{}, time.Time{}, false,
			apperror.NewBadRequestError("to_date must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, false,
			apperror.NewBadRequestError("to_date must not be before from_date")
	}
	return from, to, true, nil
}

// normalizeID maps the clear sentinel to nil.
func normalizeID(id *int64) *int64 {
	if id != nil && *id == 0 {
		return nil
	}
	return id
}

// Branch returns the staged branch value and whether it was present.
func (r *FilterRequest) Branch() (*int64, bool) { return normalizeID(r.BranchID), r.BranchID != nil }

// Route returns the staged route value and whether it was present.
func (r *FilterRequest) Route() (*int64, bool) { return normalizeID(r.RouteID), r.RouteID != nil }

// Staff returns the staged staff value and whether it was present.
func (r *FilterRequest) Staff() (*int64, bool) { return normalizeID(r.StaffID), r.StaffID != nil }
