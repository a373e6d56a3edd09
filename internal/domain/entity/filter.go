package entity

import (
	"fmt"
	"time"
)

// LedgerFilter is the committed filter state that scopes a customer load:
// organisational filters plus the ledger date window.
type LedgerFilter struct {
	BranchID *int64    `json:"branch_id,omitempty"`
	RouteID  *int64    `json:"route_id,omitempty"`
	StaffID  *int64    `json:"staff_id,omitempty"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
}

// ResetDependents clears filters that are scoped under the branch. Called
// whenever the branch changes, because the previously selected route may not
// exist under the new branch.
func (f *LedgerFilter) ResetDependents() {
	f.RouteID = nil
}

// LoadRequest identifies one "fetch everything for this customer" operation.
// Its Key is the identity the flight gate serializes on.
type LoadRequest struct {
	CustomerID int64        `json:"customer_id"`
	Filter     LedgerFilter `json:"filter"`
}

// Key returns a stable fingerprint of the request identity. Two requests
// with the same key are the same logical load and must not run concurrently.
func (r LoadRequest) Key() string {
	return fmt.Sprintf("ledger:%d:%s:%s:%s:%s|%s",
		r.CustomerID,
		fmtID(r.Filter.BranchID),
		fmtID(r.Filter.RouteID),
		fmtID(r.Filter.StaffID),
		r.Filter.From.Format("2006-01-02"),
		r.Filter.To.Format("2006-01-02"),
	)
}

func fmtID(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}
