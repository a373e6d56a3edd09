package entity

import "time"

// LedgerSnapshot is the assembled state of one customer load: everything the
// ledger page shows, fetched under a single committed filter. Partial results
// are never exposed; a snapshot exists only once all sub-fetches resolved.
type LedgerSnapshot struct {
	CustomerID  int64             `json:"customer_id"`
	Filter      LedgerFilter      `json:"filter"`
	Customer    *CustomerSnapshot `json:"customer"`
	Entries     []LedgerEntry     `json:"entries"`
	Invoices    []Invoice         `json:"invoices"`
	Outstanding []Invoice         `json:"outstanding"`
	Payments    []Payment         `json:"payments"`
	LoadedAt    time.Time         `json:"loaded_at"`
}
