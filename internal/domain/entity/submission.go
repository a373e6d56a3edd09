package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmissionStatus tracks the lifecycle of one recorded payment submission
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionSucceeded SubmissionStatus = "succeeded"
	SubmissionFailed    SubmissionStatus = "failed"
)

// Submission is the journal record of one payment submission attempt. The
// journal is local to this service; it backs the same-day duplicate probe
// when the backend probe is unreachable and preserves idempotency tokens
// across restarts.
type Submission struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	IdempotencyKey string           `gorm:"uniqueIndex;size:64;not null" json:"idempotency_key"`
	CustomerID     int64            `gorm:"not null;index" json:"customer_id"`
	Amount         decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"amount"`
	Mode           string           `gorm:"size:50" json:"mode"`
	PaymentDay     string           `gorm:"size:10;not null;index" json:"payment_day"` // tenant-local calendar day, YYYY-MM-DD
	Allocated      bool             `gorm:"default:false" json:"allocated"`
	Status         SubmissionStatus `gorm:"size:20;not null" json:"status"`
	ResponseCode   int              `json:"response_code"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	ResolvedAt     *time.Time       `json:"resolved_at,omitempty"`
	ExpiresAt      time.Time        `gorm:"not null;index" json:"expires_at"`
}

// TableName returns the table name for the Submission model
func (Submission) TableName() string {
	return "submissions"
}

// IsExpired checks if the journal record has aged out
func (s *Submission) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
