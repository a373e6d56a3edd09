package repository

import (
	"context"

	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
)

// SubmissionRepository persists the local payment-submission journal
type SubmissionRepository interface {
	Create(ctx context.Context, sub *entity.Submission) error
	GetByKey(ctx context.Context, key string) (*entity.Submission, error)
	// FindSameDay returns successful submissions matching customer, amount
	// and tenant-local calendar day. Backs the duplicate probe when the
	// backend probe is unreachable.
	FindSameDay(ctx context.Context, customerID int64, amount string, day string) ([]entity.Submission, error)
	Resolve(ctx context.Context, key string, status entity.SubmissionStatus, responseCode int) error
	DeleteExpired(ctx context.Context) error
}
