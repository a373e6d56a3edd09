package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	domainRepo "github.com/nandi-systems/ledgerflow-api/internal/domain/repository"
	"gorm.io/gorm"
)

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository creates a new submission journal repository
func NewSubmissionRepository(db *gorm.DB) domainRepo.SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, sub *entity.Submission) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *submissionRepository) GetByKey(ctx context.Context, key string) (*entity.Submission, error) {
	var sub entity.Submission
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&sub).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) FindSameDay(ctx context.Context, customerID int64, amount string, day string) ([]entity.Submission, error) {
	var subs []entity.Submission
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND amount = ? AND payment_day = ? AND status = ?",
			customerID, amount, day, entity.SubmissionSucceeded).
		Find(&subs).Error
	return subs, err
}

func (r *submissionRepository) Resolve(ctx context.Context, key string, status entity.SubmissionStatus, responseCode int) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entity.Submission{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{
			"status":        status,
			"response_code": responseCode,
			"resolved_at":   &now,
		}).Error
}

func (r *submissionRepository) DeleteExpired(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&entity.Submission{}).Error
}
