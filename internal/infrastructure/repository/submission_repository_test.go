package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"github.com/nandi-systems/ledgerflow-api/internal/infrastructure/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *submissionRepository {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return &submissionRepository{db: db}
}

func newSubmission(customerID int64, amount string, day string) *entity.Submission {
	amt, _ := decimal.NewFromString(amount)
	return &entity.Submission{
		ID:             uuid.New(),
		IdempotencyKey: uuid.NewString(),
		CustomerID:     customerID,
		Amount:         amt,
		Mode:           "cash",
		PaymentDay:     day,
		Status:         entity.SubmissionPending,
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	}
}

func TestSubmissionRoundTrip(t *testing.T) {
	repo := newTestJournal(t)
	ctx := context.Background()

	sub := newSubmission(7, "500.00", "2024-01-01")
	require.NoError(t, repo.Create(ctx, sub))

	got, err := repo.GetByKey(ctx, sub.IdempotencyKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity.SubmissionPending, got.Status)
	assert.Equal(t, int64(7), got.CustomerID)

	missing, err := repo.GetByKey(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestResolveAndFindSameDay(t *testing.T) {
	repo := newTestJournal(t)
	ctx := context.Background()

	sub := newSubmission(7, "500.00", "2024-01-01")
	require.NoError(t, repo.Create(ctx, sub))

	// Pending submissions do not count as duplicates.
	matches, err := repo.FindSameDay(ctx, 7, "500.00", "2024-01-01")
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, repo.Resolve(ctx, sub.IdempotencyKey, entity.SubmissionSucceeded, 200))

	got, err := repo.GetByKey(ctx, sub.IdempotencyKey)
	require.NoError(t, err)
	assert.Equal(t, entity.SubmissionSucceeded, got.Status)
	assert.Equal(t, 200, got.ResponseCode)
	assert.NotNil(t, got.ResolvedAt)

	matches, err = repo.FindSameDay(ctx, 7, "500.00", "2024-01-01")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// Different day or customer is not a match.
	matches, err = repo.FindSameDay(ctx, 7, "500.00", "2024-01-02")
	require.NoError(t, err)
	assert.Empty(t, matches)
	matches, err = repo.FindSameDay(ctx, 8, "500.00", "2024-01-01")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDeleteExpired(t *testing.T) {
	repo := newTestJournal(t)
	ctx := context.Background()

	fresh := newSubmission(7, "10.00", "2024-01-01")
	stale := newSubmission(7, "20.00", "2023-01-01")
	stale.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, fresh))
	require.NoError(t, repo.Create(ctx, stale))

	require.NoError(t, repo.DeleteExpired(ctx))

	got, err := repo.GetByKey(ctx, stale.IdempotencyKey)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetByKey(ctx, fresh.IdempotencyKey)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
