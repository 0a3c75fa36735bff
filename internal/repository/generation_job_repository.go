package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"lingua_lms_backend/internal/model"

	"gorm.io/gorm"
)

var (
	// ErrGenerationInFlight means a live claim already covers this
	// idempotency key; the caller must not start a second run.
	ErrGenerationInFlight = errors.New("generation already claimed")

	// ErrGenerationDone means the key was already completed within its
	// window; re-running would duplicate an expensive workflow call.
	ErrGenerationDone = errors.New("generation already completed")
)

type GenerationJobRepository struct {
	DB *gorm.DB
}

func NewGenerationJobRepository(db *gorm.DB) *GenerationJobRepository {
	return &GenerationJobRepository{DB: db}
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

// Claim atomically marks the idempotency key as in progress. The unique
// index on idempotency_key is the mutual exclusion: the first insert wins,
// later callers either reclaim an expired/failed row or get a typed error.
func (r *GenerationJobRepository) Claim(ctx context.Context, notebookID string, kind model.GenerationKind, key string, ttl time.Duration) (*model.GenerationJob, error) {
	now := time.Now()
	job := &model.GenerationJob{
		NotebookID:     notebookID,
		Kind:           kind,
		IdempotencyKey: key,
		Status:         model.GenerationClaimed,
		ClaimedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}

	err := r.DB.WithContext(ctx).Create(job).Error
	if err == nil {
		return job, nil
	}
	if !isDuplicateKey(err) {
		return nil, err
	}

	// Key exists. A failed or expired claim may be taken over; the WHERE
	// clause makes the takeover itself atomic.
	res := r.DB.WithContext(ctx).Model(&model.GenerationJob{}).
		Where("idempotency_key = ?", key).
		Where("status = ? OR (status = ? AND expires_at < ?)",
			model.GenerationFailed, model.GenerationClaimed, now).
		Updates(map[string]interface{}{
			"status":     model.GenerationClaimed,
			"claimed_at": now,
			"expires_at": now.Add(ttl),
			"error":      "",
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 1 {
		var reclaimed model.GenerationJob
		if err := r.DB.WithContext(ctx).First(&reclaimed, "idempotency_key = ?", key).Error; err != nil {
			return nil, err
		}
		return &reclaimed, nil
	}

	var existing model.GenerationJob
	if err := r.DB.WithContext(ctx).First(&existing, "idempotency_key = ?", key).Error; err != nil {
		return nil, err
	}
	if existing.Status == model.GenerationCompleted {
		return nil, ErrGenerationDone
	}
	return nil, ErrGenerationInFlight
}

func (r *GenerationJobRepository) Complete(ctx context.Context, key string) error {
	return r.DB.WithContext(ctx).Model(&model.GenerationJob{}).
		Where("idempotency_key = ?", key).
		Update("status", model.GenerationCompleted).Error
}

func (r *GenerationJobRepository) Fail(ctx context.Context, key string, cause string) error {
	if len(cause) > 500 {
		cause = cause[:500]
	}
	return r.DB.WithContext(ctx).Model(&model.GenerationJob{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]interface{}{
			"status": model.GenerationFailed,
			"error":  cause,
		}).Error
}

func (r *GenerationJobRepository) FindByKey(ctx context.Context, key string) (*model.GenerationJob, error) {
	var job model.GenerationJob
	err := r.DB.WithContext(ctx).First(&job, "idempotency_key = ?", key).Error
	return &job, err
}

func (r *GenerationJobRepository) ListByNotebook(ctx context.Context, notebookID string) ([]model.GenerationJob, error) {
	var jobs []model.GenerationJob
	err := r.DB.WithContext(ctx).
		Where("notebook_id = ?", notebookID).
		Order("claimed_at DESC").
		Find(&jobs).Error
	return jobs, err
}
