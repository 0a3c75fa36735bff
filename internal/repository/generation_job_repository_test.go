package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"lingua_lms_backend/internal/model"
)

func TestClaimFirstWins(t *testing.T) {
	db := testDB(t)
	repo := NewGenerationJobRepository(db)
	ctx := context.Background()

	job, err := repo.Claim(ctx, "nb-1", model.GenerateMetadata, "nb-1:metadata:2026083110", time.Hour)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if job.Status != model.GenerationClaimed {
		t.Fatalf("status = %s", job.Status)
	}

	_, err = repo.Claim(ctx, "nb-1", model.GenerateMetadata, "nb-1:metadata:2026083110", time.Hour)
	if !errors.Is(err, ErrGenerationInFlight) {
		t.Fatalf("second claim err = %v, want ErrGenerationInFlight", err)
	}
}

func TestClaimAfterCompletionRejected(t *testing.T) {
	db := testDB(t)
	repo := NewGenerationJobRepository(db)
	ctx := context.Background()
	key := "nb-1:quiz:2026083110"

	if _, err := repo.Claim(ctx, "nb-1", model.GenerateQuiz, key, time.Hour); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := repo.Complete(ctx, key); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := repo.Claim(ctx, "nb-1", model.GenerateQuiz, key, time.Hour)
	if !errors.Is(err, ErrGenerationDone) {
		t.Fatalf("claim err = %v, want ErrGenerationDone", err)
	}
}

func TestClaimReclaimsFailedRow(t *testing.T) {
	db := testDB(t)
	repo := NewGenerationJobRepository(db)
	ctx := context.Background()
	key := "nb-1:summary:2026083110"

	if _, err := repo.Claim(ctx, "nb-1", model.GenerateSummary, key, time.Hour); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := repo.Fail(ctx, key, "workflow timed out"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	job, err := repo.Claim(ctx, "nb-1", model.GenerateSummary, key, time.Hour)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if job.Status != model.GenerationClaimed || job.Error != "" {
		t.Fatalf("reclaimed row = %+v", job)
	}
}

func TestClaimReclaimsExpiredClaim(t *testing.T) {
	db := testDB(t)
	repo := NewGenerationJobRepository(db)
	ctx := context.Background()
	key := "nb-1:metadata:2026083109"

	if _, err := repo.Claim(ctx, "nb-1", model.GenerateMetadata, key, -time.Minute); err != nil {
		t.Fatalf("claim: %v", err)
	}
	job, err := repo.Claim(ctx, "nb-1", model.GenerateMetadata, key, time.Hour)
	if err != nil {
		t.Fatalf("reclaim expired: %v", err)
	}
	if !job.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected fresh expiry, got %v", job.ExpiresAt)
	}
}

func TestFailTruncatesLongCause(t *testing.T) {
	db := testDB(t)
	repo := NewGenerationJobRepository(db)
	ctx := context.Background()
	key := "nb-2:metadata:2026083110"

	if _, err := repo.Claim(ctx, "nb-2", model.GenerateMetadata, key, time.Hour); err != nil {
		t.Fatalf("claim: %v", err)
	}
	long := make([]byte, 900)
	for i := range long {
		long[i] = 'x'
	}
	if err := repo.Fail(ctx, key, string(long)); err != nil {
		t.Fatalf("fail: %v", err)
	}
	job, err := repo.FindByKey(ctx, key)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(job.Error) != 500 {
		t.Fatalf("error length = %d, want 500", len(job.Error))
	}
}
