package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lingua_lms_backend/internal/config"
	"lingua_lms_backend/internal/feed"
	"lingua_lms_backend/internal/model"
	"lingua_lms_backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestIdempotencyKeyBucketsByHour(t *testing.T) {
	base := time.Date(2026, 8, 31, 10, 5, 0, 0, time.UTC)

	a := IdempotencyKey("nb-1", model.GenerateMetadata, base)
	b := IdempotencyKey("nb-1", model.GenerateMetadata, base.Add(40*time.Minute))
	if a != b {
		t.Fatalf("same hour produced different keys: %q vs %q", a, b)
	}

	c := IdempotencyKey("nb-1", model.GenerateMetadata, base.Add(time.Hour))
	if a == c {
		t.Fatalf("next hour reused key %q", a)
	}

	d := IdempotencyKey("nb-1", model.GenerateQuiz, base)
	if a == d {
		t.Fatal("different kinds share a key")
	}

	if a != "nb-1:metadata:2026083110" {
		t.Fatalf("key = %q", a)
	}
}

func TestIdempotencyKeyNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	local := time.Date(2026, 8, 31, 13, 30, 0, 0, loc)
	utc := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)

	if IdempotencyKey("nb-1", model.GenerateSummary, local) != IdempotencyKey("nb-1", model.GenerateSummary, utc) {
		t.Fatal("zone offset changed the key")
	}
}

func newGenerationFixture(t *testing.T, workflowURL string) (*GenerationService, *gorm.DB, *model.Notebook) {
	t.Helper()
	db := testDB(t)
	bus := feed.NewMemoryBus()

	owner := &model.User{Name: "U", Email: "g@example.com", Password: "x", Role: model.Student}
	if err := db.Create(owner).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	nb := &model.Notebook{OwnerID: owner.ID, Week: 1, Title: "W1", Status: model.NotebookPending}
	if err := db.Create(nb).Error; err != nil {
		t.Fatalf("seed notebook: %v", err)
	}

	workflow, err := NewWorkflowService(config.WorkflowConfig{
		BaseURL: workflowURL,
		Token:   "test-token",
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("workflow service: %v", err)
	}

	svc := NewGenerationService(
		repository.NewGenerationJobRepository(db),
		repository.NewNotebookRepository(db, bus),
		workflow,
		time.Hour,
		zap.NewNop(),
	)
	return svc, db, nb
}

func TestTriggerInvokesWorkflowOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing bearer token")
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	svc, db, nb := newGenerationFixture(t, srv.URL)
	ctx := context.Background()

	job, err := svc.Trigger(ctx, nb.ID, model.GenerateMetadata)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if job.Status != model.GenerationCompleted {
		t.Fatalf("job status = %s", job.Status)
	}

	// Same hour, same notebook: the claim blocks a second invocation.
	_, err = svc.Trigger(ctx, nb.ID, model.GenerateMetadata)
	if !errors.Is(err, repository.ErrGenerationDone) {
		t.Fatalf("second trigger err = %v, want ErrGenerationDone", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("workflow called %d times, want 1", calls)
	}

	var got model.Notebook
	if err := db.First(&got, "id = ?", nb.ID).Error; err != nil {
		t.Fatalf("reload notebook: %v", err)
	}
	if got.Status != model.NotebookCompleted {
		t.Fatalf("notebook status = %s", got.Status)
	}
}

func TestTriggerFailureAllowsReclaim(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			http.Error(w, "engine overloaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc, db, nb := newGenerationFixture(t, srv.URL)
	ctx := context.Background()

	if _, err := svc.Trigger(ctx, nb.ID, model.GenerateQuiz); err == nil {
		t.Fatal("expected first trigger to fail")
	}

	// The failed claim is reclaimable within the same window.
	job, err := svc.Trigger(ctx, nb.ID, model.GenerateQuiz)
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if job.Status != model.GenerationCompleted {
		t.Fatalf("job status = %s", job.Status)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("workflow called %d times, want 2", calls)
	}

	var count int64
	db.Model(&model.GenerationJob{}).Where("notebook_id = ?", nb.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected a single claim row, got %d", count)
	}
}
