package service

import (
	"context"
	"fmt"
	"time"

	"lingua_lms_backend/internal/model"
	"lingua_lms_backend/internal/repository"
	"lingua_lms_backend/internal/util"

	"go.uber.org/zap"
)

// GenerationService guards the expensive workflow generations behind an
// atomic claim: within one idempotency window at most one caller invokes
// the engine, no matter how many trigger the same notebook concurrently.
type GenerationService struct {
	Jobs      *repository.GenerationJobRepository
	Notebooks *repository.NotebookRepository
	Workflow  *WorkflowService
	ClaimTTL  time.Duration
	Log       *zap.Logger

	now func() time.Time
}

func NewGenerationService(jobs *repository.GenerationJobRepository, notebooks *repository.NotebookRepository, workflow *WorkflowService, claimTTL time.Duration, log *zap.Logger) *GenerationService {
	return &GenerationService{
		Jobs:      jobs,
		Notebooks: notebooks,
		Workflow:  workflow,
		ClaimTTL:  claimTTL,
		Log:       log,
		now:       time.Now,
	}
}

// IdempotencyKey buckets triggers by UTC hour: re-triggering the same
// notebook and kind within the hour maps to the same claim row.
func IdempotencyKey(notebookID string, kind model.GenerationKind, at time.Time) string {
	return fmt.Sprintf("%s:%s:%s", notebookID, kind, at.UTC().Format("2006010215"))
}

// Trigger claims the current window and, on winning the claim, invokes the
// workflow exactly once. Callers losing the claim get the repository's
// typed errors and must not retry blindly.
func (s *GenerationService) Trigger(ctx context.Context, notebookID string, kind model.GenerationKind) (*model.GenerationJob, error) {
	if s.Workflow == nil {
		return nil, util.ErrWorkflowNotReady
	}
	key := IdempotencyKey(notebookID, kind, s.now())

	job, err := s.Jobs.Claim(ctx, notebookID, kind, key, s.ClaimTTL)
	if err != nil {
		return nil, err
	}

	if kind == model.GenerateMetadata {
		if err := s.Notebooks.UpdateStatus(ctx, notebookID, model.NotebookGenerating); err != nil {
			s.Log.Warn("mark notebook generating", zap.Error(err), zap.String("notebookId", notebookID))
		}
	}

	if err := s.invoke(ctx, notebookID, kind); err != nil {
		if failErr := s.Jobs.Fail(ctx, key, err.Error()); failErr != nil {
			s.Log.Error("record generation failure", zap.Error(failErr), zap.String("key", key))
		}
		if kind == model.GenerateMetadata {
			_ = s.Notebooks.UpdateStatus(ctx, notebookID, model.NotebookFailed)
		}
		return nil, err
	}

	if err := s.Jobs.Complete(ctx, key); err != nil {
		s.Log.Error("record generation completion", zap.Error(err), zap.String("key", key))
	}
	if kind == model.GenerateMetadata {
		_ = s.Notebooks.UpdateStatus(ctx, notebookID, model.NotebookCompleted)
	}

	job.Status = model.GenerationCompleted
	return job, nil
}

func (s *GenerationService) invoke(ctx context.Context, notebookID string, kind model.GenerationKind) error {
	switch kind {
	case model.GenerateMetadata:
		return s.Workflow.GenerateMetadata(ctx, notebookID)
	case model.GenerateQuiz:
		return s.Workflow.GenerateQuiz(ctx, notebookID)
	case model.GenerateSummary:
		return s.Workflow.GenerateSummary(ctx, notebookID)
	default:
		return fmt.Errorf("unknown generation kind %q", kind)
	}
}

// Jobs claimed for a notebook, newest first.
func (s *GenerationService) ListJobs(ctx context.Context, notebookID string) ([]model.GenerationJob, error) {
	return s.Jobs.ListByNotebook(ctx, notebookID)
}
