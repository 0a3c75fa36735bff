package model

import (
	"time"
)

type GenerationKind string

const (
	GenerateMetadata GenerationKind = "metadata"
	GenerateQuiz     GenerationKind = "quiz"
	GenerateSummary  GenerationKind = "summary"
)

type GenerationStatus string

const (
	GenerationClaimed   GenerationStatus = "claimed"
	GenerationCompleted GenerationStatus = "completed"
	GenerationFailed    GenerationStatus = "failed"
)

// GenerationJob is the claim row behind the at-most-once workflow trigger.
// The unique idempotency key (notebook id + kind + hour bucket) makes the
// claim atomic; an expired claim may be reclaimed after its TTL.
type GenerationJob struct {
	ID             uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	NotebookID     string           `gorm:"index;type:varchar(36);not null" json:"notebookId"`
	Kind           GenerationKind   `gorm:"size:20;not null" json:"kind"`
	IdempotencyKey string           `gorm:"size:100;uniqueIndex;not null" json:"idempotencyKey"`
	Status         GenerationStatus `gorm:"size:20;default:'claimed'" json:"status"`
	ClaimedAt      time.Time        `json:"claimedAt"`
	ExpiresAt      time.Time        `gorm:"index" json:"expiresAt"`
	Error          string           `gorm:"size:500" json:"error,omitempty"`
}

func (GenerationJob) TableName() string {
	return "generation_jobs"
}
