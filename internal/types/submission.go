package types

import (
	"time"

	"github.com/google/uuid"
)

// Submission status values.
const (
	SubmissionQueued    = "queued"
	SubmissionRunning   = "running"
	SubmissionSucceeded = "succeeded"
	SubmissionFailed    = "failed"
)

// Submission is one model's generated answer to a task. Code stays
// populated even when the submission later fails at the render step.
type Submission struct {
	ID        uuid.UUID      `json:"id"`
	TaskID    uuid.UUID      `json:"task_id"`
	ModelID   uuid.UUID      `json:"model_id"`
	Prompt    string         `json:"prompt"`
	Code      *string        `json:"code"`
	Status    string         `json:"status"`
	Error     *string        `json:"error,omitempty"`
	Metrics   map[string]any `json:"metrics,omitempty"`
	CreatedAt time.Time      `json:"created_at"`

	// Model is hydrated on read paths that join the models table.
	Model *ModelRef `json:"model,omitempty"`
}

// ModelRef is the display identity of a submission's model.
type ModelRef struct {
	Label    string `json:"label"`
	Provider string `json:"provider"`
}

// ArtifactKind enumerates artifact media types.
const (
	ArtifactImage = "image"
	ArtifactVideo = "video"
	ArtifactLog   = "log"
)

// Artifact is a rendered output of a submission. Index 0 is treated as
// the primary artifact when a submission has several.
type Artifact struct {
	ID           uuid.UUID `json:"id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	Kind         string    `json:"kind"`
	StoragePath  string    `json:"storage_path"`
	Width        *int      `json:"width"`
	Height       *int      `json:"height"`
	DurationMS   *int      `json:"duration_ms"`
	HarnessHTML  *string   `json:"harness_html,omitempty"`
}
