package models

import (
	"time"
)

// GenerationStatus represents the status of an asynchronous book generation
type GenerationStatus string

const (
	GenerationStatusPending   GenerationStatus = "pending"
	GenerationStatusRunning   GenerationStatus = "running"
	GenerationStatusCompleted GenerationStatus = "completed"
	GenerationStatusFailed    GenerationStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s GenerationStatus) Terminal() bool {
	return s == GenerationStatusCompleted || s == GenerationStatusFailed
}

// BookGeneration is the persisted record of one asynchronous book generation
type BookGeneration struct {
	ID          string           `json:"id" db:"id"`
	Status      GenerationStatus `json:"status" db:"status"`
	Progress    BookProgress     `json:"progress" db:"progress"`
	Book        *Book            `json:"book,omitempty" db:"book"`
	Error       *PipelineError   `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
}

// PipelineError is the error slot stored in pipeline state and generation records
type PipelineError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewPipelineError captures err's kind and message verbatim.
func NewPipelineError(err error) *PipelineError {
	if err == nil {
		return nil
	}
	return &PipelineError{Kind: KindOf(err), Message: err.Error()}
}

// ProgressEvent is streamed to websocket subscribers of a book generation
type ProgressEvent struct {
	EventType    string           `json:"event_type"`
	GenerationID string           `json:"generation_id"`
	Status       GenerationStatus `json:"status"`
	Progress     BookProgress     `json:"progress"`
	Error        *PipelineError   `json:"error,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Event types
const (
	EventTypeGenerationSnapshot  = "generation.snapshot"
	EventTypeGenerationStarted   = "generation.started"
	EventTypeChapterCompleted    = "generation.chapter_completed"
	EventTypeGenerationCompleted = "generation.completed"
	EventTypeGenerationFailed    = "generation.failed"
)
