package models

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus tracks a batch through its lifecycle.
type BatchStatus string

const (
	BatchStatusCreated   BatchStatus = "created"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
)

// Batch is a named, timestamped unit of work. It is created once per
// processing run and only mutated to record completion time and final counts.
type Batch struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	TotalRecords int         `json:"total_records"`
	SuccessCount int         `json:"success_count"`
	FailureCount int         `json:"failure_count"`
	Status       BatchStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
}

// NewBatch creates a batch in the created state with a generated id.
func NewBatch(name string, totalRecords int) *Batch {
	return &Batch{
		ID:           uuid.New(),
		Name:         name,
		TotalRecords: totalRecords,
		Status:       BatchStatusCreated,
		CreatedAt:    time.Now(),
	}
}
