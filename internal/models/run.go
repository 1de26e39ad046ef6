package models

import (
	"time"

	"github.com/google/uuid"
)

// NewRun creates a new run with generated UUID and start timestamp
func NewRun(rootURL string) *Run {
	return &Run{
		ID:        uuid.New(),
		RootURL:   rootURL,
		Status:    "running",
		StartedAt: time.Now(),
	}
}

// Complete marks the run finished and stamps the completion time
func (r *Run) Complete() {
	now := time.Now()
	r.Status = "completed"
	r.CompletedAt = &now
}

// Fail marks the run failed and stamps the completion time
func (r *Run) Fail() {
	now := time.Now()
	r.Status = "failed"
	r.CompletedAt = &now
}
