package models

import (
	"time"

	"github.com/google/uuid"
)

// NewPage creates a page row for a run with generated UUID and timestamp
func NewPage(runID uuid.UUID, url string) *Page {
	return &Page{
		ID:        uuid.New(),
		RunID:     runID,
		URL:       url,
		CreatedAt: time.Now(),
	}
}

// Failed returns true if the page fetch did not produce content
func (p *Page) Failed() bool {
	return p.FetchError != ""
}
