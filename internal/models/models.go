package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Run struct {
	ID              uuid.UUID  `json:"id"`
	RootURL         string     `json:"root_url"`
	SitemapURL      string     `json:"sitemap_url"`
	SiteType        string     `json:"site_type,omitempty"`
	Platform        string     `json:"platform,omitempty"`
	OutputDir       string     `json:"output_dir,omitempty"`
	Status          string     `json:"status"`
	TotalDiscovered int        `json:"total_discovered"`
	TotalSelected   int        `json:"total_selected"`
	TotalFetched    int        `json:"total_fetched"`
	TotalFailed     int        `json:"total_failed"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

type Page struct {
	ID            uuid.UUID        `json:"id"`
	RunID         uuid.UUID        `json:"run_id"`
	URL           string           `json:"url"`
	Rank          int              `json:"rank"`
	Score         float64          `json:"score"`
	Depth         int              `json:"depth"`
	HasKeyword    bool             `json:"has_keyword"`
	Priority      float64          `json:"priority"`
	ChangeFreq    string           `json:"change_frequency"`
	LastModified  *time.Time       `json:"last_modified,omitempty"`
	Title         string           `json:"title"`
	Description   string           `json:"description,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
	TextContent   string           `json:"text_content,omitempty"`
	HTMLPath      string           `json:"html_path,omitempty"`
	StatusCode    int              `json:"status_code"`
	ContentLength int              `json:"content_length"`
	FetchError    string           `json:"fetch_error,omitempty"`
	Metadata      *json.RawMessage `json:"metadata,omitempty"`
	FetchedAt     time.Time        `json:"fetched_at"`
	CreatedAt     time.Time        `json:"created_at"`
}
