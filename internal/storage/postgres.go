package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sitescout/sitescout/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id UUID PRIMARY KEY,
            root_url TEXT NOT NULL,
            sitemap_url TEXT,
            site_type TEXT,
            platform TEXT,
            output_dir TEXT,
            status TEXT NOT NULL,
            total_discovered INTEGER NOT NULL DEFAULT 0,
            total_selected INTEGER NOT NULL DEFAULT 0,
            total_fetched INTEGER NOT NULL DEFAULT 0,
            total_failed INTEGER NOT NULL DEFAULT 0,
            started_at TIMESTAMP WITH TIME ZONE NOT NULL,
            completed_at TIMESTAMP WITH TIME ZONE
        )`,
		`CREATE TABLE IF NOT EXISTS pages (
            id UUID PRIMARY KEY,
            run_id UUID NOT NULL REFERENCES runs(id),
            url TEXT NOT NULL,
            rank INTEGER NOT NULL DEFAULT 0,
            score DOUBLE PRECISION NOT NULL DEFAULT 0,
            depth INTEGER NOT NULL DEFAULT 0,
            has_keyword BOOLEAN NOT NULL DEFAULT FALSE,
            priority DOUBLE PRECISION,
            change_freq TEXT,
            last_modified TIMESTAMP WITH TIME ZONE,
            title TEXT,
            description TEXT,
            tags TEXT[],
            text_content TEXT,
            html_path TEXT,
            status_code INTEGER,
            content_length INTEGER,
            fetch_error TEXT,
            metadata JSONB,
            fetched_at TIMESTAMP WITH TIME ZONE,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(run_id, url)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_pages_run_id ON pages(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_tags ON pages USING GIN(tags)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_fts ON pages
            USING GIN (to_tsvector('english', coalesce(title, '') || ' ' || coalesce(text_content, '')))`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.Run) error {
	query := `
        INSERT INTO runs (id, root_url, sitemap_url, site_type, platform, output_dir, status,
                          total_discovered, total_selected, total_fetched, total_failed,
                          started_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.RootURL,
		run.SitemapURL,
		run.SiteType,
		run.Platform,
		run.OutputDir,
		run.Status,
		run.TotalDiscovered,
		run.TotalSelected,
		run.TotalFetched,
		run.TotalFailed,
		run.StartedAt,
		run.CompletedAt,
	)

	return err
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *models.Run) error {
	query := `
        UPDATE runs SET
            sitemap_url = $1,
            site_type = $2,
            platform = $3,
            output_dir = $4,
            status = $5,
            total_discovered = $6,
            total_selected = $7,
            total_fetched = $8,
            total_failed = $9,
            completed_at = $10
        WHERE id = $11
    `

	_, err := s.db.ExecContext(ctx, query,
		run.SitemapURL,
		run.SiteType,
		run.Platform,
		run.OutputDir,
		run.Status,
		run.TotalDiscovered,
		run.TotalSelected,
		run.TotalFetched,
		run.TotalFailed,
		run.CompletedAt,
		run.ID,
	)

	return err
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query := `
        SELECT id, root_url, sitemap_url, site_type, platform, output_dir, status,
               total_discovered, total_selected, total_fetched, total_failed,
               started_at, completed_at
        FROM runs
        WHERE id = $1
    `

	run := &models.Run{}
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.RootURL,
		&run.SitemapURL,
		&run.SiteType,
		&run.Platform,
		&run.OutputDir,
		&run.Status,
		&run.TotalDiscovered,
		&run.TotalSelected,
		&run.TotalFetched,
		&run.TotalFailed,
		&run.StartedAt,
		&completedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	query := `
        SELECT id, root_url, sitemap_url, site_type, platform, output_dir, status,
               total_discovered, total_selected, total_fetched, total_failed,
               started_at, completed_at
        FROM runs
        ORDER BY started_at DESC
        LIMIT $1 OFFSET $2
    `

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		var run models.Run
		var completedAt sql.NullTime

		err := rows.Scan(
			&run.ID,
			&run.RootURL,
			&run.SitemapURL,
			&run.SiteType,
			&run.Platform,
			&run.OutputDir,
			&run.Status,
			&run.TotalDiscovered,
			&run.TotalSelected,
			&run.TotalFetched,
			&run.TotalFailed,
			&run.StartedAt,
			&completedAt,
		)

		if err != nil {
			return nil, err
		}

		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

func (s *PostgresStore) SavePage(ctx context.Context, page *models.Page) error {
	query := `
        INSERT INTO pages (id, run_id, url, rank, score, depth, has_keyword, priority,
                           change_freq, last_modified, title, description, tags, text_content,
                           html_path, status_code, content_length, fetch_error, metadata,
                           fetched_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
        ON CONFLICT (run_id, url) DO UPDATE SET
            rank = excluded.rank,
            score = excluded.score,
            depth = excluded.depth,
            has_keyword = excluded.has_keyword,
            priority = excluded.priority,
            change_freq = excluded.change_freq,
            last_modified = excluded.last_modified,
            title = excluded.title,
            description = excluded.description,
            tags = excluded.tags,
            text_content = excluded.text_content,
            html_path = excluded.html_path,
            status_code = excluded.status_code,
            content_length = excluded.content_length,
            fetch_error = excluded.fetch_error,
            metadata = excluded.metadata,
            fetched_at = excluded.fetched_at
    `

	_, err := s.db.ExecContext(ctx, query,
		page.ID,
		page.RunID,
		page.URL,
		page.Rank,
		page.Score,
		page.Depth,
		page.HasKeyword,
		page.Priority,
		page.ChangeFreq,
		page.LastModified,
		page.Title,
		page.Description,
		pq.Array(page.Tags),
		page.TextContent,
		page.HTMLPath,
		page.StatusCode,
		page.ContentLength,
		page.FetchError,
		rawMessageArg(page.Metadata),
		page.FetchedAt,
		page.CreatedAt,
	)

	return err
}

func (s *PostgresStore) GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	query := pgPageColumns + `
        FROM pages
        WHERE id = $1
    `

	pages, err := s.queryPages(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil
	}
	return pages[0], nil
}

func (s *PostgresStore) ListPagesByRun(ctx context.Context, runID uuid.UUID, limit, offset int) ([]*models.Page, error) {
	query := pgPageColumns + `
        FROM pages
        WHERE run_id = $1
        ORDER BY rank
        LIMIT $2 OFFSET $3
    `

	return s.queryPages(ctx, query, runID, limit, offset)
}

func (s *PostgresStore) SearchPages(ctx context.Context, searchTerm string, limit, offset int) ([]*models.Page, error) {
	query := pgPageColumns + `
        FROM pages
        WHERE to_tsvector('english', coalesce(title, '') || ' ' || coalesce(text_content, ''))
              @@ plainto_tsquery('english', $1)
           OR url ILIKE $2
        ORDER BY score DESC
        LIMIT $3 OFFSET $4
    `

	return s.queryPages(ctx, query, searchTerm, "%"+searchTerm+"%", limit, offset)
}

const pgPageColumns = `
        SELECT id, run_id, url, rank, score, depth, has_keyword, priority,
               change_freq, last_modified, title, description, tags, text_content,
               html_path, status_code, content_length, fetch_error, metadata,
               fetched_at, created_at`

func (s *PostgresStore) queryPages(ctx context.Context, query string, args ...interface{}) ([]*models.Page, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		var page models.Page
		var lastModified, fetchedAt sql.NullTime
		var metadata sql.NullString

		err := rows.Scan(
			&page.ID,
			&page.RunID,
			&page.URL,
			&page.Rank,
			&page.Score,
			&page.Depth,
			&page.HasKeyword,
			&page.Priority,
			&page.ChangeFreq,
			&lastModified,
			&page.Title,
			&page.Description,
			pq.Array(&page.Tags),
			&page.TextContent,
			&page.HTMLPath,
			&page.StatusCode,
			&page.ContentLength,
			&page.FetchError,
			&metadata,
			&fetchedAt,
			&page.CreatedAt,
		)

		if err != nil {
			return nil, err
		}

		if lastModified.Valid {
			page.LastModified = &lastModified.Time
		}
		if fetchedAt.Valid {
			page.FetchedAt = fetchedAt.Time
		}
		if metadata.Valid && metadata.String != "" {
			raw := json.RawMessage(metadata.String)
			page.Metadata = &raw
		}

		pages = append(pages, &page)
	}

	return pages, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
