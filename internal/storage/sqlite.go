package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sitescout/sitescout/internal/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
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
            started_at DATETIME NOT NULL,
            completed_at DATETIME
        )`,
		`CREATE TABLE IF NOT EXISTS pages (
            id TEXT PRIMARY KEY,
            run_id TEXT NOT NULL,
            url TEXT NOT NULL,
            rank INTEGER NOT NULL DEFAULT 0,
            score REAL NOT NULL DEFAULT 0,
            depth INTEGER NOT NULL DEFAULT 0,
            has_keyword INTEGER NOT NULL DEFAULT 0,
            priority REAL,
            change_freq TEXT,
            last_modified DATETIME,
            title TEXT,
            description TEXT,
            tags TEXT,
            text_content TEXT,
            html_path TEXT,
            status_code INTEGER,
            content_length INTEGER,
            fetch_error TEXT,
            metadata TEXT,
            fetched_at DATETIME,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(run_id, url),
            FOREIGN KEY(run_id) REFERENCES runs(id)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_pages_run_id ON pages(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.Run) error {
	query := `
        INSERT INTO runs (id, root_url, sitemap_url, site_type, platform, output_dir, status,
                          total_discovered, total_selected, total_fetched, total_failed,
                          started_at, completed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	_, err := s.db.ExecContext(ctx, query,
		run.ID.String(),
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

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *models.Run) error {
	query := `
        UPDATE runs SET
            sitemap_url = ?,
            site_type = ?,
            platform = ?,
            output_dir = ?,
            status = ?,
            total_discovered = ?,
            total_selected = ?,
            total_fetched = ?,
            total_failed = ?,
            completed_at = ?
        WHERE id = ?
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
		run.ID.String(),
	)

	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query := `
        SELECT id, root_url, sitemap_url, site_type, platform, output_dir, status,
               total_discovered, total_selected, total_fetched, total_failed,
               started_at, completed_at
        FROM runs
        WHERE id = ?
    `

	run := &models.Run{}
	var idStr string
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&idStr,
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

	run.ID, _ = uuid.Parse(idStr)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	query := `
        SELECT id, root_url, sitemap_url, site_type, platform, output_dir, status,
               total_discovered, total_selected, total_fetched, total_failed,
               started_at, completed_at
        FROM runs
        ORDER BY started_at DESC
        LIMIT ? OFFSET ?
    `

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		var run models.Run
		var idStr string
		var completedAt sql.NullTime

		err := rows.Scan(
			&idStr,
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

		run.ID, _ = uuid.Parse(idStr)
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

func (s *SQLiteStore) SavePage(ctx context.Context, page *models.Page) error {
	query := `
        INSERT INTO pages (id, run_id, url, rank, score, depth, has_keyword, priority,
                           change_freq, last_modified, title, description, tags, text_content,
                           html_path, status_code, content_length, fetch_error, metadata,
                           fetched_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id, url) DO UPDATE SET
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

	tagsJSON, err := json.Marshal(page.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query,
		page.ID.String(),
		page.RunID.String(),
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
		string(tagsJSON),
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

func (s *SQLiteStore) GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	query := pageColumns + `
        FROM pages
        WHERE id = ?
    `

	pages, err := s.queryPages(ctx, query, id.String())
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil
	}
	return pages[0], nil
}

func (s *SQLiteStore) ListPagesByRun(ctx context.Context, runID uuid.UUID, limit, offset int) ([]*models.Page, error) {
	query := pageColumns + `
        FROM pages
        WHERE run_id = ?
        ORDER BY rank
        LIMIT ? OFFSET ?
    `

	return s.queryPages(ctx, query, runID.String(), limit, offset)
}

func (s *SQLiteStore) SearchPages(ctx context.Context, searchTerm string, limit, offset int) ([]*models.Page, error) {
	query := pageColumns + `
        FROM pages
        WHERE title LIKE ? OR text_content LIKE ? OR url LIKE ?
        ORDER BY score DESC
        LIMIT ? OFFSET ?
    `

	pattern := "%" + searchTerm + "%"
	return s.queryPages(ctx, query, pattern, pattern, pattern, limit, offset)
}

const pageColumns = `
        SELECT id, run_id, url, rank, score, depth, has_keyword, priority,
               change_freq, last_modified, title, description, tags, text_content,
               html_path, status_code, content_length, fetch_error, metadata,
               fetched_at, created_at`

func (s *SQLiteStore) queryPages(ctx context.Context, query string, args ...interface{}) ([]*models.Page, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		var page models.Page
		var idStr, runIDStr, tagsJSON string
		var lastModified, fetchedAt sql.NullTime
		var metadata sql.NullString

		err := rows.Scan(
			&idStr,
			&runIDStr,
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
			&tagsJSON,
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

		page.ID, _ = uuid.Parse(idStr)
		page.RunID, _ = uuid.Parse(runIDStr)
		json.Unmarshal([]byte(tagsJSON), &page.Tags)
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func rawMessageArg(m *json.RawMessage) interface{} {
	if m == nil {
		return nil
	}
	return string(*m)
}
