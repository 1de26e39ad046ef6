package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sitescout/sitescout/config"
	"github.com/sitescout/sitescout/internal/models"
)

type Store interface {
	Initialize() error
	Close() error

	// Run operations
	CreateRun(ctx context.Context, run *models.Run) error
	UpdateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, error)

	// Page operations
	SavePage(ctx context.Context, page *models.Page) error
	GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error)
	ListPagesByRun(ctx context.Context, runID uuid.UUID, limit, offset int) ([]*models.Page, error)
	SearchPages(ctx context.Context, query string, limit, offset int) ([]*models.Page, error)
}

// NewStore opens the configured backend.
func NewStore(cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "", "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "postgres":
		return NewPostgresStore(cfg.ConnectionString)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
