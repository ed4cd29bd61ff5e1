package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
)

const uniqueViolation = "23505"

type workspaceRepository struct {
	db *DB
}

func NewWorkspaceRepository(db *DB) *workspaceRepository {
	return &workspaceRepository{db: db}
}

func (r *workspaceRepository) Resolve(ctx context.Context, slug string) (*domain.Workspace, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))

	// DO UPDATE makes RETURNING yield the existing row as well
	query := `
		INSERT INTO workspaces (slug, name)
		VALUES ($1, $1)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id, slug, name, created_at
	`
	var ws domain.Workspace
	if err := r.db.GetContext(ctx, &ws, query, slug); err != nil {
		return nil, fmt.Errorf("failed to resolve workspace %q: %w", slug, err)
	}
	return &ws, nil
}

func (r *workspaceRepository) GetBySlug(ctx context.Context, slug string) (*domain.Workspace, error) {
	var ws domain.Workspace
	err := r.db.GetContext(ctx, &ws,
		`SELECT id, slug, name, created_at FROM workspaces WHERE slug = $1`,
		strings.ToLower(strings.TrimSpace(slug)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workspace %q: %w", slug, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace %q: %w", slug, err)
	}
	return &ws, nil
}

func (r *workspaceRepository) List(ctx context.Context) ([]domain.Workspace, error) {
	workspaces := []domain.Workspace{}
	if err := r.db.SelectContext(ctx, &workspaces,
		`SELECT id, slug, name, created_at FROM workspaces ORDER BY slug`); err != nil {
		return nil, fmt.Errorf("error listing workspaces: %w", err)
	}
	return workspaces, nil
}

func (r *workspaceRepository) Create(ctx context.Context, slug, name string) (*domain.Workspace, error) {
	var ws domain.Workspace
	err := r.db.GetContext(ctx, &ws, `
		INSERT INTO workspaces (slug, name)
		VALUES ($1, $2)
		RETURNING id, slug, name, created_at
	`, slug, name)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, &domain.ConflictError{
			Message: fmt.Sprintf("workspace %q already exists", slug),
			Details: map[string]interface{}{"slug": slug},
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace %q: %w", slug, err)
	}
	return &ws, nil
}

func (r *workspaceRepository) Counts(ctx context.Context, id uuid.UUID) (domain.WorkspaceCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM sales_raw WHERE workspace_id = $1) AS sales_raw,
			(SELECT COUNT(*) FROM returns_raw WHERE workspace_id = $1) AS returns_raw,
			(SELECT COUNT(*) FROM catalog_raw WHERE workspace_id = $1) AS catalog_raw,
			(SELECT COUNT(*) FROM stock_raw WHERE workspace_id = $1) AS stock_raw,
			(SELECT COUNT(*) FROM myntra_weekly_perf_raw WHERE workspace_id = $1) AS myntra_weekly_perf_raw,
			(SELECT COUNT(*) FROM flipkart_traffic_raw WHERE workspace_id = $1) AS flipkart_traffic_raw,
			(SELECT COUNT(*) FROM style_monthly WHERE workspace_id = $1) AS style_monthly
	`
	var counts domain.WorkspaceCounts
	if err := r.db.GetContext(ctx, &counts, query, id); err != nil {
		return counts, fmt.Errorf("error counting workspace rows: %w", err)
	}
	return counts, nil
}

// Delete removes the workspace; fact rows go with it through ON DELETE CASCADE.
func (r *workspaceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
