package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/marketlens/backend-go/internal/attribution"
	"github.com/andresuchdata/marketlens/backend-go/internal/cache"
	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
	"github.com/andresuchdata/marketlens/backend-go/internal/repository"
)

type RefreshResult struct {
	WorkspaceSlug   string   `json:"workspace_slug"`
	FullRefresh     bool     `json:"full_refresh"`
	MonthsRefreshed []string `json:"months_refreshed"`
	Rows            int64    `json:"rows"`
}

type StyleMonthlyQuery struct {
	WorkspaceSlug string
	From          time.Time
	To            time.Time
	StyleKey      string
	Portal        portal.Portal
}

type StyleMonthlyResponse struct {
	WorkspaceSlug string                `json:"workspace_slug"`
	From          string                `json:"from"`
	To            string                `json:"to"`
	Rows          []domain.StyleMonthly `json:"rows"`
}

// RollupService rebuilds and reads the style_monthly rollup outside of an
// upload, for repairs and backfills.
type RollupService struct {
	tx         Transactor
	workspaces *WorkspaceService
	rollups    repository.RollupRepository
	cache      cache.KPICache
}

func NewRollupService(tx Transactor, workspaces *WorkspaceService, rollups repository.RollupRepository, kpiCache cache.KPICache) *RollupService {
	if kpiCache == nil {
		kpiCache = cache.NewNoopKPICache()
	}
	return &RollupService{tx: tx, workspaces: workspaces, rollups: rollups, cache: kpiCache}
}

// Refresh recomputes the given months, or every month when full is set. An
// empty month list without full is rejected.
func (s *RollupService) Refresh(ctx context.Context, workspaceSlug string, months []string, full bool) (*RefreshResult, error) {
	parsed := make([]time.Time, 0, len(months))
	for _, m := range months {
		t, err := attribution.ParseMonth(m)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, t)
	}
	parsed = attribution.DistinctMonths(parsed)
	if !full && len(parsed) == 0 {
		return nil, domain.NewValidationError("months", "provide months=YYYY-MM,... or full_refresh=true")
	}

	ws, err := s.workspaces.Resolve(ctx, workspaceSlug)
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{WorkspaceSlug: ws.Slug, FullRefresh: full, MonthsRefreshed: []string{}}
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		n, err := s.rollups.Refresh(ctx, tx, ws.ID, parsed, full)
		result.Rows = n
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh style_monthly: %w", err)
	}
	for _, m := range parsed {
		result.MonthsRefreshed = append(result.MonthsRefreshed, m.Format("2006-01"))
	}

	if err := s.cache.InvalidateWorkspace(ctx, ws.ID); err != nil {
		log.Warn().Err(err).Str("workspace", ws.Slug).Msg("rollup: cache invalidation failed")
	}
	return result, nil
}

func (s *RollupService) StyleMonthly(ctx context.Context, q StyleMonthlyQuery) (*StyleMonthlyResponse, error) {
	if q.To.Before(q.From) {
		return nil, domain.NewValidationError("window", "end is before start")
	}
	ws, err := s.workspaces.Resolve(ctx, q.WorkspaceSlug)
	if err != nil {
		return nil, err
	}

	from, to := attribution.MonthStart(q.From), attribution.MonthStart(q.To)
	rows, err := s.rollups.List(ctx, ws.ID, from, to, q.StyleKey, q.Portal)
	if err != nil {
		return nil, err
	}
	return &StyleMonthlyResponse{
		WorkspaceSlug: ws.Slug,
		From:          from.Format("2006-01"),
		To:            to.Format("2006-01"),
		Rows:          rows,
	}, nil
}
