package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/marketlens/backend-go/internal/cache"
	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/ingest"
	"github.com/andresuchdata/marketlens/backend-go/internal/repository"
	"github.com/andresuchdata/marketlens/backend-go/internal/storage"
)

// Transactor runs fn in a single database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type IngestRequest struct {
	Kind          ingest.Kind
	WorkspaceSlug string
	Filename      string
	Data          []byte
	// Replace deletes the workspace's existing rows of the kind's tables
	// (scoped to the kind's portal where the table holds both) before insert.
	Replace bool
}

type IngestResult struct {
	WorkspaceSlug   string            `json:"workspace_slug"`
	Kind            ingest.Kind       `json:"kind"`
	Inserted        int64             `json:"inserted"`
	Deleted         int64             `json:"deleted"`
	RowsInFile      int               `json:"rows_in_file"`
	Skipped         int               `json:"skipped"`
	Detected        map[string]string `json:"detected"`
	Replaced        bool              `json:"replaced"`
	FullRefresh     bool              `json:"full_refresh"`
	MonthsRefreshed []string          `json:"months_refreshed"`
	RollupRows      int64             `json:"rollup_rows"`
	ArchivedKey     string            `json:"archived_key,omitempty"`
	IngestedAt      time.Time         `json:"ingested_at"`
}

type IngestService struct {
	tx            Transactor
	workspaces    *WorkspaceService
	facts         repository.FactRepository
	rollups       repository.RollupRepository
	parser        *ingest.Parser
	cache         cache.KPICache
	store         storage.ObjectStorage
	archivePrefix string
}

func NewIngestService(
	tx Transactor,
	workspaces *WorkspaceService,
	facts repository.FactRepository,
	rollups repository.RollupRepository,
	parser *ingest.Parser,
	kpiCache cache.KPICache,
	store storage.ObjectStorage,
	archivePrefix string,
) *IngestService {
	if kpiCache == nil {
		kpiCache = cache.NewNoopKPICache()
	}
	if store == nil {
		store = storage.NewNoopStorage()
	}
	return &IngestService{
		tx:            tx,
		workspaces:    workspaces,
		facts:         facts,
		rollups:       rollups,
		parser:        parser,
		cache:         kpiCache,
		store:         store,
		archivePrefix: archivePrefix,
	}
}

// Ingest parses an uploaded report and commits it. Parsing and validation
// happen before the transaction opens, so a rejected file writes nothing.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	table, err := ingest.Read(bytes.NewReader(req.Data), req.Filename)
	if err != nil {
		return nil, err
	}

	ws, err := s.workspaces.Resolve(ctx, req.WorkspaceSlug)
	if err != nil {
		return nil, err
	}

	batch, err := s.parser.Parse(req.Kind, table, ingest.Options{
		WorkspaceSlug: ws.Slug,
		SourceFile:    req.Filename,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.commitFacts(ctx, ws, batch, req.Replace)
	if err != nil {
		return nil, err
	}

	if err := s.cache.InvalidateWorkspace(ctx, ws.ID); err != nil {
		log.Warn().Err(err).Str("workspace", ws.Slug).Msg("ingest: cache invalidation failed")
	}
	result.ArchivedKey = s.archive(ctx, ws.Slug, req, result.IngestedAt)

	log.Info().
		Str("workspace", ws.Slug).
		Str("kind", string(req.Kind)).
		Int64("inserted", result.Inserted).
		Int64("deleted", result.Deleted).
		Int("skipped", result.Skipped).
		Bool("replace", req.Replace).
		Msg("upload ingested")
	return result, nil
}

// commitFacts is the only writer of fact rows and the only caller of the
// rollup refresh: delete, insert and refresh share one transaction.
func (s *IngestService) commitFacts(ctx context.Context, ws *domain.Workspace, b *ingest.Batch, replace bool) (*IngestResult, error) {
	now := time.Now().UTC()
	months := b.Months()
	result := &IngestResult{
		WorkspaceSlug:   ws.Slug,
		Kind:            b.Kind,
		RowsInFile:      b.RowsInFile,
		Skipped:         b.Skipped,
		Detected:        b.Detected,
		Replaced:        replace,
		MonthsRefreshed: []string{},
		IngestedAt:      now,
	}

	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if replace {
			for _, table := range replaceTables(b.Kind) {
				n, err := s.facts.DeletePortal(ctx, tx, table, ws.ID, b.Kind.Portal())
				if err != nil {
					return err
				}
				result.Deleted += n
			}
		}

		inserted, err := s.insertBatch(ctx, tx, ws.ID, b, now)
		if err != nil {
			return err
		}
		result.Inserted = inserted

		if !b.Kind.TouchesOrders() {
			return nil
		}
		result.FullRefresh = replace
		rows, err := s.rollups.Refresh(ctx, tx, ws.ID, months, replace)
		if err != nil {
			return err
		}
		result.RollupRows = rows
		for _, m := range months {
			result.MonthsRefreshed = append(result.MonthsRefreshed, m.Format("2006-01"))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit %s upload: %w", b.Kind, err)
	}
	return result, nil
}

func (s *IngestService) insertBatch(ctx context.Context, tx sqlx.ExtContext, workspaceID uuid.UUID, b *ingest.Batch, at time.Time) (int64, error) {
	var total int64
	steps := []func() (int64, error){
		func() (int64, error) { return s.facts.InsertSales(ctx, tx, workspaceID, b.Sales) },
		func() (int64, error) { return s.facts.InsertReturns(ctx, tx, workspaceID, b.Returns) },
		func() (int64, error) { return s.facts.UpsertCatalog(ctx, tx, workspaceID, b.Catalog) },
		func() (int64, error) { return s.facts.InsertStock(ctx, tx, workspaceID, b.Stock, at) },
		func() (int64, error) { return s.facts.InsertWeeklyPerf(ctx, tx, workspaceID, b.WeeklyPerf, at) },
		func() (int64, error) { return s.facts.InsertTraffic(ctx, tx, workspaceID, b.Traffic, at) },
	}
	for _, step := range steps {
		n, err := step()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// replaceTables lists the tables a replace upload of kind clears.
func replaceTables(kind ingest.Kind) []repository.FactTable {
	switch kind {
	case ingest.KindSales:
		return []repository.FactTable{repository.SalesTable}
	case ingest.KindReturns:
		return []repository.FactTable{repository.ReturnsTable}
	case ingest.KindCatalog:
		return []repository.FactTable{repository.CatalogTable}
	case ingest.KindStock:
		return []repository.FactTable{repository.StockTable}
	case ingest.KindWeeklyPerf:
		return []repository.FactTable{repository.WeeklyPerfTable}
	case ingest.KindFlipkartEvents:
		return []repository.FactTable{repository.SalesTable, repository.ReturnsTable}
	case ingest.KindFlipkartListing:
		return []repository.FactTable{repository.CatalogTable, repository.StockTable}
	case ingest.KindFlipkartTraffic:
		return []repository.FactTable{repository.TrafficTable}
	default:
		return nil
	}
}

// archive stores the raw upload. Failures are logged, never returned: the
// facts are already committed.
func (s *IngestService) archive(ctx context.Context, workspaceSlug string, req IngestRequest, at time.Time) string {
	if !s.store.Enabled() {
		return ""
	}
	key := storage.ArchiveKey(s.archivePrefix, workspaceSlug, string(req.Kind), req.Filename, at)
	contentType := mimetype.Detect(req.Data).String()
	if err := s.store.UploadObject(ctx, key, req.Data, contentType); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("ingest: archive upload failed")
		return ""
	}
	return key
}
