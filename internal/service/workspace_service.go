package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/repository"
)

// DefaultWorkspace is used when a request names no workspace.
const DefaultWorkspace = "default"

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// NormalizeSlug lowercases and trims slug, falling back to the default
// workspace.
func NormalizeSlug(slug string) string {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return DefaultWorkspace
	}
	return slug
}

// ValidSlug reports whether slug may name a workspace.
func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

type WorkspaceService struct {
	repo repository.WorkspaceRepository
}

func NewWorkspaceService(repo repository.WorkspaceRepository) *WorkspaceService {
	return &WorkspaceService{repo: repo}
}

// Resolve returns the workspace for slug, creating it on first reference.
func (s *WorkspaceService) Resolve(ctx context.Context, slug string) (*domain.Workspace, error) {
	slug = NormalizeSlug(slug)
	if !ValidSlug(slug) {
		return nil, domain.NewValidationError("workspace_slug", "invalid slug %q", slug)
	}
	return s.repo.Resolve(ctx, slug)
}

func (s *WorkspaceService) List(ctx context.Context) ([]domain.Workspace, error) {
	return s.repo.List(ctx)
}

func (s *WorkspaceService) Create(ctx context.Context, slug, name string) (*domain.Workspace, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !ValidSlug(slug) {
		return nil, domain.NewValidationError("slug", "must match %s", slugPattern.String())
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = slug
	}
	return s.repo.Create(ctx, slug, name)
}

// Delete removes a workspace and, through cascading keys, all of its facts.
// A workspace that still owns rows is only deleted when force is set;
// otherwise a ConflictError carrying the row counts is returned.
func (s *WorkspaceService) Delete(ctx context.Context, slug string, force bool) (domain.WorkspaceCounts, error) {
	ws, err := s.repo.GetBySlug(ctx, NormalizeSlug(slug))
	if err != nil {
		return domain.WorkspaceCounts{}, err
	}

	counts, err := s.repo.Counts(ctx, ws.ID)
	if err != nil {
		return domain.WorkspaceCounts{}, err
	}
	if counts.Total() > 0 && !force {
		return counts, &domain.ConflictError{
			Message: "workspace has data; pass force=true to delete it",
			Details: map[string]interface{}{"workspace_slug": ws.Slug, "counts": counts},
		}
	}

	if err := s.repo.Delete(ctx, ws.ID); err != nil {
		return counts, err
	}
	log.Info().Str("workspace", ws.Slug).Int64("rows", counts.Total()).Msg("workspace deleted")
	return counts, nil
}
