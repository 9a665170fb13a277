package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/sitecheck/internal/docstore"
	"github.com/vbonduro/sitecheck/internal/domain"
)

type ProjectService struct {
	docs   docstore.Store
	trades tradeRegistry
	logger *slog.Logger
}

func NewProjectService(docs docstore.Store, trades tradeRegistry, logger *slog.Logger) *ProjectService {
	return &ProjectService{docs: docs, trades: trades, logger: logger}
}

func (s *ProjectService) Create(ctx context.Context, p domain.Project) (domain.Project, error) {
	p.ID = uuid.NewString()
	if err := s.save(ctx, &p); err != nil {
		return domain.Project{}, err
	}
	s.logger.Info("project created", "project_id", p.ID, "site_name", p.SiteName)
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (domain.Project, error) {
	return loadProject(ctx, s.docs, id)
}

// List returns projects ordered by site name. A non-empty trade keeps only
// projects whose project types include it.
func (s *ProjectService) List(ctx context.Context, trade string) ([]domain.Project, error) {
	q := docstore.Query{OrderBy: "siteName"}
	if trade != "" {
		q.Where = []docstore.Filter{docstore.ArrayContains("projectTypes", trade)}
	}

	snaps, err := s.docs.Query(ctx, projectsCollection, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]domain.Project, 0, len(snaps))
	for _, snap := range snaps {
		p, err := docstore.DecodeProject(snap)
		if err != nil {
			s.logger.Warn("skipping unreadable project", "project_id", snap.ID, "error", err)
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// Update replaces the metadata of an existing project.
func (s *ProjectService) Update(ctx context.Context, p domain.Project) (domain.Project, error) {
	if _, err := loadProject(ctx, s.docs, p.ID); err != nil {
		return domain.Project{}, err
	}
	if err := s.save(ctx, &p); err != nil {
		return domain.Project{}, err
	}
	s.logger.Info("project updated", "project_id", p.ID)
	return p, nil
}

// Delete removes the project document. Inspection records and status
// summaries under it are kept.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if _, err := loadProject(ctx, s.docs, id); err != nil {
		return err
	}
	path, err := projectPath(id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, path); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	s.logger.Info("project deleted", "project_id", id)
	return nil
}

// save normalises p in place before writing it.
func (s *ProjectService) save(ctx context.Context, p *domain.Project) error {
	if err := s.validate(p); err != nil {
		return err
	}
	path, err := projectPath(p.ID)
	if err != nil {
		return err
	}
	data, err := docstore.EncodeProject(*p)
	if err != nil {
		return err
	}
	if err := s.docs.Set(ctx, path, data, false); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

func (s *ProjectService) validate(p *domain.Project) error {
	p.SiteName = strings.TrimSpace(p.SiteName)
	if p.SiteName == "" {
		return fmt.Errorf("%w: site name is required", ErrInvalid)
	}
	if p.Buildings == nil {
		p.Buildings = []domain.Building{}
	}
	if p.ProjectTypes == nil {
		p.ProjectTypes = []string{}
	}

	seen := make(map[string]bool, len(p.Buildings))
	for i := range p.Buildings {
		b := &p.Buildings[i]
		b.Number = strings.TrimSpace(b.Number)
		if b.Number == "" || strings.Contains(b.Number, "/") {
			return fmt.Errorf("%w: invalid building number %q", ErrInvalid, b.Number)
		}
		if seen[b.Number] {
			return fmt.Errorf("%w: duplicate building number %q", ErrInvalid, b.Number)
		}
		seen[b.Number] = true
		if b.Apartments < 0 {
			return fmt.Errorf("%w: building %q has a negative apartment count", ErrInvalid, b.Number)
		}
	}

	for _, t := range p.ProjectTypes {
		if _, ok := s.trades.Get(t); !ok {
			return fmt.Errorf("%w: unknown project type %q", ErrInvalid, t)
		}
	}
	return nil
}
