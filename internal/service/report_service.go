package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/sitecheck/internal/docstore"
	"github.com/vbonduro/sitecheck/internal/domain"
)

// maxConcurrentReads bounds the record reads of one report.
const maxConcurrentReads = 8

type ReportService struct {
	docs   docstore.Store
	trades tradeRegistry
	logger *slog.Logger
}

func NewReportService(docs docstore.Store, trades tradeRegistry, logger *slog.Logger) *ReportService {
	return &ReportService{docs: docs, trades: trades, logger: logger}
}

// ProjectStats counts total, fixed and pending issues of every project.
// Pending is total minus fixed.
func (s *ReportService) ProjectStats(ctx context.Context) ([]domain.ProjectStats, error) {
	snaps, err := s.docs.Query(ctx, projectsCollection, docstore.Query{OrderBy: "siteName"})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	stats := make([]domain.ProjectStats, 0, len(snaps))
	for _, snap := range snaps {
		project, err := docstore.DecodeProject(snap)
		if err != nil {
			s.logger.Warn("skipping unreadable project", "project_id", snap.ID, "error", err)
			continue
		}
		rows, err := s.collect(ctx, project)
		if err != nil {
			return nil, err
		}
		stats = append(stats, s.count(project, rows))
	}
	return stats, nil
}

// CollectIssues returns every issue of a project, ordered by building,
// apartment and trade.
func (s *ReportService) CollectIssues(ctx context.Context, projectID string) ([]domain.IssueRow, error) {
	project, err := loadProject(ctx, s.docs, projectID)
	if err != nil {
		return nil, err
	}
	return s.collect(ctx, project)
}

func (s *ReportService) count(project domain.Project, rows []domain.IssueRow) domain.ProjectStats {
	st := domain.ProjectStats{ProjectID: project.ID, SiteName: project.SiteName, TotalIssues: len(rows)}
	for _, r := range rows {
		if t, ok := s.trades.Get(r.Trade); ok && r.Issue.Status == t.ResolvedStatus {
			st.FixedIssues++
		}
	}
	st.PendingIssues = st.TotalIssues - st.FixedIssues
	return st
}

func (s *ReportService) collect(ctx context.Context, project domain.Project) ([]domain.IssueRow, error) {
	trades := project.ProjectTypes
	if len(trades) == 0 {
		trades = s.trades.Names()
	}

	var refs []domain.RecordRef
	for _, b := range project.Buildings {
		for _, apt := range b.ApartmentNumbers() {
			for _, t := range trades {
				refs = append(refs, domain.RecordRef{ProjectID: project.ID, Building: b.Number, Apartment: apt, Trade: t})
			}
		}
	}

	results := make([][]domain.Issue, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, ref := range refs {
		g.Go(func() error {
			issues, err := s.issuesOf(gctx, ref)
			if err != nil {
				return err
			}
			results[i] = issues
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []domain.IssueRow
	for i, issues := range results {
		for _, is := range issues {
			rows = append(rows, domain.IssueRow{RecordRef: refs[i], Issue: is})
		}
	}
	return rows, nil
}

func (s *ReportService) issuesOf(ctx context.Context, ref domain.RecordRef) ([]domain.Issue, error) {
	path, err := recordPath(ref)
	if err != nil {
		return nil, err
	}
	snap, err := s.docs.Get(ctx, path)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load inspection record %s: %w", path, err)
	}
	rec, err := docstore.DecodeRecord(snap.Data)
	if err != nil {
		s.logger.Warn("skipping unreadable inspection record", "path", path, "error", err)
		return nil, nil
	}
	return rec.Issues, nil
}
