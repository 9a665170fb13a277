package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/sitecheck/internal/docstore"
	"github.com/vbonduro/sitecheck/internal/domain"
)

const workLogsCollection = "workLogs"

type WorkLogService struct {
	docs   docstore.Store
	now    func() time.Time
	logger *slog.Logger
}

func NewWorkLogService(docs docstore.Store, logger *slog.Logger) *WorkLogService {
	return &WorkLogService{docs: docs, now: time.Now, logger: logger}
}

// Add stores entry under a fresh id. A zero Date is set to now.
func (s *WorkLogService) Add(ctx context.Context, entry domain.WorkLog) (domain.WorkLog, error) {
	entry.ID = uuid.NewString()
	if entry.Date.IsZero() {
		entry.Date = s.now().UTC()
	}

	data, err := docstore.EncodeWorkLog(entry)
	if err != nil {
		return domain.WorkLog{}, err
	}
	path, err := docstore.Join(workLogsCollection, entry.ID)
	if err != nil {
		return domain.WorkLog{}, err
	}
	if err := s.docs.Set(ctx, path, data, false); err != nil {
		return domain.WorkLog{}, fmt.Errorf("failed to save work log: %w", err)
	}
	return entry, nil
}

// WorkLogFilter narrows List. Empty fields match everything; Search is a
// case-insensitive substring match on project name, technician and description.
type WorkLogFilter struct {
	ProjectID  string
	Technician string
	Type       string
	Search     string
	Limit      int
}

// List returns matching entries, newest first.
func (s *WorkLogService) List(ctx context.Context, f WorkLogFilter) ([]domain.WorkLog, error) {
	q := docstore.Query{OrderBy: "date", Desc: true}
	if f.ProjectID != "" {
		q.Where = append(q.Where, docstore.Equals("projectId", f.ProjectID))
	}
	if f.Technician != "" {
		q.Where = append(q.Where, docstore.Equals("technician", f.Technician))
	}
	if f.Type != "" && f.Type != "all" {
		q.Where = append(q.Where, docstore.Equals("type", f.Type))
	}
	if f.Search == "" {
		q.Limit = f.Limit
	}

	snaps, err := s.docs.Query(ctx, workLogsCollection, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list work logs: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	logs := make([]domain.WorkLog, 0, len(snaps))
	for _, snap := range snaps {
		entry, err := docstore.DecodeWorkLog(snap)
		if err != nil {
			s.logger.Warn("skipping unreadable work log", "id", snap.ID, "error", err)
			continue
		}
		if search != "" && !matchesSearch(entry, search) {
			continue
		}
		logs = append(logs, entry)
		if f.Limit > 0 && len(logs) == f.Limit {
			break
		}
	}
	return logs, nil
}

func matchesSearch(entry domain.WorkLog, term string) bool {
	for _, field := range []string{entry.ProjectName, entry.Technician, entry.Description} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
