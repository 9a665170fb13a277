package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/vbonduro/sitecheck/internal/export"
	"github.com/vbonduro/sitecheck/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reports.ProjectStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExportIssues(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	rows, err := s.reports.CollectIssues(r.Context(), projectID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := export.IssuesWorkbook(rows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "issues-"+projectID+".xlsx"))
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write export failed", "project_id", projectID, "error", err)
	}
}

// handleListWorkLogs supports ?projectId=, ?technician=, ?type=, ?q= and ?limit=.
func (s *Server) handleListWorkLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.WorkLogFilter{
		ProjectID:  q.Get("projectId"),
		Technician: q.Get("technician"),
		Type:       q.Get("type"),
		Search:     q.Get("q"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, r, fmt.Errorf("%w: invalid limit %q", service.ErrInvalid, raw))
			return
		}
		filter.Limit = limit
	}

	logs, err := s.workLogs.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, logs)
}
