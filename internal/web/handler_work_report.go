package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/vbonduro/sitecheck/internal/auth"
	"github.com/vbonduro/sitecheck/internal/domain"
	"github.com/vbonduro/sitecheck/internal/export"
	"github.com/vbonduro/sitecheck/internal/service"
)

// technician maps the signed-in user to a report author.
func technician(r *http.Request) service.Technician {
	p := auth.FromContext(r.Context())
	if p == nil {
		return service.Technician{}
	}
	name := p.DisplayName
	if name == "" {
		name = p.Email
	}
	return service.Technician{ID: p.UID, Name: name}
}

type photoResponse struct {
	URL    string            `json:"url"`
	Report domain.WorkReport `json:"report"`
}

func (s *Server) handleGetWorkReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.workReports.Get(r.Context(), r.PathValue("id"), technician(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSaveWorkReport(w http.ResponseWriter, r *http.Request) {
	var req service.ReportUpdate
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.workReports.Save(r.Context(), r.PathValue("id"), technician(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAttachReportPhoto(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, url, err := s.workReports.AttachPhoto(r.Context(), r.PathValue("id"), technician(r), mimeType, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, photoResponse{URL: url, Report: report})
}

// handleRemoveReportPhoto takes the photo URL in ?url=.
func (s *Server) handleRemoveReportPhoto(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.writeError(w, r, fmt.Errorf("%w: url required", service.ErrInvalid))
		return
	}
	report, err := s.workReports.RemovePhoto(r.Context(), r.PathValue("id"), technician(r), url)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleRecentWorkReports lists the caller's own reports, ?limit= optional.
func (s *Server) handleRecentWorkReports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, fmt.Errorf("%w: invalid limit %q", service.ErrInvalid, raw))
			return
		}
		limit = n
	}
	reports, err := s.workReports.Recent(r.Context(), technician(r).ID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleApproveWorkReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.workReports.Approve(r.Context(), r.PathValue("reportID"), actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleExportWorkReport is open to the report's author and administrators.
func (s *Server) handleExportWorkReport(w http.ResponseWriter, r *http.Request) {
	reportID := r.PathValue("reportID")
	report, err := s.workReports.Find(r.Context(), reportID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if report.TechnicianID != technician(r).ID && !s.admins.IsAdmin(auth.FromContext(r.Context())) {
		s.writeError(w, r, errForbidden)
		return
	}

	siteName := report.ProjectID
	if p, err := s.projects.Get(r.Context(), report.ProjectID); err == nil {
		siteName = p.SiteName
	}
	data, err := export.WorkReportWorkbook(report, siteName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "work-report-"+reportID+".xlsx"))
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write export failed", "report_id", reportID, "error", err)
	}
}
