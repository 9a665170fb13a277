package web

import (
	"net/http"

	"github.com/vbonduro/sitecheck/internal/domain"
	"github.com/vbonduro/sitecheck/internal/inspection"
)

func recordRef(r *http.Request) domain.RecordRef {
	return domain.RecordRef{
		ProjectID: r.PathValue("id"),
		Building:  r.PathValue("building"),
		Apartment: r.PathValue("apartment"),
		Trade:     r.PathValue("trade"),
	}
}

func (s *Server) handleBuildingStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.inspections.BuildingStatuses(r.Context(), r.PathValue("id"), r.PathValue("trade"), r.PathValue("building"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.inspections.GetRecord(r.Context(), recordRef(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleListIssues supports ?status= (an issue label or "all") and
// ?sort=area|date.
func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	key, err := inspection.ParseSortKey(r.URL.Query().Get("sort"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	issues, err := s.inspections.ListIssues(r.Context(), recordRef(r), r.URL.Query().Get("status"), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, issues)
}

type addIssueRequest struct {
	Area        string `json:"area"`
	Description string `json:"description"`
}

func (s *Server) handleAddIssue(w http.ResponseWriter, r *http.Request) {
	var req addIssueRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	_, issue, err := s.inspections.AddIssue(r.Context(), recordRef(r), actor(r), req.Area, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, issue)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetIssueStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.inspections.SetIssueStatus(r.Context(), recordRef(r), actor(r), r.PathValue("issueID"), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSetAreaStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.inspections.SetAreaStatus(r.Context(), recordRef(r), actor(r), r.PathValue("area"), domain.AreaStatus(req.Status))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

type remarkRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAddRemark(w http.ResponseWriter, r *http.Request) {
	var req remarkRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.inspections.AddRemark(r.Context(), recordRef(r), actor(r), r.PathValue("area"), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRemark(w http.ResponseWriter, r *http.Request) {
	var req remarkRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.inspections.DeleteRemark(r.Context(), recordRef(r), actor(r), r.PathValue("area"), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}
