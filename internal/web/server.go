package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/sitecheck/internal/auth"
	"github.com/vbonduro/sitecheck/internal/blobstore"
	"github.com/vbonduro/sitecheck/internal/service"
)

// Deps are the collaborators the HTTP layer delegates to.
type Deps struct {
	Projects    *service.ProjectService
	Inspections *service.InspectionService
	Reports     *service.ReportService
	WorkLogs    *service.WorkLogService
	// CommonPlumbing and WorkReports serve the shared plumbing workflow and
	// the communication work reports.
	CommonPlumbing *service.CommonPlumbingService
	WorkReports    *service.WorkReportService
	Blobs          blobstore.Store
	Auth           auth.Provider
	Admins         auth.Admins
}

type Server struct {
	projects       *service.ProjectService
	inspections    *service.InspectionService
	reports        *service.ReportService
	workLogs       *service.WorkLogService
	commonPlumbing *service.CommonPlumbingService
	workReports    *service.WorkReportService
	blobs          blobstore.Store
	auth           auth.Provider
	admins         auth.Admins
	mux            *http.ServeMux
	logger         *slog.Logger
}

func NewServer(deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		projects:       deps.Projects,
		inspections:    deps.Inspections,
		reports:        deps.Reports,
		workLogs:       deps.WorkLogs,
		commonPlumbing: deps.CommonPlumbing,
		workReports:    deps.WorkReports,
		blobs:          deps.Blobs,
		auth:           deps.Auth,
		admins:         deps.Admins,
		mux:            http.NewServeMux(),
		logger:         logger,
	}
	s.registerRoutes()
	return s
}

const (
	apartmentRoute      = "/api/projects/{id}/trades/{trade}/buildings/{building}/apartments/{apartment}"
	commonPlumbingRoute = "/api/projects/{id}/common-plumbing"
	workReportRoute     = "/api/projects/{id}/communication/report"
)

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /media/{key...}", s.handleGetMedia)

	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	s.mux.HandleFunc("POST /api/auth/idp", s.handleIdPLogin)
	s.mux.Handle("GET /api/me", s.authed(s.handleMe))

	s.mux.Handle("GET /api/projects", s.authed(s.handleListProjects))
	s.mux.Handle("POST /api/projects", s.admin(s.handleCreateProject))
	s.mux.Handle("GET /api/projects/{id}", s.authed(s.handleGetProject))
	s.mux.Handle("PUT /api/projects/{id}", s.admin(s.handleUpdateProject))
	s.mux.Handle("DELETE /api/projects/{id}", s.admin(s.handleDeleteProject))
	s.mux.Handle("GET /api/projects/{id}/export", s.admin(s.handleExportIssues))
	s.mux.Handle("GET /api/stats", s.admin(s.handleStats))
	s.mux.Handle("GET /api/worklogs", s.admin(s.handleListWorkLogs))

	s.mux.Handle("GET /api/projects/{id}/trades/{trade}/buildings/{building}/statuses", s.authed(s.handleBuildingStatuses))
	s.mux.Handle("GET "+apartmentRoute, s.authed(s.handleGetRecord))
	s.mux.Handle("GET "+apartmentRoute+"/issues", s.authed(s.handleListIssues))
	s.mux.Handle("POST "+apartmentRoute+"/issues", s.authed(s.handleAddIssue))
	s.mux.Handle("PUT "+apartmentRoute+"/issues/{issueID}/status", s.authed(s.handleSetIssueStatus))
	s.mux.Handle("PUT "+apartmentRoute+"/areas/{area}/status", s.authed(s.handleSetAreaStatus))
	s.mux.Handle("POST "+apartmentRoute+"/areas/{area}/remarks", s.authed(s.handleAddRemark))
	s.mux.Handle("DELETE "+apartmentRoute+"/areas/{area}/remarks", s.authed(s.handleDeleteRemark))
	s.mux.Handle("POST "+apartmentRoute+"/areas/{area}/media", s.authed(s.handleAttachMedia))
	s.mux.Handle("DELETE "+apartmentRoute+"/areas/{area}/media", s.authed(s.handleDetachMedia))
	s.mux.Handle("POST "+apartmentRoute+"/areas/{area}/analyze", s.authed(s.handleAnalyzePhoto))

	s.mux.Handle("GET "+commonPlumbingRoute, s.authed(s.handleGetCommonPlumbing))
	s.mux.Handle("POST "+commonPlumbingRoute+"/stages/{stage}/files", s.authed(s.handleUploadStageFile))
	s.mux.Handle("DELETE "+commonPlumbingRoute+"/stages/{stage}/files/{index}", s.authed(s.handleDeleteStageFile))

	s.mux.Handle("GET "+workReportRoute, s.authed(s.handleGetWorkReport))
	s.mux.Handle("PUT "+workReportRoute, s.authed(s.handleSaveWorkReport))
	s.mux.Handle("POST "+workReportRoute+"/photos", s.authed(s.handleAttachReportPhoto))
	s.mux.Handle("DELETE "+workReportRoute+"/photos", s.authed(s.handleRemoveReportPhoto))
	s.mux.Handle("GET /api/communication/reports/recent", s.authed(s.handleRecentWorkReports))
	s.mux.Handle("PUT /api/communication/reports/{reportID}/approve", s.admin(s.handleApproveWorkReport))
	s.mux.Handle("GET /api/communication/reports/{reportID}/export", s.authed(s.handleExportWorkReport))
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
