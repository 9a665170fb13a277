package web

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vbonduro/sitecheck/internal/domain"
	"github.com/vbonduro/sitecheck/internal/service"
	"github.com/vbonduro/sitecheck/internal/vision"
)

const maxMediaSize = 100 * 1024 * 1024 // 100 MB

// allowedMediaTypes is the set of MIME types net/http.DetectContentType
// reports for accepted evidence files. WebP and QuickTime are detected
// separately because the WHATWG sniffing algorithm (and therefore the
// stdlib) has no signature for them.
var allowedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"video/mp4":  true,
	"video/webm": true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// isQuickTime reports whether data starts with an ISO-BMFF ftyp box whose
// major brand is "qt  ".
func isQuickTime(data []byte) bool {
	return len(data) >= 12 &&
		string(data[4:8]) == "ftyp" &&
		string(data[8:12]) == "qt  "
}

// allowedMediaMIME returns the detected MIME type and true if the data is an
// accepted image or video format, or ("", false) otherwise.
func allowedMediaMIME(data []byte) (string, bool) {
	switch {
	case isWebP(data):
		return "image/webp", true
	case isQuickTime(data):
		return "video/quicktime", true
	}
	mime := http.DetectContentType(data)
	if allowedMediaTypes[mime] {
		return mime, true
	}
	return "", false
}

// readFormFile reads the "file" field of a multipart form and returns its
// bytes with the client supplied file name.
func (s *Server) readFormFile(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMediaSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, "", fmt.Errorf("%w: failed to parse form", service.ErrInvalid)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("%w: file required", service.ErrInvalid)
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	return data, header.Filename, nil
}

// readUpload reads an image or video upload and sniffs its type.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	data, _, err := s.readFormFile(w, r)
	if err != nil {
		return nil, "", err
	}
	mimeType, ok := allowedMediaMIME(data)
	if !ok {
		return nil, "", fmt.Errorf("%w: unsupported media format", service.ErrInvalid)
	}
	return data, mimeType, nil
}

type attachResponse struct {
	URL    string                  `json:"url"`
	Record domain.InspectionRecord `json:"record"`
}

func (s *Server) handleAttachMedia(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, url, err := s.inspections.AttachMedia(r.Context(), recordRef(r), actor(r), r.PathValue("area"), mimeType, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, attachResponse{URL: url, Record: rec})
}

// handleDetachMedia takes the media URL in ?url=.
func (s *Server) handleDetachMedia(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.writeError(w, r, fmt.Errorf("%w: url required", service.ErrInvalid))
		return
	}
	rec, err := s.inspections.DetachMedia(r.Context(), recordRef(r), actor(r), r.PathValue("area"), url)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

type analyzeResponse struct {
	Findings []vision.Finding `json:"findings"`
	Remarks  []string         `json:"suggestedRemarks"`
}

func (s *Server) handleAnalyzePhoto(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.inspections.AnalyzePhoto(r.Context(), recordRef(r), r.PathValue("area"), mimeType, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := analyzeResponse{Findings: result.Findings, Remarks: make([]string, 0, len(result.Findings))}
	if resp.Findings == nil {
		resp.Findings = []vision.Finding{}
	}
	for _, f := range result.Findings {
		resp.Remarks = append(resp.Remarks, f.Remark())
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	reader, mimeType, err := s.blobs.Open(r.Context(), key)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer closeWithLog(reader, "media reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	if rs, ok := reader.(io.ReadSeeker); ok {
		http.ServeContent(w, r, "", time.Time{}, rs)
		return
	}
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write media failed", "key", key, "error", err)
	}
}
