package web

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vbonduro/sitecheck/internal/domain"
	"github.com/vbonduro/sitecheck/internal/service"
)

const (
	wordMIME     = "application/msword"
	wordXMLMIME  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	pdfMIME      = "application/pdf"
	zipSniffMIME = "application/zip"
)

// oleSignature opens every legacy compound document, .doc included.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// documentMIME sniffs a PDF or Word upload. Word files carry container
// signatures shared with other formats, so the file name extension has to
// agree as well.
func documentMIME(data []byte, fileName string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case http.DetectContentType(data) == pdfMIME:
		return pdfMIME, true
	case ext == ".docx" && http.DetectContentType(data) == zipSniffMIME:
		return wordXMLMIME, true
	case ext == ".doc" && bytes.HasPrefix(data, oleSignature):
		return wordMIME, true
	}
	return "", false
}

type stageUploadResponse struct {
	File     domain.StageFile      `json:"file"`
	Workflow domain.CommonPlumbing `json:"workflow"`
}

func (s *Server) handleGetCommonPlumbing(w http.ResponseWriter, r *http.Request) {
	c, err := s.commonPlumbing.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUploadStageFile(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.readFormFile(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	mimeType, ok := allowedMediaMIME(data)
	if !ok || !strings.HasPrefix(mimeType, "video/") {
		if mimeType, ok = documentMIME(data, name); !ok {
			s.writeError(w, r, fmt.Errorf("%w: unsupported file format", service.ErrInvalid))
			return
		}
	}

	c, file, err := s.commonPlumbing.UploadFile(r.Context(), r.PathValue("id"), actor(r), r.PathValue("stage"), name, mimeType, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, stageUploadResponse{File: file, Workflow: c})
}

func (s *Server) handleDeleteStageFile(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid file index %q", service.ErrInvalid, r.PathValue("index")))
		return
	}
	c, err := s.commonPlumbing.DeleteFile(r.Context(), r.PathValue("id"), actor(r), r.PathValue("stage"), index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}
