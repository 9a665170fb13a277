package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/vbonduro/sitecheck/internal/blobstore"
	"github.com/vbonduro/sitecheck/internal/docstore"
	"github.com/vbonduro/sitecheck/internal/domain"
)

// commonPlumbingType tags common plumbing entries in the work log.
const commonPlumbingType = "commonPlumbing"

// CommonPlumbingService runs the staged document workflow for the shared
// plumbing of a project. Files can only be added to the current stage, the
// first one that has none yet.
type CommonPlumbingService struct {
	docs     docstore.Store
	blobs    blobstore.Store
	workLogs workLogWriter
	now      func() time.Time
	logger   *slog.Logger
}

func NewCommonPlumbingService(docs docstore.Store, blobs blobstore.Store, workLogs workLogWriter, logger *slog.Logger) *CommonPlumbingService {
	return &CommonPlumbingService{docs: docs, blobs: blobs, workLogs: workLogs, now: time.Now, logger: logger}
}

// Get returns the project's workflow, creating it with empty stages on first
// access.
func (s *CommonPlumbingService) Get(ctx context.Context, projectID string) (domain.CommonPlumbing, error) {
	if _, err := loadProject(ctx, s.docs, projectID); err != nil {
		return domain.CommonPlumbing{}, err
	}
	c, existed, err := s.load(ctx, projectID)
	if err != nil {
		return domain.CommonPlumbing{}, err
	}
	if !existed {
		if err := s.save(ctx, projectID, c); err != nil {
			return domain.CommonPlumbing{}, err
		}
		s.logger.Info("common plumbing workflow created", "project_id", projectID)
	}
	return c, nil
}

// UploadFile stores a file for the named stage. Video stages take recordings
// and every other stage takes PDF or Word documents.
func (s *CommonPlumbingService) UploadFile(ctx context.Context, projectID, actor, stage, fileName, mimeType string, data []byte) (domain.CommonPlumbing, domain.StageFile, error) {
	project, err := loadProject(ctx, s.docs, projectID)
	if err != nil {
		return domain.CommonPlumbing{}, domain.StageFile{}, err
	}
	c, _, err := s.load(ctx, projectID)
	if err != nil {
		return domain.CommonPlumbing{}, domain.StageFile{}, err
	}

	idx := c.StageIndex(stage)
	if idx < 0 {
		return domain.CommonPlumbing{}, domain.StageFile{}, fmt.Errorf("%w: stage %q", ErrNotFound, stage)
	}
	if idx != c.CurrentStage {
		return domain.CommonPlumbing{}, domain.StageFile{}, fmt.Errorf("%w: stage %q is not the current stage %q",
			ErrInvalid, stage, c.Stages[c.CurrentStage].Name)
	}
	if !acceptsStageFile(c.Stages[idx], mimeType) {
		return domain.CommonPlumbing{}, domain.StageFile{}, fmt.Errorf("%w: %s for stage %q", blobstore.ErrUnsupportedType, mimeType, stage)
	}

	key, created, err := s.blobs.Upload(ctx, commonPlumbingDir(projectID), mimeType, data)
	if err != nil {
		return domain.CommonPlumbing{}, domain.StageFile{}, fmt.Errorf("failed to upload file: %w", err)
	}
	ext, _ := blobstore.ExtForMIME(mimeType)
	file := domain.StageFile{Name: cleanFileName(fileName, stage+ext), URL: s.blobs.URL(key)}

	c.Stages[idx].Files = append(c.Stages[idx].Files, file)
	c.CurrentStage = c.ActiveStage()
	if err := s.save(ctx, projectID, c); err != nil {
		if created {
			s.deleteBlob(ctx, key)
		}
		return domain.CommonPlumbing{}, domain.StageFile{}, err
	}

	s.logger.Info("common plumbing file uploaded", "project_id", projectID, "stage", stage, "file", file.Name)
	s.writeLog(ctx, project, actor, stage, fmt.Sprintf("Uploaded %s to %s", file.Name, stage))
	return c, file, nil
}

// DeleteFile removes the file at index from the named stage. The blob is
// deleted unless another stage still lists the same content.
func (s *CommonPlumbingService) DeleteFile(ctx context.Context, projectID, actor, stage string, index int) (domain.CommonPlumbing, error) {
	project, err := loadProject(ctx, s.docs, projectID)
	if err != nil {
		return domain.CommonPlumbing{}, err
	}
	c, _, err := s.load(ctx, projectID)
	if err != nil {
		return domain.CommonPlumbing{}, err
	}

	idx := c.StageIndex(stage)
	if idx < 0 {
		return domain.CommonPlumbing{}, fmt.Errorf("%w: stage %q", ErrNotFound, stage)
	}
	files := c.Stages[idx].Files
	if index < 0 || index >= len(files) {
		return domain.CommonPlumbing{}, fmt.Errorf("%w: file %d of stage %q", ErrNotFound, index, stage)
	}
	removed := files[index]
	c.Stages[idx].Files = append(files[:index:index], files[index+1:]...)
	c.CurrentStage = c.ActiveStage()

	if err := s.save(ctx, projectID, c); err != nil {
		return domain.CommonPlumbing{}, err
	}
	s.logger.Info("common plumbing file deleted", "project_id", projectID, "stage", stage, "file", removed.Name)
	s.writeLog(ctx, project, actor, stage, fmt.Sprintf("Deleted %s from %s", removed.Name, stage))

	if stageFilesReference(c, removed.URL) {
		return c, nil
	}
	if key, ok := s.blobs.KeyFromURL(removed.URL); ok {
		s.deleteBlob(ctx, key)
	}
	return c, nil
}

func (s *CommonPlumbingService) load(ctx context.Context, projectID string) (domain.CommonPlumbing, bool, error) {
	p, err := commonPlumbingPath(projectID)
	if err != nil {
		return domain.CommonPlumbing{}, false, err
	}
	snap, err := s.docs.Get(ctx, p)
	if errors.Is(err, docstore.ErrNotFound) {
		return newCommonPlumbing(), false, nil
	}
	if err != nil {
		return domain.CommonPlumbing{}, false, fmt.Errorf("failed to load common plumbing: %w", err)
	}
	c, err := docstore.DecodeCommonPlumbing(snap.Data)
	if err != nil {
		return domain.CommonPlumbing{}, false, fmt.Errorf("failed to decode common plumbing %s: %w", p, err)
	}
	if len(c.Stages) == 0 {
		return newCommonPlumbing(), true, nil
	}
	return c, true, nil
}

func (s *CommonPlumbingService) save(ctx context.Context, projectID string, c domain.CommonPlumbing) error {
	p, err := commonPlumbingPath(projectID)
	if err != nil {
		return err
	}
	data, err := docstore.EncodeCommonPlumbing(c)
	if err != nil {
		return err
	}
	if err := s.docs.Set(ctx, p, data, true); err != nil {
		return fmt.Errorf("failed to save common plumbing: %w", err)
	}
	return nil
}

func (s *CommonPlumbingService) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		s.logger.Error("failed to delete common plumbing file", "key", key, "error", err)
	}
}

func (s *CommonPlumbingService) writeLog(ctx context.Context, project domain.Project, actor, stage, description string) {
	if _, err := s.workLogs.Add(ctx, domain.WorkLog{
		ProjectID:   project.ID,
		ProjectName: project.SiteName,
		Technician:  actor,
		Date:        s.now().UTC(),
		Description: description,
		Type:        commonPlumbingType,
		Status:      stage,
	}); err != nil {
		s.logger.Error("failed to write work log", "project_id", project.ID, "error", err)
	}
}

func newCommonPlumbing() domain.CommonPlumbing {
	c := domain.CommonPlumbing{Stages: make([]domain.PlumbingStage, 0, len(domain.PlumbingStageNames))}
	for _, name := range domain.PlumbingStageNames {
		c.Stages = append(c.Stages, domain.PlumbingStage{Name: name, Files: []domain.StageFile{}})
	}
	return c
}

func commonPlumbingPath(projectID string) (string, error) {
	p, err := docstore.Join(projectsCollection, projectID, "commonPlumbing", "data")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return p, nil
}

func commonPlumbingDir(projectID string) string {
	return "projects/" + projectID + "/commonPlumbing"
}

func acceptsStageFile(stage domain.PlumbingStage, mimeType string) bool {
	if stage.IsVideo() {
		return blobstore.IsVideo(mimeType)
	}
	return blobstore.IsDocument(mimeType)
}

func stageFilesReference(c domain.CommonPlumbing, url string) bool {
	for _, st := range c.Stages {
		for _, f := range st.Files {
			if f.URL == url {
				return true
			}
		}
	}
	return false
}

// cleanFileName keeps the base name of a client supplied file name.
func cleanFileName(name, fallback string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return fallback
	}
	return name
}
