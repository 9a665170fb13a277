package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/vbonduro/sitecheck/internal/blobstore"
	"github.com/vbonduro/sitecheck/internal/docstore"
	"github.com/vbonduro/sitecheck/internal/domain"
)

const (
	workReportsCollection = "communicationReports"
	// communicationType tags work report entries in the work log.
	communicationType = "communication"
	// DefaultRecentReports is the size of a technician's recent reports list.
	DefaultRecentReports = 10
)

// Technician identifies the author of a work report.
type Technician struct {
	ID   string
	Name string
}

// ReportUpdate is the technician editable part of a work report.
type ReportUpdate struct {
	Description string                `json:"description"`
	Hardware    []domain.HardwareItem `json:"hardware"`
	Status      domain.ReportStatus   `json:"status"`
}

// WorkReportService manages communication works reports. Each technician has
// one report per project, stored as communicationReports/{project}_{uid}.
// Technicians save reports as draft or submitted; approval is separate and
// locks the report.
type WorkReportService struct {
	docs     docstore.Store
	blobs    blobstore.Store
	workLogs workLogWriter
	now      func() time.Time
	logger   *slog.Logger
}

func NewWorkReportService(docs docstore.Store, blobs blobstore.Store, workLogs workLogWriter, logger *slog.Logger) *WorkReportService {
	return &WorkReportService{docs: docs, blobs: blobs, workLogs: workLogs, now: time.Now, logger: logger}
}

// Get returns the technician's report for the project, creating an empty
// draft on first access.
func (s *WorkReportService) Get(ctx context.Context, projectID string, tech Technician) (domain.WorkReport, error) {
	if _, err := loadProject(ctx, s.docs, projectID); err != nil {
		return domain.WorkReport{}, err
	}
	r, existed, err := s.load(ctx, projectID, tech)
	if err != nil {
		return domain.WorkReport{}, err
	}
	if !existed {
		if err := s.save(ctx, r); err != nil {
			return domain.WorkReport{}, err
		}
		s.logger.Info("work report created", "report_id", r.ID)
	}
	return r, nil
}

// Save replaces the description and hardware list and sets the status, which
// must be draft or submitted. An empty status saves a draft.
func (s *WorkReportService) Save(ctx context.Context, projectID string, tech Technician, u ReportUpdate) (domain.WorkReport, error) {
	if u.Status == "" {
		u.Status = domain.ReportDraft
	}
	if u.Status != domain.ReportDraft && u.Status != domain.ReportSubmitted {
		return domain.WorkReport{}, fmt.Errorf("%w: status must be %s or %s", ErrInvalid, domain.ReportDraft, domain.ReportSubmitted)
	}
	hardware, err := normalizeHardware(u.Hardware)
	if err != nil {
		return domain.WorkReport{}, err
	}

	project, r, err := s.editable(ctx, projectID, tech)
	if err != nil {
		return domain.WorkReport{}, err
	}
	r.Description = strings.TrimSpace(u.Description)
	r.Hardware = hardware
	r.Status = u.Status
	r.TechnicianName = tech.Name
	r.Timestamp = s.now().UTC()
	if err := s.save(ctx, r); err != nil {
		return domain.WorkReport{}, err
	}

	s.logger.Info("work report saved", "report_id", r.ID, "status", r.Status)
	if r.Status == domain.ReportSubmitted {
		s.writeLog(ctx, project, tech.Name, r, "Communication work report submitted")
	}
	return r, nil
}

// AttachPhoto uploads an image and adds its URL to the report.
func (s *WorkReportService) AttachPhoto(ctx context.Context, projectID string, tech Technician, mimeType string, data []byte) (domain.WorkReport, string, error) {
	if !blobstore.IsImage(mimeType) {
		return domain.WorkReport{}, "", fmt.Errorf("%w: %s", blobstore.ErrUnsupportedType, mimeType)
	}
	_, r, err := s.editable(ctx, projectID, tech)
	if err != nil {
		return domain.WorkReport{}, "", err
	}

	key, created, err := s.blobs.Upload(ctx, workReportDir(projectID), mimeType, data)
	if err != nil {
		return domain.WorkReport{}, "", fmt.Errorf("failed to upload photo: %w", err)
	}
	url := s.blobs.URL(key)
	if !slices.Contains(r.Photos, url) {
		r.Photos = append(r.Photos, url)
	}
	if err := s.save(ctx, r); err != nil {
		if created {
			s.deleteBlob(ctx, key)
		}
		return domain.WorkReport{}, "", err
	}
	return r, url, nil
}

// RemovePhoto drops url from the report. Photos are stored per project, so the
// blob is kept while another report of the project still lists it.
func (s *WorkReportService) RemovePhoto(ctx context.Context, projectID string, tech Technician, url string) (domain.WorkReport, error) {
	_, r, err := s.editable(ctx, projectID, tech)
	if err != nil {
		return domain.WorkReport{}, err
	}
	idx := slices.Index(r.Photos, url)
	if idx < 0 {
		return domain.WorkReport{}, fmt.Errorf("%w: photo %q", ErrNotFound, url)
	}
	r.Photos = slices.Delete(r.Photos, idx, idx+1)
	if err := s.save(ctx, r); err != nil {
		return domain.WorkReport{}, err
	}

	others, err := s.docs.Query(ctx, workReportsCollection, docstore.Query{Where: []docstore.Filter{
		docstore.Equals("projectId", projectID),
		docstore.ArrayContains("photos", url),
	}})
	if err != nil {
		s.logger.Error("failed to check photo references, keeping blob", "url", url, "error", err)
		return r, nil
	}
	if len(others) > 0 {
		return r, nil
	}
	if key, ok := s.blobs.KeyFromURL(url); ok {
		s.deleteBlob(ctx, key)
	}
	return r, nil
}

// Recent returns the technician's reports across projects, newest first.
// A limit of zero or less means DefaultRecentReports.
func (s *WorkReportService) Recent(ctx context.Context, technicianID string, limit int) ([]domain.WorkReport, error) {
	if limit <= 0 {
		limit = DefaultRecentReports
	}
	snaps, err := s.docs.Query(ctx, workReportsCollection, docstore.Query{
		Where:   []docstore.Filter{docstore.Equals("technicianId", technicianID)},
		OrderBy: "timestamp",
		Desc:    true,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list work reports: %w", err)
	}

	reports := make([]domain.WorkReport, 0, len(snaps))
	for _, snap := range snaps {
		r, err := docstore.DecodeWorkReport(snap)
		if err != nil {
			s.logger.Warn("skipping unreadable work report", "report_id", snap.ID, "error", err)
			continue
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// Find loads a report by id.
func (s *WorkReportService) Find(ctx context.Context, reportID string) (domain.WorkReport, error) {
	p, err := docstore.Join(workReportsCollection, reportID)
	if err != nil {
		return domain.WorkReport{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	snap, err := s.docs.Get(ctx, p)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.WorkReport{}, fmt.Errorf("%w: work report %q", ErrNotFound, reportID)
	}
	if err != nil {
		return domain.WorkReport{}, fmt.Errorf("failed to load work report: %w", err)
	}
	return docstore.DecodeWorkReport(snap)
}

// Approve marks a submitted report approved.
func (s *WorkReportService) Approve(ctx context.Context, reportID, approver string) (domain.WorkReport, error) {
	r, err := s.Find(ctx, reportID)
	if err != nil {
		return domain.WorkReport{}, err
	}
	if r.Status != domain.ReportSubmitted {
		return domain.WorkReport{}, fmt.Errorf("%w: only submitted reports can be approved, report is %s", ErrInvalid, r.Status)
	}
	r.Status = domain.ReportApproved
	if err := s.save(ctx, r); err != nil {
		return domain.WorkReport{}, err
	}

	s.logger.Info("work report approved", "report_id", r.ID, "approver", approver)
	if project, err := loadProject(ctx, s.docs, r.ProjectID); err == nil {
		s.writeLog(ctx, project, approver, r, fmt.Sprintf("Communication work report of %s approved", r.TechnicianName))
	}
	return r, nil
}

// editable loads the project and the technician's report, refusing approved
// reports.
func (s *WorkReportService) editable(ctx context.Context, projectID string, tech Technician) (domain.Project, domain.WorkReport, error) {
	project, err := loadProject(ctx, s.docs, projectID)
	if err != nil {
		return domain.Project{}, domain.WorkReport{}, err
	}
	r, _, err := s.load(ctx, projectID, tech)
	if err != nil {
		return domain.Project{}, domain.WorkReport{}, err
	}
	if r.Status == domain.ReportApproved {
		return domain.Project{}, domain.WorkReport{}, fmt.Errorf("%w: report %s is approved and can no longer change", ErrInvalid, r.ID)
	}
	return project, r, nil
}

// load returns the stored report, or a new draft and false.
func (s *WorkReportService) load(ctx context.Context, projectID string, tech Technician) (domain.WorkReport, bool, error) {
	if tech.ID == "" {
		return domain.WorkReport{}, false, fmt.Errorf("%w: technician id required", ErrInvalid)
	}
	id := projectID + "_" + tech.ID
	r, err := s.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return domain.WorkReport{
			ID:             id,
			ProjectID:      projectID,
			TechnicianID:   tech.ID,
			TechnicianName: tech.Name,
			Timestamp:      s.now().UTC(),
			Hardware:       []domain.HardwareItem{},
			Photos:         []string{},
			Status:         domain.ReportDraft,
		}, false, nil
	}
	if err != nil {
		return domain.WorkReport{}, false, err
	}
	return r, true, nil
}

func (s *WorkReportService) save(ctx context.Context, r domain.WorkReport) error {
	p, err := docstore.Join(workReportsCollection, r.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	data, err := docstore.EncodeWorkReport(r)
	if err != nil {
		return err
	}
	if err := s.docs.Set(ctx, p, data, false); err != nil {
		return fmt.Errorf("failed to save work report: %w", err)
	}
	return nil
}

func (s *WorkReportService) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		s.logger.Error("failed to delete work report photo", "key", key, "error", err)
	}
}

func (s *WorkReportService) writeLog(ctx context.Context, project domain.Project, actor string, r domain.WorkReport, description string) {
	if _, err := s.workLogs.Add(ctx, domain.WorkLog{
		ProjectID:   project.ID,
		ProjectName: project.SiteName,
		Technician:  actor,
		Date:        s.now().UTC(),
		Description: description,
		Type:        communicationType,
		Status:      string(r.Status),
	}); err != nil {
		s.logger.Error("failed to write work log", "project_id", project.ID, "error", err)
	}
}

func workReportDir(projectID string) string {
	return "projects/" + projectID + "/communication"
}

func normalizeHardware(items []domain.HardwareItem) ([]domain.HardwareItem, error) {
	out := make([]domain.HardwareItem, 0, len(items))
	for i, h := range items {
		h.Item = strings.TrimSpace(h.Item)
		if h.Item == "" {
			return nil, fmt.Errorf("%w: hardware item %d has no name", ErrInvalid, i+1)
		}
		if h.Quantity < 1 {
			return nil, fmt.Errorf("%w: hardware item %q needs a quantity of at least 1", ErrInvalid, h.Item)
		}
		out = append(out, h)
	}
	return out, nil
}
