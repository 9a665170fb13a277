package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/vbonduro/sitecheck/internal/blobstore"
	"github.com/vbonduro/sitecheck/internal/docstore"
	"github.com/vbonduro/sitecheck/internal/domain"
	"github.com/vbonduro/sitecheck/internal/inspection"
	"github.com/vbonduro/sitecheck/internal/notify"
	"github.com/vbonduro/sitecheck/internal/vision"
)

// workLogWriter is the subset of WorkLogService that InspectionService requires.
type workLogWriter interface {
	Add(ctx context.Context, entry domain.WorkLog) (domain.WorkLog, error)
}

type InspectionService struct {
	docs       docstore.Store
	blobs      blobstore.Store
	trades     tradeRegistry
	workLogs   workLogWriter
	publisher  notify.Publisher
	analyzer   vision.Analyzer
	engineOpts []inspection.Option
	now        func() time.Time
	logger     *slog.Logger
}

// NewInspectionService wires the service. analyzer may be nil to disable
// photo analysis; engineOpts are passed to every engine it builds.
func NewInspectionService(
	docs docstore.Store,
	blobs blobstore.Store,
	trades tradeRegistry,
	workLogs workLogWriter,
	publisher notify.Publisher,
	analyzer vision.Analyzer,
	logger *slog.Logger,
	engineOpts ...inspection.Option,
) *InspectionService {
	return &InspectionService{
		docs:       docs,
		blobs:      blobs,
		trades:     trades,
		workLogs:   workLogs,
		publisher:  publisher,
		analyzer:   analyzer,
		engineOpts: engineOpts,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *InspectionService) engine(trade string) (*inspection.Engine, error) {
	t, ok := s.trades.Get(trade)
	if !ok {
		return nil, fmt.Errorf("%w: trade %q", ErrNotFound, trade)
	}
	return inspection.New(t, s.engineOpts...), nil
}

// GetRecord loads the record for ref, seeding and saving it with the trade's
// areas on first open.
func (s *InspectionService) GetRecord(ctx context.Context, ref domain.RecordRef) (domain.InspectionRecord, error) {
	engine, err := s.engine(ref.Trade)
	if err != nil {
		return domain.InspectionRecord{}, err
	}
	if _, err := s.checkLocation(ctx, ref); err != nil {
		return domain.InspectionRecord{}, err
	}

	rec, existed, err := s.load(ctx, ref, engine)
	if err != nil {
		return domain.InspectionRecord{}, err
	}
	if !existed {
		if err := s.saveRecord(ctx, ref, rec); err != nil {
			return domain.InspectionRecord{}, err
		}
		s.logger.Info("inspection record seeded", "project_id", ref.ProjectID, "building", ref.Building,
			"apartment", ref.Apartment, "trade", ref.Trade)
	}
	return rec, nil
}

func (s *InspectionService) SetAreaStatus(ctx context.Context, ref domain.RecordRef, actor, area string, status domain.AreaStatus) (domain.InspectionRecord, error) {
	return s.mutate(ctx, ref, actor, fmt.Sprintf("%s marked %s", area, status),
		func(e *inspection.Engine, rec domain.InspectionRecord) (domain.InspectionRecord, error) {
			return e.SetAreaStatus(rec, area, status)
		})
}

func (s *InspectionService) AddRemark(ctx context.Context, ref domain.RecordRef, actor, area, text string) (domain.InspectionRecord, error) {
	return s.mutate(ctx, ref, actor, fmt.Sprintf("Remark added to %s", area),
		func(e *inspection.Engine, rec domain.InspectionRecord) (domain.InspectionRecord, error) {
			return e.AddRemark(rec, area, text)
		})
}

func (s *InspectionService) DeleteRemark(ctx context.Context, ref domain.RecordRef, actor, area, text string) (domain.InspectionRecord, error) {
	return s.mutate(ctx, ref, actor, fmt.Sprintf("Remark removed from %s", area),
		func(e *inspection.Engine, rec domain.InspectionRecord) (domain.InspectionRecord, error) {
			return e.DeleteRemark(rec, area, text)
		})
}

// AttachMedia uploads data and links its URL to area. Nothing is uploaded for an
// unknown trade or location. If the record update fails the blob is removed
// again, unless the same content was already stored before this call.
func (s *InspectionService) AttachMedia(ctx context.Context, ref domain.RecordRef, actor, area, mimeType string, data []byte) (domain.InspectionRecord, string, error) {
	if _, err := s.engine(ref.Trade); err != nil {
		return domain.InspectionRecord{}, "", err
	}
	if _, err := s.checkLocation(ctx, ref); err != nil {
		return domain.InspectionRecord{}, "", err
	}
	if !blobstore.IsImage(mimeType) && !blobstore.IsVideo(mimeType) {
		return domain.InspectionRecord{}, "", fmt.Errorf("%w: %s", blobstore.ErrUnsupportedType, mimeType)
	}

	key, created, err := s.blobs.Upload(ctx, mediaDir(ref), mimeType, data)
	if err != nil {
		return domain.InspectionRecord{}, "", fmt.Errorf("failed to upload media: %w", err)
	}
	url := s.blobs.URL(key)
	s.logger.Debug("media uploaded", "key", key, "mime_type", mimeType, "bytes", len(data), "created", created)

	rec, err := s.mutate(ctx, ref, actor, fmt.Sprintf("Media attached to %s", area),
		func(e *inspection.Engine, rec domain.InspectionRecord) (domain.InspectionRecord, error) {
			return e.AttachMedia(rec, area, url)
		})
	if err != nil {
		if created {
			s.deleteBlob(ctx, key)
		}
		return domain.InspectionRecord{}, "", err
	}
	return rec, url, nil
}

// DetachMedia unlinks url from area. The blob is deleted once no area or issue
// of the record refers to it any more; identical uploads to other areas share
// one blob. A failed blob delete is logged and the record change stands.
func (s *InspectionService) DetachMedia(ctx context.Context, ref domain.RecordRef, actor, area, url string) (domain.InspectionRecord, error) {
	var attached bool
	rec, err := s.mutate(ctx, ref, actor, fmt.Sprintf("Media removed from %s", area),
		func(e *inspection.Engine, rec domain.InspectionRecord) (domain.InspectionRecord, error) {
			attached = inspection.AreaHasMedia(rec, area, url)
			return e.DetachMedia(rec, area, url)
		})
	if err != nil {
		return domain.InspectionRecord{}, err
	}
	if !attached || inspection.ReferencesMedia(rec, url) {
		return rec, nil
	}

	key, ok := s.blobs.KeyFromURL(url)
	if !ok {
		s.logger.Warn("detached media is not managed by the blob store", "url", url)
		return rec, nil
	}
	s.deleteBlob(ctx, key)
	return rec, nil
}

func (s *InspectionService) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		s.logger.Error("failed to delete media", "key", key, "error", err)
	}
}

func (s *InspectionService) AddIssue(ctx context.Context, ref domain.RecordRef, actor, area, description string) (domain.InspectionRecord, domain.Issue, error) {
	var created domain.Issue
	rec, err := s.mutate(ctx, ref, actor, fmt.Sprintf("Issue added to %s", area),
		func(e *inspection.Engine, rec domain.InspectionRecord) (domain.InspectionRecord, error) {
			out, issue, err := e.AddIssue(rec, area, description)
			created = issue
			return out, err
		})
	if err != nil {
		return domain.InspectionRecord{}, domain.Issue{}, err
	}
	return rec, created, nil
}

func (s *InspectionService) SetIssueStatus(ctx context.Context, ref domain.RecordRef, actor, issueID, status string) (domain.InspectionRecord, error) {
	return s.mutate(ctx, ref, actor, fmt.Sprintf("Issue %s set to %s", issueID, status),
		func(e *inspection.Engine, rec domain.InspectionRecord) (domain.InspectionRecord, error) {
			return e.SetIssueStatus(rec, issueID, status)
		})
}

// ListIssues returns the record's issues filtered by status label (or "all")
// and sorted by key. A missing record has no issues.
func (s *InspectionService) ListIssues(ctx context.Context, ref domain.RecordRef, status string, key inspection.SortKey) ([]domain.Issue, error) {
	engine, err := s.engine(ref.Trade)
	if err != nil {
		return nil, err
	}
	if status != "" && status != inspection.FilterAll && !engine.Trade().HasIssueStatus(status) {
		return nil, fmt.Errorf("%w: %q", inspection.ErrInvalidStatus, status)
	}

	rec, _, err := s.load(ctx, ref, engine)
	if err != nil {
		return nil, err
	}
	return inspection.SortIssues(inspection.FilterIssues(rec.Issues, status), key), nil
}

// BuildingStatuses returns the status of every apartment of a building for one
// trade. Apartments without a saved record are NotChecked.
func (s *InspectionService) BuildingStatuses(ctx context.Context, projectID, trade, building string) (map[string]domain.ApartmentStatus, error) {
	if _, err := s.engine(trade); err != nil {
		return nil, err
	}
	project, err := loadProject(ctx, s.docs, projectID)
	if err != nil {
		return nil, err
	}
	b, ok := project.Building(building)
	if !ok {
		return nil, fmt.Errorf("%w: building %q", ErrNotFound, building)
	}

	saved, err := s.loadStatuses(ctx, projectID, trade, building)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.ApartmentStatus, b.Apartments)
	for _, apt := range b.ApartmentNumbers() {
		status, ok := saved[apt]
		if !ok {
			status = domain.NotChecked
		}
		out[apt] = status
	}
	return out, nil
}

// AnalyzePhoto asks the vision backend for defects visible in an image. The
// findings are suggestions only and are not saved.
func (s *InspectionService) AnalyzePhoto(ctx context.Context, ref domain.RecordRef, area, mimeType string, data []byte) (*vision.Analysis, error) {
	if s.analyzer == nil {
		return nil, ErrAnalysisUnavailable
	}
	engine, err := s.engine(ref.Trade)
	if err != nil {
		return nil, err
	}
	if !hasArea(engine.Trade(), area) {
		return nil, fmt.Errorf("%w: area %q", inspection.ErrNotFound, area)
	}
	if !blobstore.IsImage(mimeType) {
		return nil, fmt.Errorf("%w: %s", blobstore.ErrUnsupportedType, mimeType)
	}

	result, err := s.analyzer.Analyze(ctx, bytes.NewReader(data), mimeType, engine.Trade().Title, area)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze photo: %w", err)
	}
	s.logger.Info("photo analyzed", "trade", ref.Trade, "area", area, "findings", len(result.Findings))
	return result, nil
}

type recordOp func(*inspection.Engine, domain.InspectionRecord) (domain.InspectionRecord, error)

// mutate runs op against the current record and persists the result: the
// record first, then the building's status summary. The two writes are
// independent; a concurrent editor can interleave between them.
func (s *InspectionService) mutate(ctx context.Context, ref domain.RecordRef, actor, action string, op recordOp) (domain.InspectionRecord, error) {
	engine, err := s.engine(ref.Trade)
	if err != nil {
		return domain.InspectionRecord{}, err
	}
	project, err := s.checkLocation(ctx, ref)
	if err != nil {
		return domain.InspectionRecord{}, err
	}

	rec, _, err := s.load(ctx, ref, engine)
	if err != nil {
		return domain.InspectionRecord{}, err
	}
	saved, err := s.loadStatuses(ctx, ref.ProjectID, ref.Trade, ref.Building)
	if err != nil {
		return domain.InspectionRecord{}, err
	}
	previous, ok := saved[ref.Apartment]
	if !ok {
		previous = domain.NotChecked
	}

	next, err := op(engine, rec)
	if err != nil {
		return domain.InspectionRecord{}, err
	}

	if err := s.saveRecord(ctx, ref, next); err != nil {
		return domain.InspectionRecord{}, err
	}
	current := engine.Aggregate(next)
	if err := s.saveStatus(ctx, ref, current); err != nil {
		return domain.InspectionRecord{}, err
	}

	s.logger.Info("inspection updated", "project_id", ref.ProjectID, "building", ref.Building,
		"apartment", ref.Apartment, "trade", ref.Trade, "action", action, "status", current)

	if _, err := s.workLogs.Add(ctx, domain.WorkLog{
		ProjectID:   ref.ProjectID,
		ProjectName: project.SiteName,
		Technician:  actor,
		Date:        s.now().UTC(),
		Description: fmt.Sprintf("Building %s, apartment %s: %s", ref.Building, ref.Apartment, action),
		Type:        ref.Trade,
		Status:      string(current),
	}); err != nil {
		s.logger.Error("failed to write work log", "project_id", ref.ProjectID, "error", err)
	}

	if current != previous {
		change := notify.StatusChange{Ref: ref, Previous: previous, Current: current, ChangedBy: actor, ChangedAt: s.now().UTC()}
		if err := s.publisher.Publish(ctx, change); err != nil {
			s.logger.Error("failed to publish status change", "project_id", ref.ProjectID, "apartment", ref.Apartment, "error", err)
		}
	}
	return next, nil
}

// checkLocation verifies that the project exists and has the building and
// apartment.
func (s *InspectionService) checkLocation(ctx context.Context, ref domain.RecordRef) (domain.Project, error) {
	project, err := loadProject(ctx, s.docs, ref.ProjectID)
	if err != nil {
		return domain.Project{}, err
	}
	building, ok := project.Building(ref.Building)
	if !ok {
		return domain.Project{}, fmt.Errorf("%w: building %q", ErrNotFound, ref.Building)
	}
	if _, err := recordPath(ref); err != nil {
		return domain.Project{}, err
	}
	if !slices.Contains(building.ApartmentNumbers(), ref.Apartment) {
		return domain.Project{}, fmt.Errorf("%w: apartment %q in building %q", ErrNotFound, ref.Apartment, ref.Building)
	}
	return project, nil
}

// load returns the stored record, or a freshly seeded one and false.
func (s *InspectionService) load(ctx context.Context, ref domain.RecordRef, engine *inspection.Engine) (domain.InspectionRecord, bool, error) {
	path, err := recordPath(ref)
	if err != nil {
		return domain.InspectionRecord{}, false, err
	}
	snap, err := s.docs.Get(ctx, path)
	if errors.Is(err, docstore.ErrNotFound) {
		return engine.NewRecord(), false, nil
	}
	if err != nil {
		return domain.InspectionRecord{}, false, fmt.Errorf("failed to load inspection record: %w", err)
	}
	rec, err := docstore.DecodeRecord(snap.Data)
	if err != nil {
		return domain.InspectionRecord{}, false, fmt.Errorf("failed to decode inspection record %s: %w", path, err)
	}
	return rec, true, nil
}

func (s *InspectionService) saveRecord(ctx context.Context, ref domain.RecordRef, rec domain.InspectionRecord) error {
	path, err := recordPath(ref)
	if err != nil {
		return err
	}
	data, err := docstore.EncodeRecord(rec)
	if err != nil {
		return err
	}
	if err := s.docs.Set(ctx, path, data, true); err != nil {
		return fmt.Errorf("failed to save inspection record: %w", err)
	}
	return nil
}

func (s *InspectionService) saveStatus(ctx context.Context, ref domain.RecordRef, status domain.ApartmentStatus) error {
	path, err := statusPath(ref.ProjectID, ref.Trade, ref.Building)
	if err != nil {
		return err
	}
	if err := s.docs.Set(ctx, path, map[string]any{ref.Apartment: string(status)}, true); err != nil {
		return fmt.Errorf("failed to save apartment status: %w", err)
	}
	return nil
}

func (s *InspectionService) loadStatuses(ctx context.Context, projectID, trade, building string) (map[string]domain.ApartmentStatus, error) {
	path, err := statusPath(projectID, trade, building)
	if err != nil {
		return nil, err
	}
	snap, err := s.docs.Get(ctx, path)
	if errors.Is(err, docstore.ErrNotFound) {
		return map[string]domain.ApartmentStatus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load apartment statuses: %w", err)
	}
	return docstore.DecodeStatuses(snap.Data), nil
}

func hasArea(t domain.Trade, area string) bool {
	for _, a := range t.Areas {
		if a == area {
			return true
		}
	}
	return false
}
