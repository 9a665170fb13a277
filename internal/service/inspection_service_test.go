package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/sitecheck/internal/blobstore"
	"github.com/vbonduro/sitecheck/internal/docstore"
	"github.com/vbonduro/sitecheck/internal/domain"
	"github.com/vbonduro/sitecheck/internal/inspection"
	"github.com/vbonduro/sitecheck/internal/vision"
)

type inspectionFixture struct {
	svc       *InspectionService
	docs      docstore.Store
	blobs     *stubBlobStore
	publisher *recordingPublisher
	workLogs  *WorkLogService
	project   domain.Project
	ref       domain.RecordRef
}

func newInspectionFixture(t *testing.T, analyzer vision.Analyzer) *inspectionFixture {
	t.Helper()
	docs := newTestDocs(t)
	return newInspectionFixtureWithDocs(t, docs, analyzer)
}

func newInspectionFixtureWithDocs(t *testing.T, docs docstore.Store, analyzer vision.Analyzer) *inspectionFixture {
	t.Helper()
	reg := testTrades(t)
	project := seedProject(t, docs, reg)

	f := &inspectionFixture{
		docs:      docs,
		blobs:     newStubBlobStore(),
		publisher: &recordingPublisher{},
		workLogs:  NewWorkLogService(docs, testLogger()),
		project:   project,
		ref:       domain.RecordRef{ProjectID: project.ID, Building: "1", Apartment: "02", Trade: "plumbing"},
	}
	n := 0
	f.svc = NewInspectionService(docs, f.blobs, reg, f.workLogs, f.publisher, analyzer, testLogger(),
		inspection.WithIDGenerator(func() string {
			n++
			return "issue-" + string(rune('0'+n))
		}),
		inspection.WithClock(func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }),
	)
	return f
}

func TestGetRecordSeedsAndPersists(t *testing.T) {
	f := newInspectionFixture(t, nil)
	ctx := context.Background()

	rec, err := f.svc.GetRecord(ctx, f.ref)
	require.NoError(t, err)
	require.Len(t, rec.Areas, 10)
	assert.Equal(t, "Main Bathroom", rec.Areas[0].Name)
	assert.Empty(t, rec.Issues)

	path, err := recordPath(f.ref)
	require.NoError(t, err)
	_, err = f.docs.Get(ctx, path)
	require.NoError(t, err, "first open saves the seeded record")

	statuses, err := f.svc.BuildingStatuses(ctx, f.ref.ProjectID, "plumbing", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.NotChecked, statuses["02"], "seeding does not set a status")
}

func TestGetRecordUnknownLocation(t *testing.T) {
	f := newInspectionFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.GetRecord(ctx, domain.RecordRef{ProjectID: "missing", Building: "1", Apartment: "01", Trade: "plumbing"})
	assert.ErrorIs(t, err, ErrNotFound)

	ref := f.ref
	ref.Building = "9"
	_, err = f.svc.GetRecord(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)

	ref = f.ref
	ref.Trade = "roofing"
	_, err = f.svc.GetRecord(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)

	ref = f.ref
	ref.Apartment = "04"
	_, err = f.svc.GetRecord(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)

	ref = f.ref
	ref.Apartment = "a/b"
	_, err = f.svc.GetRecord(ctx, ref)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNotPassedCreatesIssueAndStatus(t *testing.T) {
	f := newInspectionFixture(t, nil)
	ctx := context.Background()

	rec, err := f.svc.AddRemark(ctx, f.ref, "tech@site.co", "Kitchen", "dripping tap")
	require.NoError(t, err)
	assert.Empty(t, rec.Issues)

	rec, err = f.svc.SetAreaStatus(ctx, f.ref, "tech@site.co", "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)
	require.Len(t, rec.Issues, 1)
	issue := rec.Issues[0]
	assert.Equal(t, "Issue in Kitchen", issue.Description)
	assert.Equal(t, "Custom", issue.Status)
	assert.Equal(t, []string{"dripping tap"}, issue.Remarks)

	again, err := f.svc.SetAreaStatus(ctx, f.ref, "tech@site.co", "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)
	assert.Len(t, again.Issues, 1, "marking Not Passed twice keeps one issue")

	statuses, err := f.svc.BuildingStatuses(ctx, f.ref.ProjectID, "plumbing", "1")
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.ApartmentStatus{
		"01": domain.NotChecked,
		"02": domain.IssuesFound,
		"03": domain.NotChecked,
	}, statuses)

	stored, err := f.svc.GetRecord(ctx, f.ref)
	require.NoError(t, err)
	assert.Equal(t, again, stored)
}

func TestStatusChangesArePublished(t *testing.T) {
	f := newInspectionFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.AddRemark(ctx, f.ref, "tech@site.co", "Kitchen", "checked")
	require.NoError(t, err)
	_, err = f.svc.SetAreaStatus(ctx, f.ref, "tech@site.co", "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)
	_, err = f.svc.AddRemark(ctx, f.ref, "tech@site.co", "Kitchen", "still leaking")
	require.NoError(t, err)
	rec, err := f.svc.GetRecord(ctx, f.ref)
	require.NoError(t, err)
	_, err = f.svc.SetIssueStatus(ctx, f.ref, "lead@site.co", rec.Issues[0].ID, "Fixed")
	require.NoError(t, err)

	require.Len(t, f.publisher.changes, 3)
	assert.Equal(t, domain.NotChecked, f.publisher.changes[0].Previous)
	assert.Equal(t, domain.AllClear, f.publisher.changes[0].Current)
	assert.Equal(t, domain.IssuesFound, f.publisher.changes[1].Current)
	assert.Equal(t, domain.AllClear, f.publisher.changes[2].Current)
	assert.Equal(t, "lead@site.co", f.publisher.changes[2].ChangedBy)
	assert.Equal(t, f.ref, f.publisher.changes[2].Ref)
}

func TestMutationsWriteWorkLogs(t *testing.T) {
	f := newInspectionFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SetAreaStatus(ctx, f.ref, "tech@site.co", "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)

	logs, err := f.workLogs.List(ctx, WorkLogFilter{ProjectID: f.ref.ProjectID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "tech@site.co", logs[0].Technician)
	assert.Equal(t, "Harbor Towers", logs[0].ProjectName)
	assert.Equal(t, "plumbing", logs[0].Type)
	assert.Equal(t, string(domain.IssuesFound), logs[0].Status)
	assert.Contains(t, logs[0].Description, "Kitchen marked Not Passed")
}

func TestEngineErrorsLeaveStoreUntouched(t *testing.T) {
	f := newInspectionFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SetAreaStatus(ctx, f.ref, "tech@site.co", "Attic", domain.AreaNotPassed)
	assert.ErrorIs(t, err, inspection.ErrNotFound)

	_, err = f.svc.SetAreaStatus(ctx, f.ref, "tech@site.co", "Kitchen", "Maybe")
	assert.ErrorIs(t, err, inspection.ErrValidation)

	_, err = f.svc.AddRemark(ctx, f.ref, "tech@site.co", "Kitchen", "   ")
	assert.ErrorIs(t, err, inspection.ErrValidation)

	_, err = f.svc.SetIssueStatus(ctx, f.ref, "tech@site.co", "nope", "Fixed")
	assert.ErrorIs(t, err, inspection.ErrNotFound)

	path, err := recordPath(f.ref)
	require.NoError(t, err)
	_, err = f.docs.Get(ctx, path)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.Empty(t, f.publisher.changes)
}

func TestPassedRemovesDerivedIssues(t *testing.T) {
	f := newInspectionFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SetAreaStatus(ctx, f.ref, "tech@site.co", "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)
	rec, err := f.svc.SetAreaStatus(ctx, f.ref, "tech@site.co", "Kitchen", domain.AreaPassed)
	require.NoError(t, err)
	assert.Empty(t, rec.Issues)

	statuses, err := f.svc.BuildingStatuses(ctx, f.ref.ProjectID, "plumbing", "1")
	require.NoError(t, err)
	assert.Equal(t, domain.AllClear, statuses["02"])
}

func TestAttachAndDetachMedia(t *testing.T) {
	f := newInspectionFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SetAreaStatus(ctx, f.ref, "tech@site.co", "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)

	rec, url, err := f.svc.AttachMedia(ctx, f.ref, "tech@site.co", "Kitchen", "image/jpeg", []byte("photo"))
	require.NoError(t, err)
	assert.Equal(t, "http://media.test/media/projects/"+f.ref.ProjectID+"/buildings/1/apartments/02/plumbing/photo.jpg", url)
	assert.Equal(t, []string{url}, rec.Areas[1].Media)
	assert.Equal(t, []string{url}, rec.Issues[0].Media)

	rec, err = f.svc.DetachMedia(ctx, f.ref, "tech@site.co", "Kitchen", url)
	require.NoError(t, err)
	assert.Empty(t, rec.Areas[1].Media)
	assert.Empty(t, rec.Issues[0].Media)
	assert.Empty(t, f.blobs.saved, "blob is deleted after detach")
}

func TestAttachMediaRejectsUnsupportedType(t *testing.T) {
	f := newInspectionFixture(t, nil)

	_, _, err := f.svc.AttachMedia(context.Background(), f.ref, "tech@site.co", "Kitchen", "application/pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, blobstore.ErrUnsupportedType)
	assert.Empty(t, f.blobs.saved)
}

func TestAttachMediaUploadFailureLeavesRecordUntouched(t *testing.T) {
	f := newInspectionFixture(t, nil)
	ctx := context.Background()
	f.blobs.uploadErr = assert.AnError

	_, _, err := f.svc.AttachMedia(ctx, f.ref, "tech@site.co", "Kitchen", "image/png", []byte("png"))
	assert.ErrorIs(t, err, assert.AnError)

	path, err := recordPath(f.ref)
	require.NoError(t, err)
	_, err = f.docs.Get(ctx, path)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestAttachMediaUnknownAreaRemovesBlob(t *testing.T) {
	f := newInspectionFixture(t, nil)

	_, _, err := f.svc.AttachMedia(context.Background(), f.ref, "tech@site.co", "Attic", "image/png", []byte("png"))
	assert.ErrorIs(t, err, inspection.ErrNotFound)
	assert.Empty(t, f.blobs.saved)
	assert.Len(t, f.blobs.deleted, 1)
}

func TestAttachMediaSaveFailureRemovesBlob(t *testing.T) {
	docs := &failingStore{Store: newTestDocs(t)}
	f := newInspectionFixtureWithDocs(t, docs, nil)
	docs.failOn = "/inspection"

	_, _, err := f.svc.AttachMedia(context.Background(), f.ref, "tech@site.co", "Kitchen", "image/png", []byte("png"))
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, f.blobs.saved)
}

func TestDetachSharedMediaKeepsBlob(t *testing.T) {
	f := newInspectionFixture(t, nil)
	ctx := context.Background()
	photo := []byte("same photo")

	_, kitchenURL, err := f.svc.AttachMedia(ctx, f.ref, "tech@site.co", "Kitchen", "image/jpeg", photo)
	require.NoError(t, err)
	_, bathURL, err := f.svc.AttachMedia(ctx, f.ref, "tech@site.co", "Main Bathroom", "image/jpeg", photo)
	require.NoError(t, err)
	require.Equal(t, kitchenURL, bathURL)
	key, ok := f.blobs.KeyFromURL(kitchenURL)
	require.True(t, ok)

	rec, err := f.svc.DetachMedia(ctx, f.ref, "tech@site.co", "Kitchen", kitchenURL)
	require.NoError(t, err)
	assert.Equal(t, []string{bathURL}, rec.Areas[0].Media)
	_, _, err = f.blobs.Open(ctx, key)
	require.NoError(t, err, "Main Bathroom still refers to the blob")

	_, err = f.svc.DetachMedia(ctx, f.ref, "tech@site.co", "Main Bathroom", bathURL)
	require.NoError(t, err)
	_, _, err = f.blobs.Open(ctx, key)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestFailedAttachKeepsExistingBlob(t *testing.T) {
	f := newInspectionFixture(t, nil)
	ctx := context.Background()
	photo := []byte("kitchen photo")

	_, url, err := f.svc.AttachMedia(ctx, f.ref, "tech@site.co", "Kitchen", "image/jpeg", photo)
	require.NoError(t, err)

	_, _, err = f.svc.AttachMedia(ctx, f.ref, "tech@site.co", "Attic", "image/jpeg", photo)
	assert.ErrorIs(t, err, inspection.ErrNotFound)

	key, _ := f.blobs.KeyFromURL(url)
	_, _, err = f.blobs.Open(ctx, key)
	assert.NoError(t, err)
	assert.Empty(t, f.blobs.deleted)
}

func TestDetachUnattachedMediaKeepsBlob(t *testing.T) {
	f := newInspectionFixture(t, nil)
	ctx := context.Background()

	_, url, err := f.svc.AttachMedia(ctx, f.ref, "tech@site.co", "Kitchen", "image/jpeg", []byte("kitchen photo"))
	require.NoError(t, err)

	rec, err := f.svc.DetachMedia(ctx, f.ref, "tech@site.co", "Laundry Area", url)
	require.NoError(t, err)
	assert.Equal(t, []string{url}, rec.Areas[1].Media)

	key, _ := f.blobs.KeyFromURL(url)
	_, _, err = f.blobs.Open(ctx, key)
	assert.NoError(t, err)
	assert.Empty(t, f.blobs.deleted)
}

func TestAddIssueAndListIssues(t *testing.T) {
	f := newInspectionFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SetAreaStatus(ctx, f.ref, "tech@site.co", "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)
	_, issue, err := f.svc.AddIssue(ctx, f.ref, "tech@site.co", "Laundry Area", "Drain slope wrong")
	require.NoError(t, err)
	assert.Equal(t, "Drain slope wrong", issue.Description)
	_, err = f.svc.SetIssueStatus(ctx, f.ref, "tech@site.co", issue.ID, "Fixed")
	require.NoError(t, err)

	all, err := f.svc.ListIssues(ctx, f.ref, inspection.FilterAll, inspection.SortArea)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Kitchen", all[0].Area)
	assert.Equal(t, "Laundry Area", all[1].Area)

	fixed, err := f.svc.ListIssues(ctx, f.ref, "Fixed", inspection.SortNone)
	require.NoError(t, err)
	require.Len(t, fixed, 1)
	assert.Equal(t, issue.ID, fixed[0].ID)

	_, err = f.svc.ListIssues(ctx, f.ref, "Pending", inspection.SortNone)
	assert.ErrorIs(t, err, inspection.ErrInvalidStatus)
}

func TestListIssuesWithoutRecord(t *testing.T) {
	f := newInspectionFixture(t, nil)

	issues, err := f.svc.ListIssues(context.Background(), f.ref, "", inspection.SortDate)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestBuildingStatusesUnknownBuilding(t *testing.T) {
	f := newInspectionFixture(t, nil)

	_, err := f.svc.BuildingStatuses(context.Background(), f.ref.ProjectID, "plumbing", "7")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnalyzePhoto(t *testing.T) {
	analyzer := &stubVision{result: &vision.Analysis{Findings: []vision.Finding{{Defect: "Leak", Severity: "high"}}}}
	f := newInspectionFixture(t, analyzer)
	ctx := context.Background()

	result, err := f.svc.AnalyzePhoto(ctx, f.ref, "Kitchen", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Len(t, result.Findings, 1)
	assert.Equal(t, "Plumbing", analyzer.gotTrade)
	assert.Equal(t, "Kitchen", analyzer.gotArea)

	_, err = f.svc.AnalyzePhoto(ctx, f.ref, "Kitchen", "video/mp4", []byte("mp4"))
	assert.ErrorIs(t, err, blobstore.ErrUnsupportedType)

	_, err = f.svc.AnalyzePhoto(ctx, f.ref, "Attic", "image/png", []byte("png"))
	assert.ErrorIs(t, err, inspection.ErrNotFound)

	rec, err := f.svc.GetRecord(ctx, f.ref)
	require.NoError(t, err)
	assert.Empty(t, rec.Areas[1].Remarks, "suggestions are never applied")
}

func TestAnalyzePhotoWithoutBackend(t *testing.T) {
	f := newInspectionFixture(t, nil)

	_, err := f.svc.AnalyzePhoto(context.Background(), f.ref, "Kitchen", "image/png", []byte("png"))
	assert.ErrorIs(t, err, ErrAnalysisUnavailable)
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	f := newInspectionFixture(t, nil)
	f.publisher.err = assert.AnError

	_, err := f.svc.SetAreaStatus(context.Background(), f.ref, "tech@site.co", "Kitchen", domain.AreaNotPassed)
	assert.NoError(t, err)
}
