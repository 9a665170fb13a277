package inspection

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/sitecheck/internal/domain"
)

var plumbing = domain.Trade{
	Name:               "plumbing",
	Areas:              []string{"Kitchen", "Main Bathroom", "Laundry Area"},
	IssueStatuses:      []string{"Custom", "Requires local Plumber", "Problem in Common Plumbing", "Fixed"},
	DefaultIssueStatus: "Custom",
	ResolvedStatus:     "Fixed",
}

// newTestEngine returns an engine with sequential ids and a clock that advances
// one minute per issue.
func newTestEngine() *Engine {
	n := 0
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return New(plumbing,
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("issue-%d", n)
		}),
		WithClock(func() time.Time {
			return base.Add(time.Duration(n) * time.Minute)
		}),
	)
}

func issuesFor(rec domain.InspectionRecord, area string) []domain.Issue {
	var out []domain.Issue
	for _, is := range rec.Issues {
		if is.Area == area {
			out = append(out, is)
		}
	}
	return out
}

func TestNewRecordSeedsTradeAreas(t *testing.T) {
	rec := newTestEngine().NewRecord()

	require.Len(t, rec.Areas, 3)
	assert.Equal(t, "Kitchen", rec.Areas[0].Name)
	assert.Equal(t, domain.AreaUnset, rec.Areas[0].Status)
	assert.NotNil(t, rec.Areas[0].Remarks)
	assert.Empty(t, rec.Issues)
	assert.NotNil(t, rec.Issues)
}

func TestSetAreaStatusNotPassedCreatesIssue(t *testing.T) {
	e := newTestEngine()
	rec, err := e.AddRemark(e.NewRecord(), "Kitchen", "leaking trap")
	require.NoError(t, err)

	rec, err = e.SetAreaStatus(rec, "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)

	require.Len(t, rec.Issues, 1)
	issue := rec.Issues[0]
	assert.Equal(t, "issue-1", issue.ID)
	assert.Equal(t, "Kitchen", issue.Area)
	assert.Equal(t, "Issue in Kitchen", issue.Description)
	assert.Equal(t, "Custom", issue.Status)
	assert.False(t, issue.DateAdded.IsZero())
	assert.Equal(t, []string{"leaking trap"}, issue.Remarks)
	assert.Equal(t, domain.AreaNotPassed, rec.Areas[0].Status)
}

func TestSetAreaStatusNotPassedTwiceIsIdempotent(t *testing.T) {
	e := newTestEngine()
	rec, err := e.SetAreaStatus(e.NewRecord(), "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)
	rec, err = e.SetIssueStatus(rec, rec.Issues[0].ID, "Requires local Plumber")
	require.NoError(t, err)

	rec, err = e.SetAreaStatus(rec, "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)

	issues := issuesFor(rec, "Kitchen")
	require.Len(t, issues, 1)
	assert.Equal(t, "Requires local Plumber", issues[0].Status, "existing issue must not be reset")
}

// Passed reversion removes the derived issue, so a NotPassed -> Passed -> NotPassed
// round trip ends with exactly one fresh issue.
func TestSetAreaStatusRoundTripLeavesOneIssue(t *testing.T) {
	e := newTestEngine()
	rec := e.NewRecord()
	var err error

	rec, err = e.SetAreaStatus(rec, "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)
	rec, err = e.SetAreaStatus(rec, "Kitchen", domain.AreaPassed)
	require.NoError(t, err)
	assert.Empty(t, issuesFor(rec, "Kitchen"))

	rec, err = e.SetAreaStatus(rec, "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)

	issues := issuesFor(rec, "Kitchen")
	require.Len(t, issues, 1)
	assert.Equal(t, "issue-2", issues[0].ID)
}

func TestSetAreaStatusPassedKeepsOtherAreasIssues(t *testing.T) {
	e := newTestEngine()
	rec := e.NewRecord()
	var err error

	rec, err = e.SetAreaStatus(rec, "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)
	rec, err = e.SetAreaStatus(rec, "Laundry Area", domain.AreaNotPassed)
	require.NoError(t, err)
	rec, err = e.SetAreaStatus(rec, "Kitchen", domain.AreaPassed)
	require.NoError(t, err)

	require.Len(t, rec.Issues, 1)
	assert.Equal(t, "Laundry Area", rec.Issues[0].Area)
}

func TestSetAreaStatusErrors(t *testing.T) {
	e := newTestEngine()
	rec := e.NewRecord()

	_, err := e.SetAreaStatus(rec, "Garage", domain.AreaNotPassed)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.SetAreaStatus(rec, "Kitchen", domain.AreaUnset)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.SetAreaStatus(rec, "Kitchen", "Maybe")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOperationsDoNotMutateInput(t *testing.T) {
	e := newTestEngine()
	rec, err := e.SetAreaStatus(e.NewRecord(), "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)

	_, err = e.AddRemark(rec, "Kitchen", "cracked tile")
	require.NoError(t, err)
	_, err = e.SetAreaStatus(rec, "Kitchen", domain.AreaPassed)
	require.NoError(t, err)

	assert.Empty(t, rec.Areas[0].Remarks)
	assert.Empty(t, rec.Issues[0].Remarks)
	assert.Len(t, rec.Issues, 1)
}

func TestAddRemarkSyncsToIssue(t *testing.T) {
	e := newTestEngine()
	rec, err := e.SetAreaStatus(e.NewRecord(), "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)

	rec, err = e.AddRemark(rec, "Kitchen", "  no slope to drain ")
	require.NoError(t, err)

	assert.Equal(t, []string{"no slope to drain"}, rec.Areas[0].Remarks)
	assert.Equal(t, []string{"no slope to drain"}, rec.Issues[0].Remarks)
}

func TestAddRemarkSuppressesDuplicates(t *testing.T) {
	e := newTestEngine()
	rec := e.NewRecord()
	var err error

	rec, err = e.AddRemark(rec, "Kitchen", "loose tap")
	require.NoError(t, err)
	rec, err = e.AddRemark(rec, "Kitchen", "loose tap")
	require.NoError(t, err)

	assert.Equal(t, []string{"loose tap"}, rec.Areas[0].Remarks)
}

func TestAddRemarkNormalizesUnicode(t *testing.T) {
	e := newTestEngine()
	rec := e.NewRecord()
	var err error

	rec, err = e.AddRemark(rec, "Kitchen", "caf\u00e9")
	require.NoError(t, err)
	rec, err = e.AddRemark(rec, "Kitchen", "cafe\u0301")
	require.NoError(t, err)

	assert.Len(t, rec.Areas[0].Remarks, 1)
}

func TestAddRemarkRejectsEmpty(t *testing.T) {
	e := newTestEngine()
	_, err := e.AddRemark(e.NewRecord(), "Kitchen", "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteRemarkRemovesFromAreaAndIssue(t *testing.T) {
	e := newTestEngine()
	rec := e.NewRecord()
	var err error

	rec, err = e.AddRemark(rec, "Kitchen", "first")
	require.NoError(t, err)
	rec, err = e.SetAreaStatus(rec, "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)
	rec, err = e.AddRemark(rec, "Kitchen", "second")
	require.NoError(t, err)

	rec, err = e.DeleteRemark(rec, "Kitchen", "first")
	require.NoError(t, err)

	assert.Equal(t, []string{"second"}, rec.Areas[0].Remarks)
	assert.Equal(t, []string{"second"}, rec.Issues[0].Remarks)

	_, err = e.DeleteRemark(rec, "Garage", "second")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemarkMatchesLegacyText(t *testing.T) {
	e := newTestEngine()
	rec := e.NewRecord()
	rec.Areas[0].Remarks = []string{" leaking trap ", "cafe\u0301 sink", "keep"}

	out, err := e.DeleteRemark(rec, "Kitchen", " leaking trap ")
	require.NoError(t, err)
	assert.Equal(t, []string{"cafe\u0301 sink", "keep"}, out.Areas[0].Remarks)

	out, err = e.DeleteRemark(out, "Kitchen", "caf\u00e9 sink")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, out.Areas[0].Remarks)

	out, err = e.DeleteRemark(rec, "Kitchen", "leaking trap")
	require.NoError(t, err)
	assert.NotContains(t, out.Areas[0].Remarks, " leaking trap ")
}

func TestMediaReferences(t *testing.T) {
	e := newTestEngine()
	url := "http://localhost:8080/media/projects/p1/a.jpg"
	rec, err := e.AttachMedia(e.NewRecord(), "Kitchen", url)
	require.NoError(t, err)
	rec, err = e.AttachMedia(rec, "Main Bathroom", url)
	require.NoError(t, err)

	assert.True(t, AreaHasMedia(rec, "Kitchen", url))
	assert.False(t, AreaHasMedia(rec, "Laundry Area", url))
	assert.False(t, AreaHasMedia(rec, "Attic", url))

	rec, err = e.DetachMedia(rec, "Kitchen", url)
	require.NoError(t, err)
	assert.True(t, ReferencesMedia(rec, url), "Main Bathroom still lists it")

	rec, err = e.DetachMedia(rec, "Main Bathroom", url)
	require.NoError(t, err)
	assert.False(t, ReferencesMedia(rec, url))
}

func TestAttachAndDetachMediaSync(t *testing.T) {
	e := newTestEngine()
	rec, err := e.SetAreaStatus(e.NewRecord(), "Main Bathroom", domain.AreaNotPassed)
	require.NoError(t, err)

	url := "http://localhost:8080/media/projects/p1/a.jpg"
	rec, err = e.AttachMedia(rec, "Main Bathroom", url)
	require.NoError(t, err)
	rec, err = e.AttachMedia(rec, "Main Bathroom", url)
	require.NoError(t, err)

	assert.Equal(t, []string{url}, rec.Areas[1].Media)
	assert.Equal(t, []string{url}, rec.Issues[0].Media)

	rec, err = e.DetachMedia(rec, "Main Bathroom", url)
	require.NoError(t, err)
	assert.Empty(t, rec.Areas[1].Media)
	assert.Empty(t, rec.Issues[0].Media)

	_, err = e.AttachMedia(rec, "Main Bathroom", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetIssueStatus(t *testing.T) {
	e := newTestEngine()
	rec, err := e.SetAreaStatus(e.NewRecord(), "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)
	id := rec.Issues[0].ID

	_, err = e.SetIssueStatus(rec, id, "Pending")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = e.SetIssueStatus(rec, "missing", "Fixed")
	assert.ErrorIs(t, err, ErrNotFound)

	rec, err = e.SetIssueStatus(rec, id, "Fixed")
	require.NoError(t, err)
	assert.Equal(t, "Fixed", rec.Issues[0].Status)
	assert.Equal(t, domain.AreaNotPassed, rec.Areas[0].Status, "area finding is independent of remediation")
}

func TestAddIssue(t *testing.T) {
	e := newTestEngine()
	rec, issue, err := e.AddIssue(e.NewRecord(), "Laundry Area", "")
	require.NoError(t, err)
	assert.Equal(t, "Issue in Laundry Area", issue.Description)
	assert.Len(t, rec.Issues, 1)

	rec, issue, err = e.AddIssue(rec, "Laundry Area", "replace valve")
	require.NoError(t, err)
	assert.Equal(t, "replace valve", issue.Description)
	assert.Len(t, rec.Issues, 2)

	_, _, err = e.AddIssue(rec, "Roof", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAggregate(t *testing.T) {
	e := newTestEngine()
	rec := e.NewRecord()
	assert.Equal(t, domain.AllClear, e.Aggregate(rec))

	rec.Issues = []domain.Issue{{ID: "1", Status: "Fixed"}}
	assert.Equal(t, domain.AllClear, e.Aggregate(rec))

	rec.Issues = append(rec.Issues, domain.Issue{ID: "2", Status: "Custom"})
	assert.Equal(t, domain.IssuesFound, e.Aggregate(rec))
}

func TestEndToEndKitchenFixed(t *testing.T) {
	e := newTestEngine()
	rec, err := e.SetAreaStatus(e.NewRecord(), "Kitchen", domain.AreaNotPassed)
	require.NoError(t, err)

	require.Len(t, rec.Issues, 1)
	assert.Equal(t, "Kitchen", rec.Issues[0].Area)
	assert.Equal(t, plumbing.DefaultIssueStatus, rec.Issues[0].Status)
	assert.Equal(t, domain.IssuesFound, e.Aggregate(rec))

	rec, err = e.SetIssueStatus(rec, rec.Issues[0].ID, "Fixed")
	require.NoError(t, err)
	assert.Equal(t, domain.AllClear, e.Aggregate(rec))
}
