package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/sitecheck/internal/domain"
)

func TestIssuesWorkbook(t *testing.T) {
	rows := []domain.IssueRow{
		{
			RecordRef: domain.RecordRef{ProjectID: "p1", Building: "1", Apartment: "4", Trade: "plumbing"},
			Issue: domain.Issue{
				ID: "i1", Area: "Kitchen", Description: "Issue in Kitchen", Status: "Custom",
				DateAdded: time.Date(2024, 4, 2, 10, 30, 0, 0, time.UTC),
				Remarks:   []string{"leaking trap", "replace seal"},
				Media:     []string{"http://x/media/a.jpg"},
			},
		},
		{
			RecordRef: domain.RecordRef{ProjectID: "p1", Building: "2", Apartment: "7", Trade: "electrical"},
			Issue:     domain.Issue{ID: "i2", Area: "Hallway", Description: "Issue in Hallway", Status: "Fixed"},
		},
	}

	data, err := IssuesWorkbook(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, []string{issuesSheet}, f.GetSheetList())

	got, err := f.GetRows(issuesSheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, issueHeaders, got[0])
	assert.Equal(t, []string{"1", "4", "plumbing", "Kitchen", "Issue in Kitchen", "Custom", "2024-04-02 10:30",
		"leaking trap\nreplace seal", "http://x/media/a.jpg"}, got[1])
	assert.Equal(t, "Fixed", got[2][5])
}

func TestIssuesWorkbookEmpty(t *testing.T) {
	data, err := IssuesWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	got, err := f.GetRows(issuesSheet)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestWorkReportWorkbook(t *testing.T) {
	r := domain.WorkReport{
		ID:             "p1_u1",
		Description:    "Pulled fiber to the cabinet",
		TechnicianName: "Dana",
		Timestamp:      time.Date(2024, 5, 6, 14, 0, 0, 0, time.UTC),
		Hardware:       []domain.HardwareItem{{Item: "RJ45 jack", Quantity: 4}},
		Photos:         []string{"http://x/media/c.jpg"},
		Status:         domain.ReportSubmitted,
	}

	data, err := WorkReportWorkbook(r, "Harbor Towers")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.Equal(t, []string{reportSheet}, f.GetSheetList())
	got, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, got, 12)
	assert.Equal(t, []string{"Project", "Harbor Towers"}, got[0])
	assert.Equal(t, []string{"Date", "2024-05-06 14:00"}, got[1])
	assert.Equal(t, []string{"Status", "submitted"}, got[3])
	assert.Equal(t, []string{"Item", "Quantity"}, got[7])
	assert.Equal(t, []string{"RJ45 jack", "4"}, got[8])
	assert.Equal(t, []string{"http://x/media/c.jpg"}, got[11])
}
