package inspection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/sitecheck/internal/domain"
)

func sampleIssues() []domain.Issue {
	day := func(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }
	return []domain.Issue{
		{ID: "a", Area: "Kitchen", Status: "Custom", DateAdded: day(2)},
		{ID: "b", Area: "Balcony", Status: "Fixed", DateAdded: day(3)},
		{ID: "c", Area: "Kitchen", Status: "Custom", DateAdded: day(3)},
		{ID: "d", Area: "Attic", Status: "Fixed", DateAdded: day(1)},
	}
}

func ids(issues []domain.Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.ID
	}
	return out
}

func TestFilterIssues(t *testing.T) {
	issues := sampleIssues()

	assert.Equal(t, []string{"a", "c"}, ids(FilterIssues(issues, "Custom")))
	assert.Equal(t, []string{"b", "d"}, ids(FilterIssues(issues, "Fixed")))
	assert.Empty(t, FilterIssues(issues, "Requires local Plumber"))
	assert.Equal(t, ids(issues), ids(FilterIssues(issues, FilterAll)))
	assert.Equal(t, ids(issues), ids(FilterIssues(issues, "")))
}

func TestSortIssuesByArea(t *testing.T) {
	sorted := SortIssues(sampleIssues(), SortArea)
	assert.Equal(t, []string{"d", "b", "a", "c"}, ids(sorted))
}

func TestSortIssuesByDateNewestFirstIsStable(t *testing.T) {
	issues := sampleIssues()
	sorted := SortIssues(issues, SortDate)

	// b and c share a timestamp and keep their insertion order.
	assert.Equal(t, []string{"b", "c", "a", "d"}, ids(sorted))
	assert.Equal(t, "a", issues[0].ID, "input must not be reordered")
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("Date")
	require.NoError(t, err)
	assert.Equal(t, SortDate, k)

	k, err = ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortNone, k)

	_, err = ParseSortKey("severity")
	assert.ErrorIs(t, err, ErrValidation)
}
