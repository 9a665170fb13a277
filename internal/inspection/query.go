package inspection

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vbonduro/sitecheck/internal/domain"
)

// FilterAll disables status filtering.
const FilterAll = "all"

type SortKey string

const (
	SortNone SortKey = ""
	SortArea SortKey = "area"
	SortDate SortKey = "date"
)

func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortNone:
		return SortNone, nil
	case SortArea:
		return SortArea, nil
	case SortDate:
		return SortDate, nil
	}
	return SortNone, fmt.Errorf("%w: unknown sort %q", ErrValidation, s)
}

// FilterIssues keeps issues whose status equals status, in their original order.
// An empty status or FilterAll returns a copy of the whole list.
func FilterIssues(issues []domain.Issue, status string) []domain.Issue {
	if status == "" || status == FilterAll {
		return slices.Clone(issues)
	}
	out := make([]domain.Issue, 0, len(issues))
	for _, is := range issues {
		if is.Status == status {
			out = append(out, is)
		}
	}
	return out
}

// SortIssues returns a stably sorted copy: by area name ascending or by
// DateAdded newest first.
func SortIssues(issues []domain.Issue, key SortKey) []domain.Issue {
	out := slices.Clone(issues)
	switch key {
	case SortArea:
		slices.SortStableFunc(out, func(a, b domain.Issue) int {
			return strings.Compare(a.Area, b.Area)
		})
	case SortDate:
		slices.SortStableFunc(out, func(a, b domain.Issue) int {
			return b.DateAdded.Compare(a.DateAdded)
		})
	}
	return out
}
