// Package inspection derives issues and apartment status from area inspection marks.
//
// Every operation takes a record by value and returns a new record; the input is
// never modified and no I/O happens here. Persisting the result is the caller's job.
package inspection

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/vbonduro/sitecheck/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrInvalidStatus = errors.New("invalid issue status")
)

type Engine struct {
	trade domain.Trade
	now   func() time.Time
	newID func() string
}

type Option func(*Engine)

// WithClock overrides the time source used for Issue.DateAdded.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides the issue id source.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func New(trade domain.Trade, opts ...Option) *Engine {
	e := &Engine{
		trade: trade,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Trade() domain.Trade {
	return e.trade
}

// NewRecord returns a record seeded with the trade's areas and no issues.
func (e *Engine) NewRecord() domain.InspectionRecord {
	rec := domain.InspectionRecord{
		Areas:  make([]domain.Area, 0, len(e.trade.Areas)),
		Issues: []domain.Issue{},
	}
	for _, name := range e.trade.Areas {
		rec.Areas = append(rec.Areas, domain.Area{Name: name, Remarks: []string{}, Media: []string{}})
	}
	return rec
}

// SetAreaStatus records an inspection finding. Marking an area Not Passed creates
// its issue unless one already exists; marking it Passed removes the area's issues.
func (e *Engine) SetAreaStatus(rec domain.InspectionRecord, areaName string, status domain.AreaStatus) (domain.InspectionRecord, error) {
	if status != domain.AreaPassed && status != domain.AreaNotPassed {
		return rec, fmt.Errorf("%w: area status %q", ErrValidation, status)
	}
	out := rec.Clone()
	idx := findArea(out, areaName)
	if idx < 0 {
		return rec, fmt.Errorf("%w: area %q", ErrNotFound, areaName)
	}
	area := &out.Areas[idx]
	area.Status = status

	switch status {
	case domain.AreaNotPassed:
		if hasIssueFor(out, areaName) {
			return out, nil
		}
		out.Issues = append(out.Issues, e.newIssue(*area, ""))
	case domain.AreaPassed:
		kept := out.Issues[:0]
		for _, is := range out.Issues {
			if is.Area != areaName {
				kept = append(kept, is)
			}
		}
		out.Issues = kept
	}
	return out, nil
}

// AddIssue appends a manually created follow-up issue for an existing area.
func (e *Engine) AddIssue(rec domain.InspectionRecord, areaName, description string) (domain.InspectionRecord, domain.Issue, error) {
	out := rec.Clone()
	idx := findArea(out, areaName)
	if idx < 0 {
		return rec, domain.Issue{}, fmt.Errorf("%w: area %q", ErrNotFound, areaName)
	}
	issue := e.newIssue(out.Areas[idx], strings.TrimSpace(description))
	out.Issues = append(out.Issues, issue)
	return out, issue, nil
}

func (e *Engine) newIssue(area domain.Area, description string) domain.Issue {
	if description == "" {
		description = "Issue in " + area.Name
	}
	return domain.Issue{
		ID:          e.newID(),
		Area:        area.Name,
		Description: description,
		Status:      e.trade.DefaultIssueStatus,
		DateAdded:   e.now().UTC(),
		Remarks:     cloneStrings(area.Remarks),
		Media:       cloneStrings(area.Media),
	}
}

// AddRemark appends text to the area and to every issue of that area, skipping
// lists that already contain it.
func (e *Engine) AddRemark(rec domain.InspectionRecord, areaName, text string) (domain.InspectionRecord, error) {
	text, err := normalizeRemark(text)
	if err != nil {
		return rec, err
	}
	return e.syncAppend(rec, areaName, text, remarksOf, issueRemarksOf)
}

// DeleteRemark removes every occurrence of text from the area and its issues.
// Stored remarks match when they are equal to text as given or normalize to
// the same value, so entries saved with padding or in another Unicode form can
// still be removed.
func (e *Engine) DeleteRemark(rec domain.InspectionRecord, areaName, text string) (domain.InspectionRecord, error) {
	normalized, err := normalizeRemark(text)
	if err != nil {
		return rec, err
	}
	return e.syncRemove(rec, areaName, func(v string) bool {
		return v == text || norm.NFC.String(strings.TrimSpace(v)) == normalized
	}, remarksOf, issueRemarksOf)
}

// AttachMedia records an already uploaded blob URL on the area and its issues.
func (e *Engine) AttachMedia(rec domain.InspectionRecord, areaName, url string) (domain.InspectionRecord, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return rec, fmt.Errorf("%w: empty media url", ErrValidation)
	}
	return e.syncAppend(rec, areaName, url, mediaOf, issueMediaOf)
}

func (e *Engine) DetachMedia(rec domain.InspectionRecord, areaName, url string) (domain.InspectionRecord, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return rec, fmt.Errorf("%w: empty media url", ErrValidation)
	}
	return e.syncRemove(rec, areaName, func(v string) bool { return v == url }, mediaOf, issueMediaOf)
}

// AreaHasMedia reports whether url is listed on the named area.
func AreaHasMedia(rec domain.InspectionRecord, areaName, url string) bool {
	idx := findArea(rec, areaName)
	return idx >= 0 && slices.Contains(rec.Areas[idx].Media, strings.TrimSpace(url))
}

// ReferencesMedia reports whether any area or issue of rec lists url.
func ReferencesMedia(rec domain.InspectionRecord, url string) bool {
	url = strings.TrimSpace(url)
	for _, a := range rec.Areas {
		if slices.Contains(a.Media, url) {
			return true
		}
	}
	for _, is := range rec.Issues {
		if slices.Contains(is.Media, url) {
			return true
		}
	}
	return false
}

// SetIssueStatus updates remediation progress. The originating area keeps its
// inspection finding.
func (e *Engine) SetIssueStatus(rec domain.InspectionRecord, issueID, status string) (domain.InspectionRecord, error) {
	if !e.trade.HasIssueStatus(status) {
		return rec, fmt.Errorf("%w: %q is not a %s label", ErrInvalidStatus, status, e.trade.Name)
	}
	out := rec.Clone()
	for i := range out.Issues {
		if out.Issues[i].ID == issueID {
			out.Issues[i].Status = status
			return out, nil
		}
	}
	return rec, fmt.Errorf("%w: issue %q", ErrNotFound, issueID)
}

// Aggregate derives the apartment's dashboard status from its issues.
func (e *Engine) Aggregate(rec domain.InspectionRecord) domain.ApartmentStatus {
	for _, is := range rec.Issues {
		if is.Status != e.trade.ResolvedStatus {
			return domain.IssuesFound
		}
	}
	return domain.AllClear
}

type listOf func(*domain.Area) *[]string
type issueListOf func(*domain.Issue) *[]string

func remarksOf(a *domain.Area) *[]string       { return &a.Remarks }
func mediaOf(a *domain.Area) *[]string         { return &a.Media }
func issueRemarksOf(i *domain.Issue) *[]string { return &i.Remarks }
func issueMediaOf(i *domain.Issue) *[]string   { return &i.Media }

func (e *Engine) syncAppend(rec domain.InspectionRecord, areaName, value string, area listOf, issue issueListOf) (domain.InspectionRecord, error) {
	out := rec.Clone()
	idx := findArea(out, areaName)
	if idx < 0 {
		return rec, fmt.Errorf("%w: area %q", ErrNotFound, areaName)
	}
	appendUnique(area(&out.Areas[idx]), value)
	for i := range out.Issues {
		if out.Issues[i].Area == areaName {
			appendUnique(issue(&out.Issues[i]), value)
		}
	}
	return out, nil
}

func (e *Engine) syncRemove(rec domain.InspectionRecord, areaName string, match func(string) bool, area listOf, issue issueListOf) (domain.InspectionRecord, error) {
	out := rec.Clone()
	idx := findArea(out, areaName)
	if idx < 0 {
		return rec, fmt.Errorf("%w: area %q", ErrNotFound, areaName)
	}
	removeMatching(area(&out.Areas[idx]), match)
	for i := range out.Issues {
		if out.Issues[i].Area == areaName {
			removeMatching(issue(&out.Issues[i]), match)
		}
	}
	return out, nil
}

func normalizeRemark(text string) (string, error) {
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return "", fmt.Errorf("%w: empty remark", ErrValidation)
	}
	return text, nil
}

func findArea(rec domain.InspectionRecord, name string) int {
	for i := range rec.Areas {
		if rec.Areas[i].Name == name {
			return i
		}
	}
	return -1
}

func hasIssueFor(rec domain.InspectionRecord, areaName string) bool {
	for _, is := range rec.Issues {
		if is.Area == areaName {
			return true
		}
	}
	return false
}

func appendUnique(list *[]string, value string) {
	for _, v := range *list {
		if v == value {
			return
		}
	}
	*list = append(*list, value)
}

func removeMatching(list *[]string, match func(string) bool) {
	kept := make([]string, 0, len(*list))
	for _, v := range *list {
		if !match(v) {
			kept = append(kept, v)
		}
	}
	*list = kept
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
