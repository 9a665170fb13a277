package domain

import (
	"fmt"
	"strings"
	"time"
)

type AreaStatus string

const (
	AreaUnset     AreaStatus = ""
	AreaPassed    AreaStatus = "Passed"
	AreaNotPassed AreaStatus = "Not Passed"
)

// ApartmentStatus is the dashboard value of one apartment for one trade.
type ApartmentStatus string

const (
	NotChecked  ApartmentStatus = "not_checked"
	IssuesFound ApartmentStatus = "issues_found"
	AllClear    ApartmentStatus = "all_clear"
)

type Area struct {
	Name    string     `json:"name"`
	Status  AreaStatus `json:"status"`
	Remarks []string   `json:"remarks"`
	Media   []string   `json:"media"`
}

type Issue struct {
	ID          string    `json:"id"`
	Area        string    `json:"area"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	DateAdded   time.Time `json:"dateAdded"`
	Remarks     []string  `json:"remarks"`
	Media       []string  `json:"media"`
}

// InspectionRecord holds one trade's areas and issues for one apartment.
type InspectionRecord struct {
	Areas  []Area  `json:"areas"`
	Issues []Issue `json:"issues"`
}

// Clone returns a deep copy so callers can mutate the result freely.
func (r InspectionRecord) Clone() InspectionRecord {
	out := InspectionRecord{
		Areas:  make([]Area, len(r.Areas)),
		Issues: make([]Issue, len(r.Issues)),
	}
	for i, a := range r.Areas {
		a.Remarks = cloneStrings(a.Remarks)
		a.Media = cloneStrings(a.Media)
		out.Areas[i] = a
	}
	for i, is := range r.Issues {
		is.Remarks = cloneStrings(is.Remarks)
		is.Media = cloneStrings(is.Media)
		out.Issues[i] = is
	}
	return out
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// RecordRef addresses one inspection record.
type RecordRef struct {
	ProjectID string `json:"projectId"`
	Building  string `json:"building"`
	Apartment string `json:"apartment"`
	Trade     string `json:"trade"`
}

// Trade is the per-trade configuration of the inspection engine.
type Trade struct {
	Name               string   `yaml:"name" json:"name"`
	Title              string   `yaml:"title" json:"title"`
	Areas              []string `yaml:"areas" json:"areas"`
	IssueStatuses      []string `yaml:"issueStatuses" json:"issueStatuses"`
	DefaultIssueStatus string   `yaml:"defaultIssueStatus" json:"defaultIssueStatus"`
	ResolvedStatus     string   `yaml:"resolvedStatus" json:"resolvedStatus"`
}

func (t Trade) HasIssueStatus(status string) bool {
	for _, s := range t.IssueStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Building struct {
	Number     string `json:"number"`
	Apartments int    `json:"apartments"`
}

// ApartmentNumbers lists the building's apartments as two-digit numbers
// starting at "01".
func (b Building) ApartmentNumbers() []string {
	out := make([]string, 0, max(b.Apartments, 0))
	for i := 1; i <= b.Apartments; i++ {
		out = append(out, fmt.Sprintf("%02d", i))
	}
	return out
}

type Project struct {
	ID                  string     `json:"id"`
	SiteName            string     `json:"siteName"`
	SiteAddress         string     `json:"siteAddress"`
	ProjectManager      string     `json:"projectManager"`
	ProjectManagerPhone string     `json:"projectManagerPhone"`
	ProjectManagerEmail string     `json:"projectManagerEmail"`
	Buildings           []Building `json:"buildings"`
	ProjectTypes        []string   `json:"projectTypes"`
}

func (p Project) Building(number string) (Building, bool) {
	for _, b := range p.Buildings {
		if b.Number == number {
			return b, true
		}
	}
	return Building{}, false
}

type WorkLog struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	ProjectName string    `json:"projectName"`
	Technician  string    `json:"technician"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
}

// ProjectStats is the reporter's per-project issue count.
type ProjectStats struct {
	ProjectID     string `json:"projectId"`
	SiteName      string `json:"siteName"`
	TotalIssues   int    `json:"totalIssues"`
	FixedIssues   int    `json:"fixedIssues"`
	PendingIssues int    `json:"pendingIssues"`
}

// IssueRow flattens one issue with its location for reports and exports.
type IssueRow struct {
	RecordRef
	Issue Issue `json:"issue"`
}

// StageFile is a document or recording uploaded to a common plumbing stage.
type StageFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type PlumbingStage struct {
	Name  string      `json:"name"`
	Files []StageFile `json:"files"`
}

// IsVideo reports whether the stage collects video recordings rather than
// documents.
func (s PlumbingStage) IsVideo() bool {
	return strings.Contains(s.Name, "Video")
}

// CommonPlumbing tracks the building-wide plumbing works of a project through
// a fixed sequence of stages.
type CommonPlumbing struct {
	Stages []PlumbingStage `json:"stages"`
	// CurrentStage is derived on load and not stored.
	CurrentStage int `json:"currentStage"`
}

// PlumbingStageNames is the fixed order of the common plumbing workflow.
var PlumbingStageNames = []string{
	"initialVideoRecording",
	"initialReport",
	"initialQuotation",
	"finalQuotation",
	"quotationApproval",
	"additionalVideoRecording",
	"finalReport",
	"suggestionsRemarks",
}

// StageIndex returns the position of the named stage, or -1.
func (c CommonPlumbing) StageIndex(name string) int {
	for i, s := range c.Stages {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// ActiveStage is the first stage without files, or the last stage once every
// stage has at least one.
func (c CommonPlumbing) ActiveStage() int {
	for i, s := range c.Stages {
		if len(s.Files) == 0 {
			return i
		}
	}
	return max(len(c.Stages)-1, 0)
}

type ReportStatus string

const (
	ReportDraft     ReportStatus = "draft"
	ReportSubmitted ReportStatus = "submitted"
	ReportApproved  ReportStatus = "approved"
)

type HardwareItem struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// WorkReport is one technician's communication works report for a project.
type WorkReport struct {
	ID             string         `json:"id"`
	ProjectID      string         `json:"projectId"`
	Description    string         `json:"description"`
	TechnicianID   string         `json:"technicianId"`
	TechnicianName string         `json:"technicianName"`
	Timestamp      time.Time      `json:"timestamp"`
	Hardware       []HardwareItem `json:"hardware"`
	Photos         []string       `json:"photos"`
	Status         ReportStatus   `json:"status"`
}
