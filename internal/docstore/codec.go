package docstore

import (
	"encoding/json"
	"fmt"

	"github.com/vbonduro/sitecheck/internal/domain"
)

// The encoders below are the only place where domain timestamps are converted
// to their stored form.

func EncodeRecord(rec domain.InspectionRecord) (map[string]any, error) {
	data, err := toMap(rec)
	if err != nil {
		return nil, err
	}
	issues, _ := data["issues"].([]any)
	for i, raw := range issues {
		if m, ok := raw.(map[string]any); ok {
			m["dateAdded"] = FormatTime(rec.Issues[i].DateAdded)
		}
	}
	return data, nil
}

func DecodeRecord(data map[string]any) (domain.InspectionRecord, error) {
	var rec domain.InspectionRecord
	issues, _ := data["issues"].([]any)
	normalized := make([]any, len(issues))
	for i, raw := range issues {
		m, ok := raw.(map[string]any)
		if !ok {
			return rec, fmt.Errorf("issue %d is not an object", i)
		}
		m = Merge(m, nil)
		ts, err := ParseTime(m["dateAdded"])
		if err != nil {
			return rec, fmt.Errorf("issue %d: %w", i, err)
		}
		m["dateAdded"] = FormatTime(ts)
		normalized[i] = m
	}
	data = Merge(data, map[string]any{"issues": normalized})
	if err := fromMap(data, &rec); err != nil {
		return rec, err
	}
	if rec.Issues == nil {
		rec.Issues = []domain.Issue{}
	}
	for i := range rec.Areas {
		if rec.Areas[i].Remarks == nil {
			rec.Areas[i].Remarks = []string{}
		}
		if rec.Areas[i].Media == nil {
			rec.Areas[i].Media = []string{}
		}
	}
	for i := range rec.Issues {
		if rec.Issues[i].Remarks == nil {
			rec.Issues[i].Remarks = []string{}
		}
		if rec.Issues[i].Media == nil {
			rec.Issues[i].Media = []string{}
		}
	}
	return rec, nil
}

func EncodeProject(p domain.Project) (map[string]any, error) {
	data, err := toMap(p)
	if err != nil {
		return nil, err
	}
	delete(data, "id")
	return data, nil
}

func DecodeProject(snap *Snapshot) (domain.Project, error) {
	var p domain.Project
	if err := fromMap(snap.Data, &p); err != nil {
		return p, err
	}
	p.ID = snap.ID
	return p, nil
}

func EncodeWorkLog(l domain.WorkLog) (map[string]any, error) {
	data, err := toMap(l)
	if err != nil {
		return nil, err
	}
	delete(data, "id")
	data["date"] = FormatTime(l.Date)
	return data, nil
}

func DecodeWorkLog(snap *Snapshot) (domain.WorkLog, error) {
	var l domain.WorkLog
	ts, err := ParseTime(snap.Data["date"])
	if err != nil {
		return l, err
	}
	data := Merge(snap.Data, map[string]any{"date": FormatTime(ts)})
	if err := fromMap(data, &l); err != nil {
		return l, err
	}
	l.ID = snap.ID
	return l, nil
}

func EncodeCommonPlumbing(c domain.CommonPlumbing) (map[string]any, error) {
	data, err := toMap(c)
	if err != nil {
		return nil, err
	}
	delete(data, "currentStage")
	return data, nil
}

func DecodeCommonPlumbing(data map[string]any) (domain.CommonPlumbing, error) {
	var c domain.CommonPlumbing
	if err := fromMap(data, &c); err != nil {
		return c, err
	}
	for i := range c.Stages {
		if c.Stages[i].Files == nil {
			c.Stages[i].Files = []domain.StageFile{}
		}
	}
	c.CurrentStage = c.ActiveStage()
	return c, nil
}

func EncodeWorkReport(r domain.WorkReport) (map[string]any, error) {
	data, err := toMap(r)
	if err != nil {
		return nil, err
	}
	delete(data, "id")
	data["timestamp"] = FormatTime(r.Timestamp)
	return data, nil
}

func DecodeWorkReport(snap *Snapshot) (domain.WorkReport, error) {
	var r domain.WorkReport
	ts, err := ParseTime(snap.Data["timestamp"])
	if err != nil {
		return r, err
	}
	data := Merge(snap.Data, map[string]any{"timestamp": FormatTime(ts)})
	if err := fromMap(data, &r); err != nil {
		return r, err
	}
	r.ID = snap.ID
	if r.Hardware == nil {
		r.Hardware = []domain.HardwareItem{}
	}
	if r.Photos == nil {
		r.Photos = []string{}
	}
	return r, nil
}

// DecodeStatuses reads an apartment status summary document.
func DecodeStatuses(data map[string]any) map[string]domain.ApartmentStatus {
	out := make(map[string]domain.ApartmentStatus, len(data))
	for apt, v := range data {
		if s, ok := v.(string); ok {
			out[apt] = domain.ApartmentStatus(s)
		}
	}
	return out
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return out, nil
}

func fromMap(data map[string]any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}
