package vision

import (
	"strings"
)

var preambles = []string{"Here", "I see", "Based on", "The photo", "Defects"}

// ParseLine parses one "defect | severity | notes" line. Lines without a
// pipe are treated as commentary and yield nil.
func ParseLine(line string) *Finding {
	line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
	if line == "" || !strings.Contains(line, "|") {
		return nil
	}
	for _, p := range preambles {
		if strings.HasPrefix(line, p) {
			return nil
		}
	}

	parts := strings.SplitN(line, "|", 3)
	f := &Finding{Defect: strings.TrimSpace(parts[0])}
	if f.Defect == "" {
		return nil
	}
	if len(parts) >= 2 {
		f.Severity = strings.ToLower(strings.TrimSpace(parts[1]))
	}
	if len(parts) == 3 {
		f.Notes = strings.TrimSpace(parts[2])
	}
	return f
}

// ParseFindings parses a full model response, one finding per line.
func ParseFindings(raw string) []Finding {
	findings := make([]Finding, 0)
	for _, line := range strings.Split(raw, "\n") {
		if f := ParseLine(line); f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}
