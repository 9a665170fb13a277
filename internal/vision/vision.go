package vision

import (
	"context"
	"fmt"
	"io"
)

const promptTemplate = `You are assisting a %s inspector on a residential construction site.
The photo shows the "%s" area of an apartment. List every visible defect.
For each defect provide: a short description, severity (low, medium or high),
and any relevant notes. Respond in plain text, one defect per line,
format: defect | severity | notes
If nothing is wrong, respond with an empty message.`

// BuildPrompt renders the shared prompt for one trade and area.
func BuildPrompt(trade, area string) string {
	return fmt.Sprintf(promptTemplate, trade, area)
}

// Analyzer suggests defects visible in an evidence photo. Suggestions are
// returned to the inspector and never written to a record automatically.
type Analyzer interface {
	Analyze(ctx context.Context, r io.Reader, mimeType, trade, area string) (*Analysis, error)
}

type Analysis struct {
	Findings    []Finding `json:"findings"`
	RawResponse string    `json:"-"`
}

type Finding struct {
	Defect   string `json:"defect"`
	Severity string `json:"severity,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Remark renders the finding as remark text an inspector can accept as is.
func (f Finding) Remark() string {
	s := f.Defect
	if f.Severity != "" {
		s += " (" + f.Severity + ")"
	}
	if f.Notes != "" {
		s += ": " + f.Notes
	}
	return s
}
