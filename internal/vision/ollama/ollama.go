package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vbonduro/sitecheck/internal/vision"
)

// generateTimeout allows for local models that are slow on CPU.
const generateTimeout = 2 * time.Minute

type Analyzer struct {
	http  *resty.Client
	model string
}

func NewAnalyzer(host, model string) *Analyzer {
	http := resty.New().
		SetBaseURL(strings.TrimRight(host, "/")).
		SetTimeout(generateTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Analyzer{http: http, model: model}
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (a *Analyzer) Analyze(ctx context.Context, r io.Reader, mimeType, trade, area string) (*vision.Analysis, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(imageData) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	var out generateResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetBody(generateRequest{
			Model:  a.model,
			Prompt: vision.BuildPrompt(trade, area),
			Images: []string{base64.StdEncoding.EncodeToString(imageData)},
		}).
		SetResult(&out).
		Post("/api/generate")
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode())
	}

	return &vision.Analysis{
		Findings:    vision.ParseFindings(out.Response),
		RawResponse: out.Response,
	}, nil
}
