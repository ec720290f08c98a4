package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/grindflow-app/grindflow-api/internal/core/pipeline"
)

const defaultGenerateEndpoint = "https://generativelanguage.googleapis.com/v1/models"

// GeminiHTTP is the fallback transport: a raw POST against the versioned
// generateContent endpoint with the API key as a query parameter. It hits the
// same logical model as the SDK but avoids the SDK's transport entirely, which
// in practice survives some outages the client library does not.
type GeminiHTTP struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewGeminiHTTP(apiKey string) *GeminiHTTP {
	return &GeminiHTTP{
		APIKey:  apiKey,
		BaseURL: defaultGenerateEndpoint,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Role  string         `json:"role"`
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate folds the system instruction into a single user-role message; the
// v1 REST shape has no separate system slot.
func (g *GeminiHTTP) Generate(ctx context.Context, model, system, user string) (string, error) {
	payload := generateRequest{
		Contents: []generateContent{
			{Role: "user", Parts: []generatePart{{Text: system + "\n\n" + user}}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", g.BaseURL, model, url.QueryEscape(g.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini http: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// The body carries the upstream error text; the invoker classifies it.
		return "", fmt.Errorf("gemini http %d: %s", resp.StatusCode, raw)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

var _ pipeline.ModelTransport = (*GeminiHTTP)(nil)
