package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/grindflow-app/grindflow-api/internal/core/pipeline"
)

// GeminiSDK is the primary model transport, going through the official
// client library.
type GeminiSDK struct {
	client *genai.Client
}

func NewGeminiSDK(ctx context.Context, apiKey string) (*GeminiSDK, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiSDK{client: cl}, nil
}

func (g *GeminiSDK) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiSDK) Generate(ctx context.Context, model, system, user string) (string, error) {
	m := g.client.GenerativeModel(model)
	if system != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

var _ pipeline.ModelTransport = (*GeminiSDK)(nil)
