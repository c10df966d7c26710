package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.5-flash"

// GeminiProvider wraps the official genai client
type GeminiProvider struct {
	cli    *genai.Client
	config Config
	model  string
}

// NewGeminiProvider creates a Gemini API provider
func NewGeminiProvider(ctx context.Context, config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or GOOGLE_API_KEY)")
	}

	cc := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(config, 60*time.Second),
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = geminiDefaultModel
	}
	return &GeminiProvider{cli: cli, config: config, model: model}, nil
}

// Name returns the provider name
func (g *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the configured model
func (g *GeminiProvider) Model() string {
	return g.model
}

// IsAvailable checks that the configured model can be resolved
func (g *GeminiProvider) IsAvailable(ctx context.Context) bool {
	if _, err := g.cli.Models.Get(ctx, g.model, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Gemini API check failed: %v\n", err)
		return false
	}
	return true
}

// Generate asks for application/json output and returns the first candidate's text
func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0.3)
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
			ResponseMIMEType:  "application/json",
			Temperature:       &temperature,
			MaxOutputTokens:   int32(g.config.maxTokens()),
		},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in Gemini response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}
