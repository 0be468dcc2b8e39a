// Package gemini provides the generative chat collaborator backed by the
// Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/trialscope/trialscope/internal/domain"
	chatuc "github.com/trialscope/trialscope/internal/usecase/chat"
)

// Compile-time check: Generator implements chat.Generator.
var _ chatuc.Generator = (*Generator)(nil)

// Config holds generation settings applied to every model.
type Config struct {
	APIKey          string
	MaxOutputTokens int32
	Temperature     float32
	TopP            float32
}

// Generator produces chat completions via the Gemini API. Sessions are owned
// by the chat use case; each call replays the accumulated history.
type Generator struct {
	client *genai.Client
	cfg    Config
}

// New creates a Gemini generator.
func New(ctx context.Context, cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Generator{client: client, cfg: cfg}, nil
}

// Generate implements chat.Generator.
func (g *Generator) Generate(
	ctx context.Context, model, system string, history []chatuc.Turn, query string,
) (string, error) {
	gm := g.client.GenerativeModel(model)
	gm.SetMaxOutputTokens(g.cfg.MaxOutputTokens)
	gm.SetTemperature(g.cfg.Temperature)
	gm.SetTopP(g.cfg.TopP)
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := gm.StartChat()
	cs.History = historyToContents(history)

	resp, err := cs.SendMessage(ctx, genai.Text(query))
	if err != nil {
		return "", fmt.Errorf("send message to %s: %w: %w", model, domain.ErrGenerationFailed, err)
	}

	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("empty response from %s: %w", model, domain.ErrGenerationFailed)
	}
	return text, nil
}

// Close releases the underlying client.
func (g *Generator) Close() error {
	if err := g.client.Close(); err != nil {
		return fmt.Errorf("close genai client: %w", err)
	}
	return nil
}

func historyToContents(history []chatuc.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		contents = append(contents, &genai.Content{
			Role:  turn.Role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}
	return contents
}

// responseText concatenates text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}
