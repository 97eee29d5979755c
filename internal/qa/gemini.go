package qa

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiGenerator implements Generator with the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Name() string {
	return "gemini"
}

func (g *GeminiGenerator) GenerateStream(ctx context.Context, p Prompt, onChunk func(string) error) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
	}

	var answer strings.Builder
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, geminiContents(p), cfg) {
		if err != nil {
			return answer.String(), err
		}
		text := resp.Text()
		if text == "" {
			continue
		}
		answer.WriteString(text)
		if onChunk != nil {
			if err := onChunk(text); err != nil {
				return answer.String(), err
			}
		}
	}
	return answer.String(), nil
}

// geminiContents lays out the dataset, prior turns and the question as chat contents.
// Gemini names the assistant role "model".
func geminiContents(p Prompt) []*genai.Content {
	contents := make([]*genai.Content, 0, len(p.History)+2)
	contents = append(contents, genai.NewContentFromText(p.Context, genai.RoleUser))
	for _, t := range p.History {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		var role genai.Role = genai.RoleUser
		if t.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	contents = append(contents, genai.NewContentFromText("User question: "+p.Question, genai.RoleUser))
	return contents
}
