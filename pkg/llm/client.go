// Package llm provides a client for the Gemini generative model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"edubot/internal/config"
	"edubot/internal/model"

	"google.golang.org/genai"
)

// Client defines the interface for the provider adapter. Any returned error is terminal
// for the request that triggered it; the client does not retry.
type Client interface {
	// Send relays history followed by prompt and returns the generated text.
	Send(ctx context.Context, history []model.Turn, prompt string) (string, error)
	// Stream is Send with every generated chunk forwarded to onChunk as it arrives.
	Stream(ctx context.Context, history []model.Turn, prompt string, onChunk func(string) error) (string, error)
	// Summarize asks for a short title (at most five words) for transcriptText.
	Summarize(ctx context.Context, transcriptText string) (string, error)
}

// SummaryInstruction is the fixed instruction placed before a rendered transcript.
const SummaryInstruction = "Crie um título curto e descritivo, com no máximo 5 palavras, para a conversa abaixo. " +
	"Responda apenas com o título, sem aspas e sem pontuação final."

// ErrEmptyResponse is returned when the model produced no text at all.
var ErrEmptyResponse = errors.New("model returned an empty response")

// generator is the subset of *genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

type geminiClient struct {
	models generator
	model  string
	gen    *genai.GenerateContentConfig
}

// NewClient creates a Gemini client from the configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGeminiClient(client.Models, cfg), nil
}

func newGeminiClient(models generator, cfg config.GeminiConfig) *geminiClient {
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &geminiClient{models: models, model: modelName, gen: generationConfig(cfg)}
}

// generationConfig maps non-zero configured parameters; zero means "provider default".
func generationConfig(cfg config.GeminiConfig) *genai.GenerateContentConfig {
	var gc genai.GenerateContentConfig
	set := false
	if cfg.Temperature != 0 {
		gc.Temperature = genai.Ptr(float32(cfg.Temperature))
		set = true
	}
	if cfg.TopP != 0 {
		gc.TopP = genai.Ptr(float32(cfg.TopP))
		set = true
	}
	if cfg.MaxOutputTokens != 0 {
		gc.MaxOutputTokens = int32(cfg.MaxOutputTokens)
		set = true
	}
	if !set {
		return nil
	}
	return &gc
}

// toContents converts turns into genai contents and appends prompt as the final user turn.
func toContents(history []model.Turn, prompt string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		var role genai.Role = genai.RoleUser
		if turn.Role == model.RoleModel {
			role = genai.RoleModel
		}
		parts := make([]*genai.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			parts = append(parts, genai.NewPartFromText(p.Text))
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
	return contents
}

func (c *geminiClient) Send(ctx context.Context, history []model.Turn, prompt string) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, toContents(history, prompt), c.gen)
	if err != nil {
		return "", fmt.Errorf("failed to call gemini: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *geminiClient) Stream(ctx context.Context, history []model.Turn, prompt string, onChunk func(string) error) (string, error) {
	var full strings.Builder
	for resp, err := range c.models.GenerateContentStream(ctx, c.model, toContents(history, prompt), c.gen) {
		if err != nil {
			return "", fmt.Errorf("failed to read gemini stream: %w", err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return "", fmt.Errorf("failed to forward chunk: %w", err)
			}
		}
	}
	if full.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return full.String(), nil
}

func (c *geminiClient) Summarize(ctx context.Context, transcriptText string) (string, error) {
	prompt := SummaryInstruction + "\n\n" + transcriptText
	resp, err := c.models.GenerateContent(ctx, c.model, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, c.gen)
	if err != nil {
		return "", fmt.Errorf("failed to summarize with gemini: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
