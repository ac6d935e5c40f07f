package llm

import (
	"context"
	"errors"
	"iter"
	"testing"

	"edubot/internal/config"
	"edubot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
	reply       string
	chunks      []string
	err         error
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func (f *fakeModels) GenerateContent(_ context.Context, m string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel, f.gotContents, f.gotConfig = m, contents, cfg
	if f.err != nil {
		return nil, f.err
	}
	return textResponse(f.reply), nil
}

func (f *fakeModels) GenerateContentStream(_ context.Context, m string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.gotModel, f.gotContents, f.gotConfig = m, contents, cfg
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range f.chunks {
			if !yield(textResponse(c), nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func TestSendConvertsHistoryAndAppendsPrompt(t *testing.T) {
	fake := &fakeModels{reply: "Olá!"}
	c := newGeminiClient(fake, config.GeminiConfig{Model: "gemini-test"})

	history := []model.Turn{model.NewTurn(model.RoleUser, "instrução"), model.NewTurn(model.RoleModel, "ok")}
	out, err := c.Send(context.Background(), history, "oi")
	require.NoError(t, err)
	assert.Equal(t, "Olá!", out)

	assert.Equal(t, "gemini-test", fake.gotModel)
	require.Len(t, fake.gotContents, 3)
	assert.Equal(t, string(genai.RoleUser), fake.gotContents[0].Role)
	assert.Equal(t, string(genai.RoleModel), fake.gotContents[1].Role)
	assert.Equal(t, "oi", fake.gotContents[2].Parts[0].Text)
	assert.Nil(t, fake.gotConfig)
}

func TestSendWrapsProviderError(t *testing.T) {
	boom := errors.New("quota exceeded")
	c := newGeminiClient(&fakeModels{err: boom}, config.GeminiConfig{})
	_, err := c.Send(context.Background(), nil, "oi")
	assert.ErrorIs(t, err, boom)
}

func TestSendEmptyResponse(t *testing.T) {
	c := newGeminiClient(&fakeModels{reply: ""}, config.GeminiConfig{})
	_, err := c.Send(context.Background(), nil, "oi")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestStreamForwardsChunks(t *testing.T) {
	fake := &fakeModels{chunks: []string{"Fo", "tos", "síntese"}}
	c := newGeminiClient(fake, config.GeminiConfig{})

	var got []string
	full, err := c.Stream(context.Background(), nil, "o que é?", func(s string) error {
		got = append(got, s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Fotossíntese", full)
	assert.Equal(t, []string{"Fo", "tos", "síntese"}, got)
}

func TestStreamStopsOnProviderError(t *testing.T) {
	boom := errors.New("stream broken")
	c := newGeminiClient(&fakeModels{chunks: []string{"a"}, err: boom}, config.GeminiConfig{})
	_, err := c.Stream(context.Background(), nil, "x", nil)
	assert.ErrorIs(t, err, boom)
}

func TestSummarizeUsesFixedInstruction(t *testing.T) {
	fake := &fakeModels{reply: "  Fotossíntese nas plantas \n"}
	c := newGeminiClient(fake, config.GeminiConfig{})

	title, err := c.Summarize(context.Background(), "Usuário: o que é fotossíntese")
	require.NoError(t, err)
	assert.Equal(t, "Fotossíntese nas plantas", title)
	require.Len(t, fake.gotContents, 1)
	assert.Contains(t, fake.gotContents[0].Parts[0].Text, SummaryInstruction)
	assert.Contains(t, fake.gotContents[0].Parts[0].Text, "Usuário: o que é fotossíntese")
}

func TestGenerationConfig(t *testing.T) {
	assert.Nil(t, generationConfig(config.GeminiConfig{}))

	gc := generationConfig(config.GeminiConfig{Temperature: 0.5, TopP: 0.9, MaxOutputTokens: 256})
	require.NotNil(t, gc)
	assert.InDelta(t, 0.5, *gc.Temperature, 1e-6)
	assert.InDelta(t, 0.9, *gc.TopP, 1e-6)
	assert.Equal(t, int32(256), gc.MaxOutputTokens)
}
