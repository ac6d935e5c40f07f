package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"edubot/internal/config"
	"edubot/internal/model"
	"edubot/internal/repository"
	"edubot/pkg/cache"
	"edubot/pkg/database"
	"edubot/pkg/events"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

// fakeLLM records what it was asked and answers from fixed values.
type fakeLLM struct {
	mu         sync.Mutex
	reply      string
	chunks     []string
	summary    string
	err        error
	histories  [][]model.Turn
	prompts    []string
	summarized []string
}

func (f *fakeLLM) Send(_ context.Context, history []model.Turn, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories = append(f.histories, history)
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Stream(ctx context.Context, history []model.Turn, prompt string, onChunk func(string) error) (string, error) {
	if _, err := f.Send(ctx, history, prompt); err != nil {
		return "", err
	}
	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return "", err
		}
	}
	return strings.Join(f.chunks, ""), nil
}

func (f *fakeLLM) Summarize(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summarized = append(f.summarized, text)
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	db           *gorm.DB
	transcripts  repository.TranscriptRepository
	instrRepo    repository.SystemInstructionRepository
	users        repository.UserRepository
	publisher    *recordingPublisher
	instructions InstructionService
	llm          *fakeLLM
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	f := &fixture{
		db:          db,
		transcripts: repository.NewTranscriptRepository(db),
		instrRepo:   repository.NewSystemInstructionRepository(db),
		users:       repository.NewUserRepository(db),
		publisher:   &recordingPublisher{},
		llm:         &fakeLLM{reply: "resposta", summary: "Título"},
	}
	f.instructions = NewInstructionService(f.instrRepo, cache.NewMemory(), f.publisher, config.DefaultInstruction, 0)
	return f
}

func userTurn(text string) model.Turn {
	return model.Turn{Role: model.RoleUser, Parts: []model.Part{{Text: text}}}
}

func modelTurn(text string) model.Turn {
	return model.Turn{Role: model.RoleModel, Parts: []model.Part{{Text: text}}}
}
