package service

import (
	"context"
	"fmt"
	"strings"

	"edubot/internal/model"
	"edubot/internal/repository"
	"edubot/pkg/llm"
)

// MaxTitleWords 是建议标题的最大词数。
const MaxTitleWords = 5

// TitleService 为已保存的会话记录生成建议标题，不做保存。
type TitleService interface {
	Suggest(ctx context.Context, id string) (string, error)
}

type titleService struct {
	repo      repository.TranscriptRepository
	llmClient llm.Client
}

// NewTitleService 创建一个新的 TitleService 实例。
func NewTitleService(repo repository.TranscriptRepository, llmClient llm.Client) TitleService {
	return &titleService{repo: repo, llmClient: llmClient}
}

func (s *titleService) Suggest(ctx context.Context, id string) (string, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	text := renderTranscript(t.Messages)
	if text == "" {
		return model.DefaultTitle, nil
	}
	raw, err := s.llmClient.Summarize(ctx, text)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProvider, err)
	}
	return sanitizeTitle(raw), nil
}

// renderTranscript 每轮输出一行 "Usuário: ..." 或 "Modelo: ..."。
func renderTranscript(turns []model.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		text := strings.TrimSpace(t.Text())
		if text == "" {
			continue
		}
		speaker := "Usuário"
		if t.Role == model.RoleModel {
			speaker = "Modelo"
		}
		lines = append(lines, speaker+": "+text)
	}
	return strings.Join(lines, "\n")
}

const titleTrimChars = " \t\r\n\"'`“”‘’«»*#"

func sanitizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.Trim(title, titleTrimChars)
	words := strings.Fields(title)
	if len(words) > MaxTitleWords {
		words = words[:MaxTitleWords]
	}
	title = strings.Join(words, " ")
	title = strings.TrimRight(title, ".,;:!?"+titleTrimChars)
	if title == "" {
		return model.DefaultTitle
	}
	return title
}
