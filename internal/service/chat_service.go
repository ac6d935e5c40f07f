package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"edubot/internal/model"
	"edubot/pkg/idgen"
	"edubot/pkg/llm"
	"edubot/pkg/log"
)

// InstructionAck 是紧跟指令轮次的模型确认回复。
const InstructionAck = "Entendido. Seguirei essas instruções em nossa conversa."

// GenerateRequest 是浏览器提交的一轮对话。
type GenerateRequest struct {
	Prompt    string       `json:"prompt"`
	History   []model.Turn `json:"historico"`
	SessionID string       `json:"sessionId"`
	UserID    string       `json:"userId"`
}

// GenerateResult 返回给浏览器，History 中不包含指令轮次。
type GenerateResult struct {
	Response  string       `json:"response"`
	History   []model.Turn `json:"historico"`
	SessionID string       `json:"sessionId"`
	UserID    string       `json:"userId"`
}

// ChatService 定义了聊天操作的接口。
type ChatService interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	// Stream 与 Generate 相同，但每个模型分片到达时都会传给 onChunk。
	Stream(ctx context.Context, req GenerateRequest, onChunk func(string) error) (*GenerateResult, error)
}

type chatService struct {
	instructions InstructionService
	llmClient    llm.Client
	botID        string
	now          func() time.Time
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(instructions InstructionService, llmClient llm.Client, botID string) ChatService {
	return &chatService{
		instructions: instructions,
		llmClient:    llmClient,
		botID:        botID,
		now:          time.Now,
	}
}

// BuildProviderHistory 在历史前插入指令（user 轮次）及模型确认。
// 客户端历史只复制，不修改。
func BuildProviderHistory(instruction string, history []model.Turn) []model.Turn {
	out := make([]model.Turn, 0, len(history)+2)
	out = append(out,
		model.Turn{Role: model.RoleUser, Parts: []model.Part{{Text: instruction}}},
		model.Turn{Role: model.RoleModel, Parts: []model.Part{{Text: InstructionAck}}},
	)
	return append(out, history...)
}

func (s *chatService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	return s.run(ctx, req, func(history []model.Turn) (string, error) {
		return s.llmClient.Send(ctx, history, req.Prompt)
	})
}

func (s *chatService) Stream(ctx context.Context, req GenerateRequest, onChunk func(string) error) (*GenerateResult, error) {
	return s.run(ctx, req, func(history []model.Turn) (string, error) {
		return s.llmClient.Stream(ctx, history, req.Prompt, onChunk)
	})
}

func (s *chatService) run(ctx context.Context, req GenerateRequest, call func([]model.Turn) (string, error)) (*GenerateResult, error) {
	if err := validateGenerateRequest(req); err != nil {
		return nil, err
	}
	if req.SessionID == "" {
		req.SessionID = idgen.NewSessionID()
	}
	if req.UserID == "" {
		req.UserID = idgen.NewUserID()
	}

	// 每次请求都读取，管理员更新后下一轮即生效
	instruction, err := s.instructions.GetActive(ctx, s.botID)
	if err != nil {
		return nil, fmt.Errorf("failed to load system instruction: %w", err)
	}

	response, err := call(BuildProviderHistory(instruction.Instruction, req.History))
	if err != nil {
		log.Errorw("AI provider call failed", "sessionId", req.SessionID, "userId", req.UserID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	now := s.now()
	history := make([]model.Turn, 0, len(req.History)+2)
	history = append(history, req.History...)
	history = append(history,
		model.Turn{Role: model.RoleUser, Parts: []model.Part{{Text: req.Prompt}}, Timestamp: now},
		model.Turn{Role: model.RoleModel, Parts: []model.Part{{Text: response}}, Timestamp: now},
	)
	return &GenerateResult{
		Response:  response,
		History:   history,
		SessionID: req.SessionID,
		UserID:    req.UserID,
	}, nil
}

func validateGenerateRequest(req GenerateRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return fmt.Errorf("%w: prompt is required", ErrValidation)
	}
	return validateTurns(req.History)
}

func validateTurns(turns []model.Turn) error {
	for i, t := range turns {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: turn %d: %v", ErrValidation, i, err)
		}
	}
	return nil
}
