package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"edubot/internal/model"
	"edubot/internal/repository"
	"edubot/pkg/cache"
	"edubot/pkg/events"
	"edubot/pkg/log"
)

// MaxListedTranscripts 是单个用户列表的条数上限。
const MaxListedTranscripts = 20

// SaveRequest 携带一个会话累积的完整历史。
type SaveRequest struct {
	SessionID string
	UserID    string
	Messages  []model.Turn
	Title     string
	// Extra 保存服务端未建模的客户端字段，原样存储。
	Extra map[string]interface{}
}

// TranscriptService 定义了会话记录的业务操作。
type TranscriptService interface {
	// Save 按 session id 写入或覆盖，存储的消息与 req.Messages 完全一致。
	Save(ctx context.Context, req SaveRequest) (*model.Transcript, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Transcript, error)
	Get(ctx context.Context, id string) (*model.Transcript, error)
	Delete(ctx context.Context, id string) error
	Rename(ctx context.Context, id, title string) (*model.Transcript, error)
}

type transcriptService struct {
	repo      repository.TranscriptRepository
	userRepo  repository.UserRepository
	publisher events.Publisher
	cache     cache.Cache
	botID     string
	now       func() time.Time
}

// NewTranscriptService 创建一个新的 TranscriptService 实例。
func NewTranscriptService(repo repository.TranscriptRepository, userRepo repository.UserRepository, publisher events.Publisher, c cache.Cache, botID string) TranscriptService {
	return &transcriptService{
		repo:      repo,
		userRepo:  userRepo,
		publisher: publisher,
		cache:     c,
		botID:     botID,
		now:       time.Now,
	}
}

func (s *transcriptService) Save(ctx context.Context, req SaveRequest) (*model.Transcript, error) {
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: sessionId and userId are required", ErrValidation)
	}
	if req.Messages == nil {
		return nil, fmt.Errorf("%w: messages must be a list", ErrValidation)
	}
	if err := validateTurns(req.Messages); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	title := strings.TrimSpace(req.Title)
	rec := &model.Transcript{
		SessionID:    req.SessionID,
		UserID:       req.UserID,
		BotID:        s.botID,
		Title:        title,
		StartTime:    now,
		EndTime:      &now,
		Messages:     req.Messages,
		MessageCount: len(req.Messages),
		Extra:        req.Extra,
		LoggedAt:     now,
	}
	if rec.Title == "" {
		rec.Title = model.DefaultTitle
	}

	saved, err := s.repo.Upsert(ctx, rec, title != "")
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Touch(ctx, req.UserID, now); err != nil {
		log.Warnf("Failed to record user %s: %v", req.UserID, err)
	}
	s.invalidateStats(ctx)
	publish(ctx, s.publisher, events.Event{
		Type:         events.TranscriptSaved,
		TranscriptID: saved.ID,
		SessionID:    saved.SessionID,
		UserID:       saved.UserID,
		BotID:        saved.BotID,
		MessageCount: saved.MessageCount,
	})
	return saved, nil
}

func (s *transcriptService) ListByUser(ctx context.Context, userID string, limit int) ([]model.Transcript, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if limit <= 0 || limit > MaxListedTranscripts {
		limit = MaxListedTranscripts
	}
	list, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Transcript{}
	}
	return list, nil
}

func (s *transcriptService) Get(ctx context.Context, id string) (*model.Transcript, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *transcriptService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	s.invalidateStats(ctx)
	publish(ctx, s.publisher, events.Event{
		Type:         events.TranscriptDeleted,
		TranscriptID: deleted.ID,
		SessionID:    deleted.SessionID,
		UserID:       deleted.UserID,
		BotID:        deleted.BotID,
	})
	return nil
}

func (s *transcriptService) Rename(ctx context.Context, id, title string) (*model.Transcript, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: titulo must not be empty", ErrValidation)
	}
	updated, err := s.repo.UpdateTitle(ctx, id, title)
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	publish(ctx, s.publisher, events.Event{
		Type:         events.TranscriptRenamed,
		TranscriptID: updated.ID,
		SessionID:    updated.SessionID,
		UserID:       updated.UserID,
		BotID:        updated.BotID,
	})
	return updated, nil
}

// invalidateStats 删除管理端统计缓存，下次读取时重新聚合。
func (s *transcriptService) invalidateStats(ctx context.Context) {
	if err := s.cache.Delete(ctx, statsCacheKey); err != nil {
		log.Warnf("Failed to invalidate admin stats: %v", err)
	}
}
