package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"edubot/internal/model"
	"edubot/internal/repository"
	"edubot/pkg/cache"
	"edubot/pkg/events"
	"edubot/pkg/log"

	"golang.org/x/sync/singleflight"
)

const (
	// UpdatedBySystem 标记由默认配置生成的指令。
	UpdatedBySystem = "system"
	// UpdatedByAdmin 在更新请求未指明作者时使用。
	UpdatedByAdmin = "admin"
)

// InstructionService 管理每轮对话前置的 system instruction。
type InstructionService interface {
	// GetActive 返回机器人当前生效的指令，首次读取时创建默认指令。
	GetActive(ctx context.Context, botID string) (*model.SystemInstruction, error)
	// SetActive 将 text 设为机器人唯一生效的指令。
	SetActive(ctx context.Context, botID, text, updatedBy string) (*model.SystemInstruction, error)
	// History 按时间倒序返回历史版本。
	History(ctx context.Context, botID string, limit int) ([]model.SystemInstruction, error)
}

type instructionService struct {
	repo        repository.SystemInstructionRepository
	cache       cache.Cache
	publisher   events.Publisher
	defaultText string
	ttl         time.Duration
	// loads 合并同一机器人的并发缓存未命中
	loads singleflight.Group
}

// NewInstructionService 创建一个新的 InstructionService 实例。
func NewInstructionService(repo repository.SystemInstructionRepository, c cache.Cache, publisher events.Publisher, defaultText string, ttl time.Duration) InstructionService {
	return &instructionService{
		repo:        repo,
		cache:       c,
		publisher:   publisher,
		defaultText: defaultText,
		ttl:         ttl,
	}
}

func instructionCacheKey(botID string) string {
	return "instruction:" + botID
}

// instructionGenerationKey 保存最近一次 SetActive 写入的版本号。
func instructionGenerationKey(botID string) string {
	return "instruction:gen:" + botID
}

// GetActive 先查缓存，未命中时读库并回填缓存。
func (s *instructionService) GetActive(ctx context.Context, botID string) (*model.SystemInstruction, error) {
	var cached model.SystemInstruction
	found, err := s.cache.GetJSON(ctx, instructionCacheKey(botID), &cached)
	if err != nil {
		log.Warnf("Failed to read cached instruction for bot %s: %v", botID, err)
	} else if found {
		return &cached, nil
	}

	v, err, _ := s.loads.Do(botID, func() (interface{}, error) {
		return s.load(ctx, botID)
	})
	if err != nil {
		return nil, err
	}
	si := *v.(*model.SystemInstruction)
	return &si, nil
}

func (s *instructionService) load(ctx context.Context, botID string) (*model.SystemInstruction, error) {
	gen, genOK := s.generation(ctx, botID)

	si, err := s.repo.FindActive(ctx, botID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Infof("No active instruction for bot %s, creating the default one", botID)
		def := &model.SystemInstruction{
			BotID:       botID,
			Instruction: s.defaultText,
			UpdatedBy:   UpdatedBySystem,
			IsActive:    true,
		}
		if err := s.repo.Create(ctx, def); err != nil {
			return nil, fmt.Errorf("failed to create default instruction: %w", err)
		}
		// 重新读取，使其他实例的并发首读收敛到同一行
		si, err = s.repo.FindActive(ctx, botID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active instruction: %w", err)
	}

	if genOK {
		s.fill(ctx, botID, gen, si)
	}
	return si, nil
}

// generation 读取版本号；ok 为 false 时不应回填缓存。
func (s *instructionService) generation(ctx context.Context, botID string) (string, bool) {
	var gen string
	if _, err := s.cache.GetJSON(ctx, instructionGenerationKey(botID), &gen); err != nil {
		log.Warnf("Failed to read instruction generation for bot %s: %v", botID, err)
		return "", false
	}
	return gen, true
}

// fill 回填缓存。若读库期间有 SetActive 提交（版本号已变），撤销这次回填。
// SetActive 先写版本号再删缓存，因此回填之后的任何提交都会被其自身的删除覆盖。
func (s *instructionService) fill(ctx context.Context, botID, gen string, si *model.SystemInstruction) {
	key := instructionCacheKey(botID)
	if err := s.cache.SetJSON(ctx, key, si, s.ttl); err != nil {
		log.Warnf("Failed to cache instruction for bot %s: %v", botID, err)
		return
	}
	if now, ok := s.generation(ctx, botID); !ok || now != gen {
		if err := s.cache.Delete(ctx, key); err != nil {
			log.Warnf("Failed to drop stale instruction for bot %s: %v", botID, err)
		}
	}
}

// SetActive 校验文本，替换生效指令，使缓存失效并发布事件。
func (s *instructionService) SetActive(ctx context.Context, botID, text, updatedBy string) (*model.SystemInstruction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: instruction must not be empty", ErrValidation)
	}
	if strings.TrimSpace(updatedBy) == "" {
		updatedBy = UpdatedByAdmin
	}
	si := &model.SystemInstruction{
		BotID:       botID,
		Instruction: text,
		UpdatedBy:   updatedBy,
	}
	if err := s.repo.ReplaceActive(ctx, si); err != nil {
		return nil, fmt.Errorf("failed to replace active instruction: %w", err)
	}
	if err := s.cache.SetJSON(ctx, instructionGenerationKey(botID), strconv.FormatUint(uint64(si.ID), 10), 0); err != nil {
		log.Warnf("Failed to bump instruction generation for bot %s: %v", botID, err)
	}
	if err := s.cache.Delete(ctx, instructionCacheKey(botID)); err != nil {
		log.Warnf("Failed to invalidate cached instruction for bot %s: %v", botID, err)
	}
	publish(ctx, s.publisher, events.Event{Type: events.InstructionUpdated, BotID: botID})
	log.Infow("System instruction updated", "botId", botID, "updatedBy", updatedBy, "id", si.ID)
	return si, nil
}

// History 返回最多 limit 条历史版本（默认与上限均为 50）。
func (s *instructionService) History(ctx context.Context, botID string, limit int) ([]model.SystemInstruction, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	return s.repo.ListByBot(ctx, botID, limit)
}

// publish 尽力投递事件，失败只记录日志，不影响调用方。
func publish(ctx context.Context, p events.Publisher, ev events.Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Warnw("Failed to publish event", "type", ev.Type, "error", err)
	}
}
