package repository

import (
	"context"

	"edubot/internal/model"

	"gorm.io/gorm"
)

// SystemInstructionRepository 存储每个机器人带版本的 system instruction。
type SystemInstructionRepository interface {
	// FindActive 返回 botID 最新的生效指令。
	FindActive(ctx context.Context, botID string) (*model.SystemInstruction, error)
	Create(ctx context.Context, si *model.SystemInstruction) error
	// ReplaceActive 在同一事务中停用 si.BotID 的所有指令并插入 si 作为唯一生效版本。
	ReplaceActive(ctx context.Context, si *model.SystemInstruction) error
	// ListByBot 按时间倒序返回最多 limit 个版本。
	ListByBot(ctx context.Context, botID string, limit int) ([]model.SystemInstruction, error)
	CountActive(ctx context.Context, botID string) (int64, error)
}

type systemInstructionRepository struct {
	db *gorm.DB
}

// NewSystemInstructionRepository 创建一个新的 SystemInstructionRepository 实例。
func NewSystemInstructionRepository(db *gorm.DB) SystemInstructionRepository {
	return &systemInstructionRepository{db: db}
}

func (r *systemInstructionRepository) FindActive(ctx context.Context, botID string) (*model.SystemInstruction, error) {
	var si model.SystemInstruction
	err := r.db.WithContext(ctx).
		Where("bot_id = ? AND is_active = ?", botID, true).
		Order("created_at DESC").Order("id DESC").
		First(&si).Error
	if err != nil {
		return nil, translate(err)
	}
	return &si, nil
}

func (r *systemInstructionRepository) Create(ctx context.Context, si *model.SystemInstruction) error {
	return r.db.WithContext(ctx).Create(si).Error
}

func (r *systemInstructionRepository) ReplaceActive(ctx context.Context, si *model.SystemInstruction) error {
	si.IsActive = true
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.SystemInstruction{}).
			Where("bot_id = ? AND is_active = ?", si.BotID, true).
			Update("is_active", false).Error
		if err != nil {
			return err
		}
		return tx.Create(si).Error
	})
}

func (r *systemInstructionRepository) ListByBot(ctx context.Context, botID string, limit int) ([]model.SystemInstruction, error) {
	var list []model.SystemInstruction
	err := r.db.WithContext(ctx).
		Where("bot_id = ?", botID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *systemInstructionRepository) CountActive(ctx context.Context, botID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.SystemInstruction{}).
		Where("bot_id = ? AND is_active = ?", botID, true).
		Count(&n).Error
	return n, err
}
