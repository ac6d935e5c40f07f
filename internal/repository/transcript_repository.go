package repository

import (
	"context"
	"fmt"
	"time"

	"edubot/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TranscriptRepository 以 session id 为键持久化会话记录。
type TranscriptRepository interface {
	// Upsert 插入 rec；session id 已存在时整体替换消息。
	// Title 仅在 updateTitle 为 true 时覆盖，Extra 仅在非空时覆盖，start_time 不会被更新。
	Upsert(ctx context.Context, rec *model.Transcript, updateTitle bool) (*model.Transcript, error)
	FindBySessionID(ctx context.Context, sessionID string) (*model.Transcript, error)
	FindByID(ctx context.Context, id string) (*model.Transcript, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Transcript, error)
	DeleteByID(ctx context.Context, id string) (*model.Transcript, error)
	UpdateTitle(ctx context.Context, id, title string) (*model.Transcript, error)

	Count(ctx context.Context) (int64, error)
	SumMessages(ctx context.Context) (int64, error)
	CountDistinctUsers(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int) ([]model.TranscriptSummary, error)
	StartTimesSince(ctx context.Context, since time.Time) ([]time.Time, error)
	FindWithPagination(ctx context.Context, offset, limit int) ([]model.Transcript, int64, error)
}

type transcriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository 创建一个新的 TranscriptRepository 实例。
func NewTranscriptRepository(db *gorm.DB) TranscriptRepository {
	return &transcriptRepository{db: db}
}

func (r *transcriptRepository) Upsert(ctx context.Context, rec *model.Transcript, updateTitle bool) (*model.Transcript, error) {
	columns := []string{"messages", "message_count", "end_time", "updated_at"}
	if updateTitle {
		columns = append(columns, "title")
	}
	if len(rec.Extra) > 0 {
		columns = append(columns, "extra")
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(rec).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert transcript %s: %w", rec.SessionID, err)
	}
	return r.FindBySessionID(ctx, rec.SessionID)
}

func (r *transcriptRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.Transcript, error) {
	var t model.Transcript
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *transcriptRepository) FindByID(ctx context.Context, id string) (*model.Transcript, error) {
	pk, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	var t model.Transcript
	if err := r.db.WithContext(ctx).First(&t, pk).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *transcriptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Transcript, error) {
	var list []model.Transcript
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_time DESC").Order("id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// DeleteByID 删除会话记录并返回被删除的内容。
func (r *transcriptRepository) DeleteByID(ctx context.Context, id string) (*model.Transcript, error) {
	t, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := r.db.WithContext(ctx).Delete(&model.Transcript{}, t.ID)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// 查询与删除之间被并发删除
		return nil, ErrNotFound
	}
	return t, nil
}

func (r *transcriptRepository) UpdateTitle(ctx context.Context, id, title string) (*model.Transcript, error) {
	pk, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.Transcript{}).Where("id = ?", pk).Update("title", title).Error; err != nil {
		return nil, err
	}
	// 标题未变时 mysql 返回 0 行受影响，是否存在以重新读取的结果为准
	return r.FindByID(ctx, id)
}

func (r *transcriptRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Transcript{}).Count(&n).Error
	return n, err
}

func (r *transcriptRepository) SumMessages(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Transcript{}).
		Select("COALESCE(SUM(message_count), 0)").
		Scan(&total).Error
	return total, err
}

func (r *transcriptRepository) CountDistinctUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Transcript{}).Distinct("user_id").Count(&n).Error
	return n, err
}

func (r *transcriptRepository) Recent(ctx context.Context, limit int) ([]model.TranscriptSummary, error) {
	var list []model.TranscriptSummary
	err := r.db.WithContext(ctx).Model(&model.Transcript{}).
		Select("id", "session_id", "user_id", "title", "start_time").
		Order("start_time DESC").Order("id DESC").
		Limit(limit).
		Scan(&list).Error
	return list, err
}

func (r *transcriptRepository) StartTimesSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).Model(&model.Transcript{}).
		Where("start_time >= ?", since).
		Order("start_time ASC").
		Pluck("start_time", &times).Error
	return times, err
}

// FindWithPagination 按时间倒序返回一页会话记录及总数。
func (r *transcriptRepository) FindWithPagination(ctx context.Context, offset, limit int) ([]model.Transcript, int64, error) {
	var (
		list  []model.Transcript
		total int64
	)
	if err := r.db.WithContext(ctx).Model(&model.Transcript{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).Order("start_time DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
