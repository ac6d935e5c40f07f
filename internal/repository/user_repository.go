package repository

import (
	"context"
	"time"

	"edubot/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 接口定义了用户数据的持久化操作。
type UserRepository interface {
	// Touch 首次出现时创建用户，之后刷新 LastSeenAt。
	Touch(ctx context.Context, userID string, seenAt time.Time) error
	FindByUserID(ctx context.Context, userID string) (*model.User, error)
	Count(ctx context.Context) (int64, error)
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Touch(ctx context.Context, userID string, seenAt time.Time) error {
	user := &model.User{
		UserID:     userID,
		Username:   model.DefaultUsername,
		LastSeenAt: seenAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen_at", "updated_at"}),
	}).Create(user).Error
}

// FindByUserID 根据浏览器生成的 userId 查找用户。
func (r *userRepository) FindByUserID(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, err
}
