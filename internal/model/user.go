package model

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultUsername is assigned to users first seen through a saved transcript.
const DefaultUsername = "Usuário Anônimo"

// User records an anonymous browser identity. SystemInstruction is a per-user override
// kept for future use; the chat flow always steers with the bot's active instruction.
type User struct {
	ID                uint              `gorm:"primaryKey;autoIncrement" json:"_id"`
	UserID            string            `gorm:"type:varchar(128);uniqueIndex;not null" json:"userId"`
	Username          string            `gorm:"type:varchar(255);not null" json:"username"`
	SystemInstruction string            `gorm:"type:text" json:"systemInstruction"`
	Preferences       datatypes.JSONMap `json:"preferences,omitempty"`
	LastSeenAt        time.Time         `json:"lastSeenAt"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "chat_users"
}
