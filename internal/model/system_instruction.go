package model

import "time"

// SystemInstruction is one version of a bot's steering text. Updates append a new active
// row and deactivate the previous ones, so history is kept.
type SystemInstruction struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"_id"`
	BotID       string    `gorm:"type:varchar(128);index:idx_instruction_bot_active,priority:1;not null" json:"botId"`
	Instruction string    `gorm:"type:text;not null" json:"instruction"`
	UpdatedBy   string    `gorm:"type:varchar(128);not null;default:'admin'" json:"updatedBy"`
	IsActive    bool      `gorm:"index:idx_instruction_bot_active,priority:2;not null;default:false" json:"isActive"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (SystemInstruction) TableName() string {
	return "system_instructions"
}
