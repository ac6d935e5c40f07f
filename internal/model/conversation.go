// Package model holds the persisted and relayed data types.
package model

import (
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Role tags who authored a turn. The provider only understands these two values.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// DefaultTitle is given to transcripts saved without a title.
const DefaultTitle = "Conversa Sem Título"

// Part is one text fragment of a turn.
type Part struct {
	Text string `json:"text"`
}

// Turn is a single role-tagged message exchanged with the model.
type Turn struct {
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
	Timestamp time.Time `json:"timestamp"`
}

var (
	errUnknownRole = errors.New("role must be \"user\" or \"model\"")
	errEmptyParts  = errors.New("parts must not be empty")
)

// NewTurn builds a single-part turn stamped with the current time.
func NewTurn(role Role, text string) Turn {
	return Turn{Role: role, Parts: []Part{{Text: text}}, Timestamp: time.Now()}
}

// Validate checks the invariants every stored or relayed turn must hold.
func (t Turn) Validate() error {
	if !t.Role.Valid() {
		return errUnknownRole
	}
	if len(t.Parts) == 0 {
		return errEmptyParts
	}
	return nil
}

// Text concatenates the turn's parts.
func (t Turn) Text() string {
	if len(t.Parts) == 1 {
		return t.Parts[0].Text
	}
	texts := make([]string, 0, len(t.Parts))
	for _, p := range t.Parts {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "")
}

// Transcript is one persisted chat session. SessionID is the upsert key; ID is the store
// identifier exposed to clients as "_id".
type Transcript struct {
	ID           uint                      `gorm:"primaryKey;autoIncrement" json:"_id"`
	SessionID    string                    `gorm:"type:varchar(128);uniqueIndex;not null" json:"sessionId"`
	BotID        string                    `gorm:"type:varchar(128);not null;default:'assistente-gemini-ifpr'" json:"botId"`
	UserID       string                    `gorm:"type:varchar(128);index;not null" json:"userId"`
	Title        string                    `gorm:"type:varchar(255);not null" json:"titulo"`
	StartTime    time.Time                 `gorm:"index;not null" json:"startTime"`
	EndTime      *time.Time                `json:"endTime,omitempty"`
	Messages     datatypes.JSONSlice[Turn] `json:"messages"`
	MessageCount int                       `gorm:"not null;default:0" json:"-"`
	Extra        datatypes.JSONMap         `json:"extra,omitempty"`
	LoggedAt     time.Time                 `json:"loggedAt"`
	CreatedAt    time.Time                 `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time                 `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Transcript) TableName() string {
	return "chat_sessions"
}

// TranscriptSummary is the reduced view shown on the admin dashboard.
type TranscriptSummary struct {
	ID        uint      `json:"_id"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Title     string    `json:"titulo"`
	StartTime time.Time `json:"startTime"`
}

// DailyCount is one bucket of the per-day activity histogram. Day is "YYYY-MM-DD".
type DailyCount struct {
	Day   string `json:"_id"`
	Count int64  `json:"count"`
}
