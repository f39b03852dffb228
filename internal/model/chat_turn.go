package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn 代表某个用户针对某个文档的一条问答消息，只追加、不修改。
type ChatTurn struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID string    `gorm:"type:varchar(36);not null;index:idx_chat_doc_user" json:"documentId"`
	UserID     string    `gorm:"type:varchar(64);not null;index:idx_chat_doc_user" json:"userId"`
	Role       string    `gorm:"type:varchar(16);not null" json:"role"` // "user" 或 "assistant"
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `gorm:"not null" json:"createdAt"`
}

func (ChatTurn) TableName() string {
	return "chat_turns"
}
