package model

import "time"

// ConversationSnippet 是用户提交的一段聊天记录，只追加不修改。
type ConversationSnippet struct {
	ID        uint      `gorm:"primaryKey;autoIncrement;index:idx_snippets_target_latest,priority:3" json:"id"`
	TargetID  uint      `gorm:"not null;index:idx_snippets_target_latest,priority:1" json:"target_id"`
	Target    *Target   `gorm:"foreignKey:TargetID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_snippets_target_latest,priority:2" json:"created_at"`
}

func (ConversationSnippet) TableName() string {
	return "conversation_snippets"
}
