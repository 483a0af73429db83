package model

import "time"

// ChatStrategy 是模型生成的沟通策略。
type ChatStrategy struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement;index:idx_strategies_target_latest,priority:3" json:"id"`
	TargetID           uint      `gorm:"not null;index:idx_strategies_target_latest,priority:1" json:"target_id"`
	Target             *Target   `gorm:"foreignKey:TargetID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	AnalysisID         *uint     `gorm:"index" json:"analysis_id"`
	SnippetID          *uint     `gorm:"index" json:"snippet_id"`
	PreviousStrategy   string    `gorm:"type:text" json:"previous_strategy"`
	SourceConversation string    `gorm:"type:text" json:"source_conversation"`
	SourceAnalysis     string    `gorm:"type:text" json:"source_analysis"`
	Content            string    `gorm:"type:text;not null" json:"content"`
	CreatedAt          time.Time `gorm:"autoCreateTime;index:idx_strategies_target_latest,priority:2" json:"created_at"`
}

func (ChatStrategy) TableName() string {
	return "chat_strategies"
}
