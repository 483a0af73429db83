package model

import "time"

// LoveAnalysis 是模型生成的关系分析。
type LoveAnalysis struct {
	ID        uint    `gorm:"primaryKey;autoIncrement;index:idx_analyses_target_latest,priority:3" json:"id"`
	TargetID  uint    `gorm:"not null;index:idx_analyses_target_latest,priority:1" json:"target_id"`
	Target    *Target `gorm:"foreignKey:TargetID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	SnippetID *uint   `gorm:"index" json:"snippet_id"`
	// PreviousAnalysis 是生成时嵌入提示词的上一份分析，没有时为 "None"。
	PreviousAnalysis   string    `gorm:"type:text" json:"previous_analysis"`
	SourceConversation string    `gorm:"type:text" json:"source_conversation"`
	Content            string    `gorm:"type:text;not null" json:"content"`
	CreatedAt          time.Time `gorm:"autoCreateTime;index:idx_analyses_target_latest,priority:2" json:"created_at"`
}

func (LoveAnalysis) TableName() string {
	return "love_analyses"
}
