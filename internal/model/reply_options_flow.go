package model

import "time"

// ReplyOptionsFlow 保存一次生成的四个候选回复。
type ReplyOptionsFlow struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement;index:idx_reply_options_target_latest,priority:3" json:"id"`
	TargetID           uint      `gorm:"not null;index:idx_reply_options_target_latest,priority:1" json:"target_id"`
	Target             *Target   `gorm:"foreignKey:TargetID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	StrategyID         *uint     `gorm:"index" json:"strategy_id"`
	SnippetID          *uint     `gorm:"index" json:"snippet_id"`
	AnalysisID         *uint     `gorm:"index" json:"analysis_id"`
	SourceStrategy     string    `gorm:"type:text" json:"source_strategy"`
	SourceConversation string    `gorm:"type:text" json:"source_conversation"`
	Option1            string    `gorm:"type:text;not null" json:"option1"`
	Option2            string    `gorm:"type:text;not null" json:"option2"`
	Option3            string    `gorm:"type:text;not null" json:"option3"`
	Option4            string    `gorm:"type:text;not null" json:"option4"`
	CreatedAt          time.Time `gorm:"autoCreateTime;index:idx_reply_options_target_latest,priority:2" json:"created_at"`
}

func (ReplyOptionsFlow) TableName() string {
	return "reply_options_flows"
}

// Options 按顺序返回四个候选回复。
func (r ReplyOptionsFlow) Options() [4]string {
	return [4]string{r.Option1, r.Option2, r.Option3, r.Option4}
}
