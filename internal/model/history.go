package model

// TargetHistory 汇总某个 Target 各阶段的最新记录，缺失的阶段为 nil。
type TargetHistory struct {
	Target       *Target              `json:"target"`
	Snippet      *ConversationSnippet `json:"latest_snippet"`
	Analysis     *LoveAnalysis        `json:"latest_analysis"`
	Strategy     *ChatStrategy        `json:"latest_strategy"`
	ReplyOptions *ReplyOptionsFlow    `json:"latest_reply_options"`
}

// TargetArchive 是导出到对象存储的完整历史，各列表按创建时间升序。
type TargetArchive struct {
	Target       *Target               `json:"target"`
	Snippets     []ConversationSnippet `json:"snippets"`
	Analyses     []LoveAnalysis        `json:"love_analyses"`
	Strategies   []ChatStrategy        `json:"chat_strategies"`
	ReplyOptions []ReplyOptionsFlow    `json:"reply_options"`
}
