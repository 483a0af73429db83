package model

import (
	"fmt"
	"time"
)

// ArtifactKind 标识被索引的产物类型。
type ArtifactKind string

const (
	ArtifactSnippet      ArtifactKind = "snippet"
	ArtifactAnalysis     ArtifactKind = "love_analysis"
	ArtifactStrategy     ArtifactKind = "chat_strategy"
	ArtifactReplyOptions ArtifactKind = "reply_options"
)

// ArtifactDocument 代表存储在 Elasticsearch 中的产物文档。
type ArtifactDocument struct {
	DocumentID string       `json:"document_id"` // kind + "_" + artifact_id
	ArtifactID uint         `json:"artifact_id"`
	Kind       ArtifactKind `json:"kind"`
	TargetID   uint         `json:"target_id"`
	Content    string       `json:"content"`
	CreatedAt  time.Time    `json:"created_at"`
}

// SearchHit 定义了返回给调用方的搜索结果结构。
type SearchHit struct {
	ArtifactID uint         `json:"artifact_id"`
	Kind       ArtifactKind `json:"kind"`
	TargetID   uint         `json:"target_id"`
	Content    string       `json:"content"`
	Score      float64      `json:"score"`
	CreatedAt  time.Time    `json:"created_at"`
}

// NewArtifactDocument 构造一个索引文档，DocumentID 由类型与主键组成，重复索引会覆盖。
func NewArtifactDocument(kind ArtifactKind, artifactID, targetID uint, content string, createdAt time.Time) ArtifactDocument {
	return ArtifactDocument{
		DocumentID: fmt.Sprintf("%s_%d", kind, artifactID),
		ArtifactID: artifactID,
		Kind:       kind,
		TargetID:   targetID,
		Content:    content,
		CreatedAt:  createdAt,
	}
}
