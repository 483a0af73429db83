package repository

import (
	"context"
	"love-coach-go/internal/model"

	"gorm.io/gorm"
)

// Artifact 约束了按 Target 追加写入的实体类型。
type Artifact interface {
	model.ConversationSnippet | model.LoveAnalysis | model.ChatStrategy | model.ReplyOptionsFlow
}

// ArtifactRepository 定义了只追加实体的持久化操作。
// 所有“最新”查询都按 target_id 限定范围。
type ArtifactRepository[T Artifact] interface {
	Create(ctx context.Context, record *T) error
	FindByID(ctx context.Context, id uint) (*T, error)
	// FindLatestByTarget 返回该 Target 最新的一条记录：created_at 最大者，
	// 时间相同时取后插入的（id 更大）。不存在时返回 gorm.ErrRecordNotFound。
	FindLatestByTarget(ctx context.Context, targetID uint) (*T, error)
	// FindAllByTarget 按创建时间升序返回该 Target 的全部记录。
	FindAllByTarget(ctx context.Context, targetID uint) ([]T, error)
}

type (
	SnippetRepository      = ArtifactRepository[model.ConversationSnippet]
	AnalysisRepository     = ArtifactRepository[model.LoveAnalysis]
	StrategyRepository     = ArtifactRepository[model.ChatStrategy]
	ReplyOptionsRepository = ArtifactRepository[model.ReplyOptionsFlow]
)

type artifactRepository[T Artifact] struct {
	db *gorm.DB
}

// NewArtifactRepository 创建一个新的 ArtifactRepository 实例。
func NewArtifactRepository[T Artifact](db *gorm.DB) ArtifactRepository[T] {
	return &artifactRepository[T]{db: db}
}

func (r *artifactRepository[T]) Create(ctx context.Context, record *T) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *artifactRepository[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	var record T
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *artifactRepository[T]) FindLatestByTarget(ctx context.Context, targetID uint) (*T, error) {
	var record T
	// Take 不会追加主键排序，排序完全由这里决定
	err := r.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("created_at DESC").
		Order("id DESC").
		Take(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *artifactRepository[T]) FindAllByTarget(ctx context.Context, targetID uint) ([]T, error) {
	records := make([]T, 0)
	err := r.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&records).Error
	return records, err
}
