package repository

import (
	"context"
	"love-coach-go/internal/model"

	"gorm.io/gorm"
)

// Repositories 聚合了所有仓库，并提供事务范围内的工作单元。
type Repositories struct {
	db           *gorm.DB
	Targets      TargetRepository
	Snippets     SnippetRepository
	Analyses     AnalysisRepository
	Strategies   StrategyRepository
	ReplyOptions ReplyOptionsRepository
}

// NewRepositories 基于同一个 *gorm.DB（连接或事务）创建全部仓库。
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		Targets:      NewTargetRepository(db),
		Snippets:     NewArtifactRepository[model.ConversationSnippet](db),
		Analyses:     NewArtifactRepository[model.LoveAnalysis](db),
		Strategies:   NewArtifactRepository[model.ChatStrategy](db),
		ReplyOptions: NewArtifactRepository[model.ReplyOptionsFlow](db),
	}
}

// Transaction 在一个数据库事务中执行 fn：fn 返回 nil 时提交，否则回滚。
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// AutoMigrate 创建或更新所有表结构。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Target{},
		&model.ConversationSnippet{},
		&model.LoveAnalysis{},
		&model.ChatStrategy{},
		&model.ReplyOptionsFlow{},
	)
}
