package service

import (
	"context"
	"love-coach-go/internal/model"
	"love-coach-go/pkg/log"
	"strings"
)

// DefaultSearchSize 是未指定 size 时返回的命中数。
const DefaultSearchSize = 10

// ArtifactSearcher 在检索索引中按 Target 搜索产物。
type ArtifactSearcher interface {
	SearchArtifacts(ctx context.Context, targetID uint, query string, size int) ([]model.SearchHit, error)
}

// SearchService 接口定义了历史产物的全文检索。
type SearchService interface {
	Search(ctx context.Context, targetID uint, query string, size int) ([]model.SearchHit, error)
}

type searchService struct {
	targets  TargetService
	searcher ArtifactSearcher
}

// NewSearchService 创建一个新的 SearchService 实例。searcher 为 nil 表示未启用检索。
func NewSearchService(targets TargetService, searcher ArtifactSearcher) SearchService {
	return &searchService{targets: targets, searcher: searcher}
}

// Search 在指定 Target 的历史产物中执行全文检索。
func (s *searchService) Search(ctx context.Context, targetID uint, query string, size int) ([]model.SearchHit, error) {
	if s.searcher == nil {
		return nil, notFoundError("search disabled")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationError("q is required")
	}
	if size <= 0 {
		size = DefaultSearchSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if _, err := s.targets.Get(ctx, targetID); err != nil {
		return nil, err
	}

	log.Infof("[SearchService] 开始检索, targetID: %d, query: '%s', size: %d", targetID, query, size)
	hits, err := s.searcher.SearchArtifacts(ctx, targetID, query, size)
	if err != nil {
		log.Errorf("[SearchService] 检索失败, targetID: %d, error: %v", targetID, err)
		return nil, storageError("search failed", err)
	}
	if hits == nil {
		hits = make([]model.SearchHit, 0)
	}
	log.Infof("[SearchService] 检索完成, targetID: %d, 命中 %d 条", targetID, len(hits))
	return hits, nil
}
