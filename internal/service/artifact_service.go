package service

import (
	"context"
	"love-coach-go/internal/model"
	"love-coach-go/internal/repository"
)

// ArtifactService 按 id 读取提示链各阶段产物。
type ArtifactService interface {
	GetSnippet(ctx context.Context, id uint) (*model.ConversationSnippet, error)
	GetLoveAnalysis(ctx context.Context, id uint) (*model.LoveAnalysis, error)
	GetChatStrategy(ctx context.Context, id uint) (*model.ChatStrategy, error)
	GetReplyOptions(ctx context.Context, id uint) (*model.ReplyOptionsFlow, error)
}

type artifactService struct {
	repos *repository.Repositories
}

// NewArtifactService 创建一个新的 ArtifactService 实例。
func NewArtifactService(repos *repository.Repositories) ArtifactService {
	return &artifactService{repos: repos}
}

func (s *artifactService) GetSnippet(ctx context.Context, id uint) (*model.ConversationSnippet, error) {
	return findArtifact(ctx, s.repos.Snippets, id, "Conversation Snippet")
}

func (s *artifactService) GetLoveAnalysis(ctx context.Context, id uint) (*model.LoveAnalysis, error) {
	return findArtifact(ctx, s.repos.Analyses, id, "Love Analysis")
}

func (s *artifactService) GetChatStrategy(ctx context.Context, id uint) (*model.ChatStrategy, error) {
	return findArtifact(ctx, s.repos.Strategies, id, "Chat Strategy")
}

func (s *artifactService) GetReplyOptions(ctx context.Context, id uint) (*model.ReplyOptionsFlow, error) {
	return findArtifact(ctx, s.repos.ReplyOptions, id, "Reply Options Flow")
}

func findArtifact[T repository.Artifact](ctx context.Context, repo repository.ArtifactRepository[T], id uint, entity string) (*T, error) {
	record, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(entity, err)
	}
	return record, nil
}
