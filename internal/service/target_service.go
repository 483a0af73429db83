package service

import (
	"context"
	"errors"
	"love-coach-go/internal/model"
	"love-coach-go/internal/repository"
	"love-coach-go/pkg/log"
	"strings"

	"gorm.io/gorm"
)

// 分页参数的默认值与上限。
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CreateTargetRequest 定义了创建 Target 的输入。
type CreateTargetRequest struct {
	Name                   string `json:"name"`
	Gender                 string `json:"gender"`
	Personality            string `json:"personality"`
	RelationshipContext    string `json:"relationship_context"`
	RelationshipPerception string `json:"relationship_perception"`
	RelationshipGoals      string `json:"relationship_goals"`
	RelationshipGoalsLong  string `json:"relationship_goals_long"`
	Language               string `json:"language"`
}

// TargetListResponse 定义了 Target 列表 API 的响应结构。
type TargetListResponse struct {
	Content       []model.Target `json:"content"`
	TotalElements int64          `json:"total_elements"`
	TotalPages    int            `json:"total_pages"`
	Size          int            `json:"size"`
	Number        int            `json:"number"`
}

// TargetService 接口定义了 Target 的注册与查询操作。
type TargetService interface {
	Create(ctx context.Context, req CreateTargetRequest) (*model.Target, error)
	Get(ctx context.Context, id uint) (*model.Target, error)
	List(ctx context.Context, page, size int) (*TargetListResponse, error)
	// History 返回 Target 及其各阶段最新的一条记录。
	History(ctx context.Context, id uint) (*model.TargetHistory, error)
	// Archive 返回 Target 的完整历史，各列表按创建时间升序。
	Archive(ctx context.Context, id uint) (*model.TargetArchive, error)
}

type targetService struct {
	repos *repository.Repositories
}

// NewTargetService 创建一个新的 TargetService 实例。
func NewTargetService(repos *repository.Repositories) TargetService {
	return &targetService{repos: repos}
}

// Create 校验必填字段后插入一条新的 Target。
func (s *targetService) Create(ctx context.Context, req CreateTargetRequest) (*model.Target, error) {
	target := &model.Target{
		Name:                   strings.TrimSpace(req.Name),
		Gender:                 strings.TrimSpace(req.Gender),
		Personality:            req.Personality,
		RelationshipContext:    req.RelationshipContext,
		RelationshipPerception: req.RelationshipPerception,
		RelationshipGoals:      req.RelationshipGoals,
		RelationshipGoalsLong:  req.RelationshipGoalsLong,
		Language:               strings.TrimSpace(req.Language),
	}
	if target.Name == "" {
		return nil, validationError("name is required")
	}
	if target.Language == "" {
		return nil, validationError("language is required")
	}

	if err := s.repos.Targets.Create(ctx, target); err != nil {
		log.Errorf("[TargetService] 创建 Target 失败, name: %s, error: %v", target.Name, err)
		return nil, storageError("failed to create target", err)
	}
	log.Infof("[TargetService] 创建 Target 成功, targetID: %d, name: %s", target.ID, target.Name)
	return target, nil
}

func (s *targetService) Get(ctx context.Context, id uint) (*model.Target, error) {
	target, err := s.repos.Targets.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("Target", err)
	}
	return target, nil
}

// List 以分页的形式返回 Target 列表，page 从 1 开始。
func (s *targetService) List(ctx context.Context, page, size int) (*TargetListResponse, error) {
	if page < 1 {
		return nil, validationError("page must be >= 1")
	}
	if size < 1 || size > MaxPageSize {
		return nil, validationError("size must be between 1 and %d", MaxPageSize)
	}

	targets, total, err := s.repos.Targets.FindWithPagination(ctx, (page-1)*size, size)
	if err != nil {
		return nil, storageError("failed to list targets", err)
	}
	if targets == nil {
		targets = make([]model.Target, 0)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (int(total) + size - 1) / size
	}
	return &TargetListResponse{
		Content:       targets,
		TotalElements: total,
		TotalPages:    totalPages,
		Size:          size,
		Number:        page,
	}, nil
}

func (s *targetService) History(ctx context.Context, id uint) (*model.TargetHistory, error) {
	target, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	history := &model.TargetHistory{Target: target}
	if history.Snippet, err = optionalLatest(ctx, s.repos.Snippets, id, "Conversation Snippet"); err != nil {
		return nil, err
	}
	if history.Analysis, err = optionalLatest(ctx, s.repos.Analyses, id, "Love Analysis"); err != nil {
		return nil, err
	}
	if history.Strategy, err = optionalLatest(ctx, s.repos.Strategies, id, "Chat Strategy"); err != nil {
		return nil, err
	}
	if history.ReplyOptions, err = optionalLatest(ctx, s.repos.ReplyOptions, id, "Reply Options Flow"); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *targetService) Archive(ctx context.Context, id uint) (*model.TargetArchive, error) {
	archive := &model.TargetArchive{}
	// 在同一个只读事务里读取，保证导出的各列表来自同一时刻
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		target, err := tx.Targets.FindByID(ctx, id)
		if err != nil {
			return lookupError("Target", err)
		}
		archive.Target = target
		if archive.Snippets, err = tx.Snippets.FindAllByTarget(ctx, id); err != nil {
			return storageError("failed to load conversation snippets", err)
		}
		if archive.Analyses, err = tx.Analyses.FindAllByTarget(ctx, id); err != nil {
			return storageError("failed to load love analyses", err)
		}
		if archive.Strategies, err = tx.Strategies.FindAllByTarget(ctx, id); err != nil {
			return storageError("failed to load chat strategies", err)
		}
		if archive.ReplyOptions, err = tx.ReplyOptions.FindAllByTarget(ctx, id); err != nil {
			return storageError("failed to load reply options", err)
		}
		return nil
	})
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, storageError("failed to load target archive", err)
	}
	return archive, nil
}

// optionalLatest 返回该 Target 的最新记录；不存在时返回 nil 而不是错误。
func optionalLatest[T repository.Artifact](ctx context.Context, repo repository.ArtifactRepository[T], targetID uint, entity string) (*T, error) {
	record, err := repo.FindLatestByTarget(ctx, targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("failed to load latest "+entity, err)
	}
	return record, nil
}
