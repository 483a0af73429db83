package service

import (
	"context"
	"errors"
	"fmt"
	"love-coach-go/internal/config"
	"love-coach-go/internal/model"
	"love-coach-go/internal/prompt"
	"love-coach-go/internal/repository"
	"love-coach-go/pkg/llm"
	"love-coach-go/pkg/lock"
	"love-coach-go/pkg/log"
	"love-coach-go/pkg/tasks"
	"strings"
	"time"

	"gorm.io/gorm"
)

// AnalysisOut 是提交对话后返回给调用方的内容，只包含生成的分析文本。
type AnalysisOut struct {
	Content string `json:"content"`
}

// ReplyOptionsOut 是回复选项阶段返回给调用方的四个候选回复。
type ReplyOptionsOut struct {
	Option1 string `json:"option1"`
	Option2 string `json:"option2"`
	Option3 string `json:"option3"`
	Option4 string `json:"option4"`
}

// StrategyResponse 是策略阶段要求模型返回的单字段结构。
type StrategyResponse struct {
	Content string `json:"content" jsonschema:"description=The full communication strategy"`
}

// Validate 检查策略内容非空。
func (r *StrategyResponse) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return errors.New("content is empty")
	}
	return nil
}

// ReplyOptionsResponse 是回复选项阶段要求模型返回的四字段结构。
type ReplyOptionsResponse struct {
	Option1 string `json:"option1" jsonschema:"description=First reply option"`
	Option2 string `json:"option2" jsonschema:"description=Second reply option in a different direction from the first"`
	Option3 string `json:"option3" jsonschema:"description=Third reply option in a different direction from the others"`
	Option4 string `json:"option4" jsonschema:"description=Fourth reply option in a different direction from the others"`
}

// Validate 检查四个候选回复均非空。
func (r *ReplyOptionsResponse) Validate() error {
	for i, opt := range []string{r.Option1, r.Option2, r.Option3, r.Option4} {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("option%d is empty", i+1)
		}
	}
	return nil
}

var (
	strategyFormat     = llm.FormatFor[StrategyResponse]("ChatStrategy", "A communication strategy for the user's next messages")
	replyOptionsFormat = llm.FormatFor[ReplyOptionsResponse]("ReplyOptions", "Four distinguishable reply options")
)

// ArtifactIndexer 把持久化后的产物写入检索索引。
type ArtifactIndexer interface {
	IndexArtifact(ctx context.Context, doc model.ArtifactDocument) error
}

// TaskPublisher 投递异步的提示链任务。
type TaskPublisher interface {
	PublishPipelineTask(ctx context.Context, task tasks.PipelineTask) error
}

// CoachService 是提示链的阶段编排器。
// 每个阶段在同一个 Target 上串行执行：读取最新前置数据、调用模型、在一个事务里写入结果。
type CoachService interface {
	SubmitConversation(ctx context.Context, targetID uint, convo string) (*AnalysisOut, error)
	GenerateChatStrategy(ctx context.Context, targetID uint) (*model.ChatStrategy, error)
	GenerateReplyOptions(ctx context.Context, targetID uint) (*ReplyOptionsOut, error)
}

type coachService struct {
	repos     *repository.Repositories
	llmClient llm.Client
	locker    lock.Locker
	cfg       config.PipelineConfig
	modelName string
	indexer   ArtifactIndexer
	publisher TaskPublisher
}

// NewCoachService 创建一个新的 CoachService 实例。indexer 与 publisher 可以为 nil。
func NewCoachService(
	repos *repository.Repositories,
	llmClient llm.Client,
	locker lock.Locker,
	cfg config.PipelineConfig,
	modelName string,
	indexer ArtifactIndexer,
	publisher TaskPublisher,
) CoachService {
	return &coachService{
		repos:     repos,
		llmClient: llmClient,
		locker:    locker,
		cfg:       cfg,
		modelName: modelName,
		indexer:   indexer,
		publisher: publisher,
	}
}

// SubmitConversation 保存对话片段并生成新的关系分析。
// 模型调用成功后，片段与分析在同一个事务里写入；任一步失败都不会留下新记录。
func (s *coachService) SubmitConversation(ctx context.Context, targetID uint, convo string) (*AnalysisOut, error) {
	if targetID == 0 {
		return nil, validationError("target_id is required")
	}
	if strings.TrimSpace(convo) == "" {
		return nil, validationError("convo is required")
	}

	unlock, err := s.lockTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	log.Infof("[CoachService] 分析阶段开始, targetID: %d, model: %s", targetID, s.modelName)
	target, err := s.loadTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	prior, err := requireLatest(ctx, s.repos.Analyses, targetID, s.cfg.Prerequisites.Analysis.PriorAnalysis, "Latest Love Analysis not found")
	if err != nil {
		return nil, err
	}
	priorText := prompt.None
	if prior != nil {
		priorText = prior.Content
	}

	p, err := prompt.BuildAnalysis(prompt.AnalysisInput{
		Target:        target,
		PriorAnalysis: priorText,
		Conversation:  convo,
	})
	if err != nil {
		return nil, upstreamError("failed to build analysis prompt", err)
	}

	content, err := s.llmClient.Complete(ctx, p.Messages())
	if err != nil {
		log.Errorf("[CoachService] 分析阶段模型调用失败, targetID: %d, error: %v", targetID, err)
		return nil, upstreamError("failed to generate love analysis", err)
	}

	snippet := &model.ConversationSnippet{TargetID: targetID, Content: convo}
	analysis := &model.LoveAnalysis{
		TargetID:           targetID,
		PreviousAnalysis:   priorText,
		SourceConversation: convo,
		Content:            content,
	}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Snippets.Create(ctx, snippet); err != nil {
			return err
		}
		analysis.SnippetID = &snippet.ID
		return tx.Analyses.Create(ctx, analysis)
	})
	if err != nil {
		log.Errorf("[CoachService] 分析阶段写入失败, targetID: %d, error: %v", targetID, err)
		return nil, storageError("failed to save love analysis", err)
	}
	log.Infof("[CoachService] 分析阶段完成, targetID: %d, priorAnalysisID: %v, snippetID: %d, analysisID: %d",
		targetID, idOf(prior), snippet.ID, analysis.ID)

	s.index(ctx, model.ArtifactSnippet, snippet.ID, targetID, snippet.Content, snippet.CreatedAt)
	s.index(ctx, model.ArtifactAnalysis, analysis.ID, targetID, analysis.Content, analysis.CreatedAt)
	s.publish(ctx, tasks.PipelineTask{TargetID: targetID, SnippetID: snippet.ID, AnalysisID: analysis.ID})

	return &AnalysisOut{Content: analysis.Content}, nil
}

// GenerateChatStrategy 基于最新的分析、对话和上一份策略生成新的聊天策略。
func (s *coachService) GenerateChatStrategy(ctx context.Context, targetID uint) (*model.ChatStrategy, error) {
	if targetID == 0 {
		return nil, validationError("target_id is required")
	}

	unlock, err := s.lockTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	log.Infof("[CoachService] 策略阶段开始, targetID: %d, model: %s", targetID, s.modelName)
	target, err := s.loadTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	policy := s.cfg.Prerequisites.Strategy
	const missingInputs = "Latest Love Analysis or Conversation Snippet not found"
	analysis, err := requireLatest(ctx, s.repos.Analyses, targetID, policy.Analysis, missingInputs)
	if err != nil {
		return nil, err
	}
	snippet, err := requireLatest(ctx, s.repos.Snippets, targetID, policy.Conversation, missingInputs)
	if err != nil {
		return nil, err
	}
	prior, err := requireLatest(ctx, s.repos.Strategies, targetID, policy.PriorStrategy, "Latest Chat Strategy not found")
	if err != nil {
		return nil, err
	}

	in := prompt.StrategyInput{
		Target:        target,
		Analysis:      analysisText(analysis),
		Conversation:  snippetText(snippet),
		PriorStrategy: strategyText(prior),
	}
	p, err := prompt.BuildStrategy(in)
	if err != nil {
		return nil, upstreamError("failed to build strategy prompt", err)
	}

	var resp StrategyResponse
	if err := s.llmClient.CompleteStructured(ctx, p.Messages(), strategyFormat, &resp); err != nil {
		log.Errorf("[CoachService] 策略阶段模型调用失败, targetID: %d, error: %v", targetID, err)
		return nil, upstreamError("failed to generate chat strategy", err)
	}

	strategy := &model.ChatStrategy{
		TargetID:           targetID,
		AnalysisID:         idPtr(analysis),
		SnippetID:          idPtr(snippet),
		PreviousStrategy:   in.PriorStrategy,
		SourceConversation: in.Conversation,
		SourceAnalysis:     in.Analysis,
		Content:            resp.Content,
	}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return tx.Strategies.Create(ctx, strategy)
	})
	if err != nil {
		log.Errorf("[CoachService] 策略阶段写入失败, targetID: %d, error: %v", targetID, err)
		return nil, storageError("failed to save chat strategy", err)
	}
	log.Infof("[CoachService] 策略阶段完成, targetID: %d, analysisID: %v, snippetID: %v, strategyID: %d",
		targetID, idOf(analysis), idOf(snippet), strategy.ID)

	s.index(ctx, model.ArtifactStrategy, strategy.ID, targetID, strategy.Content, strategy.CreatedAt)
	return strategy, nil
}

// GenerateReplyOptions 基于最新的分析、策略和对话生成四个候选回复。
func (s *coachService) GenerateReplyOptions(ctx context.Context, targetID uint) (*ReplyOptionsOut, error) {
	if targetID == 0 {
		return nil, validationError("target_id is required")
	}

	unlock, err := s.lockTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	log.Infof("[CoachService] 回复选项阶段开始, targetID: %d, model: %s", targetID, s.modelName)
	target, err := s.loadTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	policy := s.cfg.Prerequisites.ReplyOptions
	snippet, err := requireLatest(ctx, s.repos.Snippets, targetID, policy.Conversation, "Latest Conversation Snippet not found")
	if err != nil {
		return nil, err
	}
	strategy, err := requireLatest(ctx, s.repos.Strategies, targetID, policy.Strategy, "Latest Chat Strategy not found")
	if err != nil {
		return nil, err
	}
	analysis, err := requireLatest(ctx, s.repos.Analyses, targetID, policy.Analysis, "Latest Love Analysis not found")
	if err != nil {
		return nil, err
	}

	in := prompt.ReplyOptionsInput{
		Target:       target,
		Analysis:     analysisText(analysis),
		Strategy:     strategyText(strategy),
		Conversation: snippetText(snippet),
	}
	p, err := prompt.BuildReplyOptions(in)
	if err != nil {
		return nil, upstreamError("failed to build reply options prompt", err)
	}

	var resp ReplyOptionsResponse
	if err := s.llmClient.CompleteStructured(ctx, p.Messages(), replyOptionsFormat, &resp); err != nil {
		log.Errorf("[CoachService] 回复选项阶段模型调用失败, targetID: %d, error: %v", targetID, err)
		return nil, upstreamError("failed to generate reply options", err)
	}

	flow := &model.ReplyOptionsFlow{
		TargetID:           targetID,
		StrategyID:         idPtr(strategy),
		SnippetID:          idPtr(snippet),
		AnalysisID:         idPtr(analysis),
		SourceStrategy:     in.Strategy,
		SourceConversation: in.Conversation,
		Option1:            resp.Option1,
		Option2:            resp.Option2,
		Option3:            resp.Option3,
		Option4:            resp.Option4,
	}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return tx.ReplyOptions.Create(ctx, flow)
	})
	if err != nil {
		log.Errorf("[CoachService] 回复选项阶段写入失败, targetID: %d, error: %v", targetID, err)
		return nil, storageError("failed to save reply options", err)
	}
	log.Infof("[CoachService] 回复选项阶段完成, targetID: %d, strategyID: %v, snippetID: %v, analysisID: %v, replyOptionsID: %d",
		targetID, idOf(strategy), idOf(snippet), idOf(analysis), flow.ID)

	opts := flow.Options()
	s.index(ctx, model.ArtifactReplyOptions, flow.ID, targetID, strings.Join(opts[:], "\n"), flow.CreatedAt)
	return &ReplyOptionsOut{
		Option1: flow.Option1,
		Option2: flow.Option2,
		Option3: flow.Option3,
		Option4: flow.Option4,
	}, nil
}

func (s *coachService) lockTarget(ctx context.Context, targetID uint) (func(), error) {
	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("target:%d", targetID))
	if err != nil {
		log.Warnf("[CoachService] 获取 Target 锁失败, targetID: %d, error: %v", targetID, err)
		return nil, storageError("target is busy", err)
	}
	return unlock, nil
}

func (s *coachService) loadTarget(ctx context.Context, targetID uint) (*model.Target, error) {
	target, err := s.repos.Targets.FindByID(ctx, targetID)
	if err != nil {
		return nil, lookupError("Target", err)
	}
	return target, nil
}

// index 在事务提交后尽力写入检索索引，失败只记录日志。
func (s *coachService) index(ctx context.Context, kind model.ArtifactKind, id, targetID uint, content string, createdAt time.Time) {
	if s.indexer == nil {
		return
	}
	doc := model.NewArtifactDocument(kind, id, targetID, content, createdAt)
	if err := s.indexer.IndexArtifact(ctx, doc); err != nil {
		log.Warnf("[CoachService] 索引产物失败, documentID: %s, error: %v", doc.DocumentID, err)
	}
}

// publish 在开启自动串联时投递后续阶段任务，失败只记录日志。
func (s *coachService) publish(ctx context.Context, task tasks.PipelineTask) {
	if !s.cfg.AutoChain || s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPipelineTask(ctx, task); err != nil {
		log.Warnf("[CoachService] 投递提示链任务失败, targetID: %d, analysisID: %d, error: %v", task.TargetID, task.AnalysisID, err)
		return
	}
	log.Infof("[CoachService] 已投递提示链任务, targetID: %d, analysisID: %d", task.TargetID, task.AnalysisID)
}

// requireLatest 按策略获取 Target 的最新前置记录：
// required 时缺失返回 NotFound；default 时缺失返回 (nil, nil)，由调用方写入 "None"。
func requireLatest[T repository.Artifact](ctx context.Context, repo repository.ArtifactRepository[T], targetID uint, policy config.PrerequisitePolicy, missing string) (*T, error) {
	record, err := repo.FindLatestByTarget(ctx, targetID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageError("failed to load prerequisites", err)
	}
	if policy == config.PolicyRequired {
		return nil, notFoundError(missing)
	}
	return nil, nil
}

func analysisText(a *model.LoveAnalysis) string {
	if a == nil {
		return prompt.None
	}
	return a.Content
}

func snippetText(s *model.ConversationSnippet) string {
	if s == nil {
		return prompt.None
	}
	return s.Content
}

func strategyText(s *model.ChatStrategy) string {
	if s == nil {
		return prompt.None
	}
	return s.Content
}

// idPtr 返回记录主键的指针，记录为 nil 时返回 nil。
func idPtr[T repository.Artifact](record *T) *uint {
	if record == nil {
		return nil
	}
	id := artifactID(record)
	return &id
}

// idOf 用于日志：记录缺失时输出 "none"。
func idOf[T repository.Artifact](record *T) any {
	if record == nil {
		return "none"
	}
	return artifactID(record)
}

func artifactID[T repository.Artifact](record *T) uint {
	switch r := any(record).(type) {
	case *model.ConversationSnippet:
		return r.ID
	case *model.LoveAnalysis:
		return r.ID
	case *model.ChatStrategy:
		return r.ID
	case *model.ReplyOptionsFlow:
		return r.ID
	}
	return 0
}
