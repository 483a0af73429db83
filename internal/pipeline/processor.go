// Package pipeline 定义了提示链的异步串联流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"love-coach-go/internal/service"
	"love-coach-go/pkg/log"
	"love-coach-go/pkg/tasks"
)

// Processor 在新的关系分析写入后，依次执行策略阶段和回复选项阶段。
type Processor struct {
	coach service.CoachService
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(coach service.CoachService) *Processor {
	return &Processor{coach: coach}
}

// Process 是异步串联的主函数。
// 校验失败或前置数据缺失属于不可重试错误，记录日志后返回 nil，避免消息被反复投递。
func (p *Processor) Process(ctx context.Context, task tasks.PipelineTask) error {
	log.Infof("[Processor] 开始处理提示链任务, targetID: %d, snippetID: %d, analysisID: %d", task.TargetID, task.SnippetID, task.AnalysisID)

	// 1. 策略阶段
	log.Info("[Processor] 步骤1: 生成聊天策略")
	strategy, err := p.coach.GenerateChatStrategy(ctx, task.TargetID)
	if err != nil {
		return p.classify("生成聊天策略", task, err)
	}
	log.Infof("[Processor] 步骤1: 聊天策略生成成功, strategyID: %d", strategy.ID)

	// 2. 回复选项阶段
	log.Info("[Processor] 步骤2: 生成回复选项")
	if _, err := p.coach.GenerateReplyOptions(ctx, task.TargetID); err != nil {
		return p.classify("生成回复选项", task, err)
	}
	log.Infof("[Processor] 提示链任务处理成功, targetID: %d", task.TargetID)
	return nil
}

func (p *Processor) classify(step string, task tasks.PipelineTask, err error) error {
	if errors.Is(err, service.ErrValidation) || errors.Is(err, service.ErrNotFound) {
		log.Warnf("[Processor] %s失败且不可重试, targetID: %d, error: %v", step, task.TargetID, err)
		return nil
	}
	log.Errorf("[Processor] %s失败, targetID: %d, error: %v", step, task.TargetID, err)
	return fmt.Errorf("%s失败: %w", step, err)
}
