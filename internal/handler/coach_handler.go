package handler

import (
	"love-coach-go/internal/service"
	"love-coach-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// CoachHandler 负责触发提示链的各个阶段。
type CoachHandler struct {
	coachService service.CoachService
}

// NewCoachHandler 创建一个新的 CoachHandler 实例。
func NewCoachHandler(coachService service.CoachService) *CoachHandler {
	return &CoachHandler{coachService: coachService}
}

// SubmitConversationRequest 定义了提交对话 API 的请求体结构。
// 字段的必填校验由 service 层统一完成。
type SubmitConversationRequest struct {
	TargetID uint   `json:"target_id"`
	Convo    string `json:"convo"`
}

// StageRequest 定义了策略与回复选项阶段的请求体结构。
type StageRequest struct {
	TargetID uint `json:"target_id"`
}

// SubmitConversation 保存对话片段并返回新生成的关系分析内容。
func (h *CoachHandler) SubmitConversation(c *gin.Context) {
	var req SubmitConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	log.Infof("[CoachHandler] 收到对话提交, targetID: %d, 长度: %d", req.TargetID, len(req.Convo))

	out, err := h.coachService.SubmitConversation(c.Request.Context(), req.TargetID, req.Convo)
	if err != nil {
		fail(c, "SubmitConversation", err)
		return
	}
	success(c, out)
}

// CreateChatStrategy 生成并返回新的聊天策略记录。
func (h *CoachHandler) CreateChatStrategy(c *gin.Context) {
	var req StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	strategy, err := h.coachService.GenerateChatStrategy(c.Request.Context(), req.TargetID)
	if err != nil {
		fail(c, "CreateChatStrategy", err)
		return
	}
	success(c, strategy)
}

// CreateReplyOptions 生成并返回四个候选回复。
func (h *CoachHandler) CreateReplyOptions(c *gin.Context) {
	var req StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	out, err := h.coachService.GenerateReplyOptions(c.Request.Context(), req.TargetID)
	if err != nil {
		fail(c, "CreateReplyOptions", err)
		return
	}
	success(c, out)
}
