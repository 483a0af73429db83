package handler

import (
	"love-coach-go/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

// TargetHandler 负责处理 Target 的注册与查询请求。
type TargetHandler struct {
	targetService service.TargetService
}

// NewTargetHandler 创建一个新的 TargetHandler 实例。
func NewTargetHandler(targetService service.TargetService) *TargetHandler {
	return &TargetHandler{targetService: targetService}
}

// Create 处理创建 Target 的请求。
func (h *TargetHandler) Create(c *gin.Context) {
	var req service.CreateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	target, err := h.targetService.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, "CreateTarget", err)
		return
	}
	success(c, target)
}

// List 以分页形式返回 Target 列表。
func (h *TargetHandler) List(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		badRequest(c, "invalid page")
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(service.DefaultPageSize)))
	if err != nil {
		badRequest(c, "invalid size")
		return
	}
	resp, err := h.targetService.List(c.Request.Context(), page, size)
	if err != nil {
		fail(c, "ListTargets", err)
		return
	}
	success(c, resp)
}

// Get 返回单个 Target。
func (h *TargetHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	target, err := h.targetService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, "GetTarget", err)
		return
	}
	success(c, target)
}

// History 返回 Target 及其各阶段的最新记录。
func (h *TargetHandler) History(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	history, err := h.targetService.History(c.Request.Context(), id)
	if err != nil {
		fail(c, "GetTargetHistory", err)
		return
	}
	success(c, history)
}
