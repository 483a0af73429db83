package handler

import (
	"context"
	"love-coach-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ArtifactHandler 负责按 id 读取各阶段产物。
type ArtifactHandler struct {
	artifactService service.ArtifactService
}

// NewArtifactHandler 创建一个新的 ArtifactHandler 实例。
func NewArtifactHandler(artifactService service.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{artifactService: artifactService}
}

func (h *ArtifactHandler) GetSnippet(c *gin.Context) {
	getByID(c, "GetSnippet", func(ctx context.Context, id uint) (interface{}, error) {
		return h.artifactService.GetSnippet(ctx, id)
	})
}

func (h *ArtifactHandler) GetLoveAnalysis(c *gin.Context) {
	getByID(c, "GetLoveAnalysis", func(ctx context.Context, id uint) (interface{}, error) {
		return h.artifactService.GetLoveAnalysis(ctx, id)
	})
}

func (h *ArtifactHandler) GetChatStrategy(c *gin.Context) {
	getByID(c, "GetChatStrategy", func(ctx context.Context, id uint) (interface{}, error) {
		return h.artifactService.GetChatStrategy(ctx, id)
	})
}

func (h *ArtifactHandler) GetReplyOptions(c *gin.Context) {
	getByID(c, "GetReplyOptions", func(ctx context.Context, id uint) (interface{}, error) {
		return h.artifactService.GetReplyOptions(ctx, id)
	})
}

func getByID(c *gin.Context, op string, find func(ctx context.Context, id uint) (interface{}, error)) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	record, err := find(c.Request.Context(), id)
	if err != nil {
		fail(c, op, err)
		return
	}
	success(c, record)
}
