package handler

import (
	"love-coach-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ExportHandler 负责把 Target 的完整历史导出到对象存储。
type ExportHandler struct {
	exportService service.ExportService
}

// NewExportHandler 创建一个新的 ExportHandler 实例。
func NewExportHandler(exportService service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// Export 导出历史并返回对象路径与预签名下载链接。
func (h *ExportHandler) Export(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	res, err := h.exportService.Export(c.Request.Context(), id)
	if err != nil {
		fail(c, "Export", err)
		return
	}
	success(c, res)
}
