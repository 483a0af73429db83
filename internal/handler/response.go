// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"love-coach-go/internal/service"
	"love-coach-go/pkg/log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// success 以统一的 {code, message, data} 结构返回 200。
func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

// fail 按错误类型映射状态码，并只向调用方暴露业务消息。
func fail(c *gin.Context, op string, err error) {
	status := service.MapHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("%s: 请求处理失败, status: %d, error: %v", op, status, err)
	} else {
		log.Warnf("%s: 请求被拒绝, status: %d, error: %v", op, status, err)
	}
	c.JSON(status, gin.H{"code": status, "message": service.PublicMessage(err), "data": nil})
}

// badRequest 返回 400，用于请求体或参数无法解析的情况。
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": message, "data": nil})
}

// parseIDParam 解析路径参数中的正整数 id，失败时直接写入 400 响应。
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
