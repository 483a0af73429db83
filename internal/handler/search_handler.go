package handler

import (
	"love-coach-go/internal/service"
	"love-coach-go/pkg/log"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了搜索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// Search 在指定 Target 的历史产物中执行全文检索。
func (h *SearchHandler) Search(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	query := c.Query("q")
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(service.DefaultSearchSize)))
	if err != nil || size <= 0 {
		size = service.DefaultSearchSize
	}
	log.Infof("[SearchHandler] 收到搜索请求, targetID: %d, q: %s, size: %d", id, query, size)

	hits, err := h.searchService.Search(c.Request.Context(), id, query, size)
	if err != nil {
		fail(c, "Search", err)
		return
	}
	success(c, hits)
}
