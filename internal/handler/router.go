package handler

import (
	"love-coach-go/internal/middleware"
	"love-coach-go/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Services 聚合了路由所需的全部业务服务。
type Services struct {
	Targets   service.TargetService
	Coach     service.CoachService
	Artifacts service.ArtifactService
	Search    service.SearchService
	Export    service.ExportService
}

// NewRouter 创建 Gin 引擎并注册全部路由。auth 为 nil 时 API 不做鉴权。
func NewRouter(svc Services, auth gin.HandlerFunc) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "ok", "data": nil})
	})

	targetHandler := NewTargetHandler(svc.Targets)
	coachHandler := NewCoachHandler(svc.Coach)
	artifactHandler := NewArtifactHandler(svc.Artifacts)
	searchHandler := NewSearchHandler(svc.Search)
	exportHandler := NewExportHandler(svc.Export)

	apiV1 := r.Group("/api/v1")
	if auth != nil {
		apiV1.Use(auth)
	}
	{
		targets := apiV1.Group("/targets")
		{
			targets.POST("", targetHandler.Create)
			targets.GET("", targetHandler.List)
			targets.GET("/:id", targetHandler.Get)
			targets.GET("/:id/history", targetHandler.History)
			targets.GET("/:id/search", searchHandler.Search)
			targets.POST("/:id/export", exportHandler.Export)
		}

		// 提示链各阶段
		apiV1.POST("/love-analyses", coachHandler.SubmitConversation)
		apiV1.POST("/chat-strategies", coachHandler.CreateChatStrategy)
		apiV1.POST("/reply-options", coachHandler.CreateReplyOptions)

		apiV1.GET("/snippets/:id", artifactHandler.GetSnippet)
		apiV1.GET("/love-analyses/:id", artifactHandler.GetLoveAnalysis)
		apiV1.GET("/chat-strategies/:id", artifactHandler.GetChatStrategy)
		apiV1.GET("/reply-options/:id", artifactHandler.GetReplyOptions)
	}
	return r
}
