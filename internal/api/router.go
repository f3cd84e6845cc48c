package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/insight_go_client/config"
	"github.com/qs3c/insight_go_client/internal/api/handler"
	"github.com/qs3c/insight_go_client/internal/api/middleware"
)

type Router struct {
	videoHandler     *handler.VideoHandler
	commentHandler   *handler.CommentHandler
	productHandler   *handler.ProductHandler
	historyHandler   *handler.HistoryHandler
	websocketHandler *handler.WebSocketHandler
	cfg              *config.Config
}

func NewRouter(
	videoHandler *handler.VideoHandler,
	commentHandler *handler.CommentHandler,
	productHandler *handler.ProductHandler,
	historyHandler *handler.HistoryHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		videoHandler:     videoHandler,
		commentHandler:   commentHandler,
		productHandler:   productHandler,
		historyHandler:   historyHandler,
		websocketHandler: websocketHandler,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket 进度订阅
		api.GET("/ws", r.websocketHandler.Handle)

		// 视频分析
		api.POST("/videos", r.videoHandler.Submit)
		api.GET("/jobs/:task_id", r.videoHandler.Status)

		// 评论分析
		api.POST("/comments/analyze", r.commentHandler.Analyze)

		// 产品数据集
		products := api.Group("/products")
		{
			products.POST("", r.productHandler.Upload)
			products.GET("", r.productHandler.List)
			products.GET("/:name", r.productHandler.Get)
			products.DELETE("/:name", r.productHandler.Delete)
		}

		// 历史
		api.GET("/history", r.historyHandler.List)
		api.GET("/history/:id", r.historyHandler.Get)
		api.GET("/records", r.historyHandler.Records)
	}

	return engine
}
