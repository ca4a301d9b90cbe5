package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"syncgate/internal/dispatcher"
	"syncgate/internal/middleware"
	"syncgate/internal/services"
	"syncgate/pkg/config"
)

// SetupRouter 设置路由。
// 业务入口统一走 /api/:controller/:action，由调度器分派
func SetupRouter(cfg *config.Config, d *dispatcher.Dispatcher, hub *services.NotifyHub) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.RequestID())
	router.Use(middleware.SetupCORS(cfg))

	// 健康检查接口
	router.GET("/health", healthCheck)

	// 变更通知WebSocket
	router.GET("/ws/notify", hub.HandleConnect)

	// 业务调度入口
	api := router.Group("/api")
	api.Any("/:controller/:action", d.Handle)

	return router
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}
