package api

import (
	"github.com/LENAX/process-engine/pkg/api/handler"
	"github.com/LENAX/process-engine/pkg/api/middleware"
	"github.com/LENAX/process-engine/pkg/core/engine"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(eng *engine.Engine, version string) *gin.Engine {
	// 设置gin模式
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// 全局中间件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())

	// 创建handlers
	templateHandler := handler.NewTemplateHandler(eng)
	instanceHandler := handler.NewInstanceHandler(eng)
	taskHandler := handler.NewTaskHandler(eng)
	functionHandler := handler.NewFunctionHandler(eng)
	queueHandler := handler.NewQueueHandler(eng)
	healthHandler := handler.NewHealthHandler(version)

	// 健康检查路由（不带前缀）
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		// 模板路由
		templates := v1.Group("/templates")
		{
			templates.GET("", templateHandler.List)
			templates.POST("", templateHandler.Upload)
			templates.GET("/:id", templateHandler.Get)
			templates.POST("/:id/activate", templateHandler.Activate)
			templates.POST("/:id/deactivate", templateHandler.Deactivate)
		}

		// 实例路由
		instances := v1.Group("/instances")
		{
			instances.POST("", instanceHandler.Create)
			instances.GET("/:id", instanceHandler.Get)
			instances.GET("/:id/history", instanceHandler.History)
			instances.GET("/:id/context", instanceHandler.GetContext)
			instances.POST("/:id/context", instanceHandler.AppendContext)
		}

		// 任务路由
		tasks := v1.Group("/tasks")
		{
			tasks.GET("/pending", taskHandler.Pending)
			tasks.GET("/:id", taskHandler.Get)
			tasks.POST("/:id/complete", taskHandler.Complete)
		}

		// 函数注册路由
		functions := v1.Group("/functions")
		{
			functions.GET("", functionHandler.List)
			functions.POST("", functionHandler.Register)
		}

		// 队列路由
		v1.POST("/queue/process", queueHandler.Process)
	}

	return router
}
