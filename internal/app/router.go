package app

import (
	"coding_steps_backend/docs"
	"coding_steps_backend/internal/config"
	"coding_steps_backend/internal/middleware"
	"coding_steps_backend/internal/model"
	"coding_steps_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 学员接口
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret), rateLimit(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
	}

	// 3. 管理员评分接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	tasks := rg.Group("/tasks")
	{
		tasks.GET("/next", c.task.GetNextTask)
		tasks.POST("/start", c.task.StartTask)
		tasks.POST("/eval-code", c.task.SubmitForGrading)
		tasks.POST("/finish", c.task.FinishTask)
		tasks.GET("/grading-status/:taskId", c.task.GetGradingStatus)
		tasks.POST("/submit", c.task.SubmitTask)
		tasks.POST("/save-code", c.task.SaveCode)
		tasks.GET("/saved-code/:taskId", c.task.GetSavedCode)
		tasks.POST("/log", c.task.SaveLog)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/grading/pending", c.grade.ListPending)
		admin.POST("/grading/resolve", c.grade.Resolve)
	}
}
