package app

import (
	"time"

	"study_buddy_backend/docs"
	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/middleware"
	"study_buddy_backend/pkg/monitoring"
	"study_buddy_backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		// 作答提交与生成式接口按 用户+路由 单独限流
		userLimit := security.KeyedRateLimiter(
			cfg.RateLimit.UserMaxRequests,
			time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute,
			userRouteKey,
		)
		a.registerProgressRoutes(authGroup, c)
		a.registerQuizRoutes(authGroup, c, userLimit)
		a.registerMaterialRoutes(authGroup, c)
		a.registerAssistantRoutes(authGroup, c, userLimit)
	}
}

// userRouteKey 未登录时返回空串，由限流器回退到客户端IP
func userRouteKey(c *gin.Context) string {
	userID := middleware.UserID(c)
	if userID == "" {
		return ""
	}
	return c.FullPath() + "|" + userID
}

func (a *App) registerProgressRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/progress", c.progress.GetProgress)
	group.GET("/progress/export", c.progress.Export)

	analytics := group.Group("/analytics")
	{
		analytics.GET("/dashboard", c.analytics.GetDashboard)
		analytics.GET("/topics", c.analytics.GetTopics)
	}

	group.GET("/recommendations", c.recommendation.GetRecommendations)

	goals := group.Group("/daily-goals")
	{
		goals.GET("/:date", c.dailyGoal.GetDailyGoal)
		goals.PUT("/:date", c.dailyGoal.SaveDailyGoal)
	}
}

func (a *App) registerQuizRoutes(group *gin.RouterGroup, c *controllers, userLimit gin.HandlerFunc) {
	quizzes := group.Group("/quizzes")
	{
		quizzes.POST("", c.quiz.CreateQuiz)
		quizzes.POST("/generate", userLimit, c.quiz.GenerateQuiz)
		quizzes.GET("", c.quiz.ListQuizzes)
		quizzes.GET("/:quizId", c.quiz.GetQuiz)
		quizzes.POST("/:quizId/attempts", userLimit, c.progress.SubmitAttempt)
	}
	group.GET("/attempts", c.quiz.ListAttempts)
}

func (a *App) registerMaterialRoutes(group *gin.RouterGroup, c *controllers) {
	materials := group.Group("/materials")
	{
		materials.POST("", c.material.Upload)
		materials.GET("", c.material.List)
		materials.GET("/:id", c.material.Get)
		materials.DELETE("/:id", c.material.Delete)
	}
}

func (a *App) registerAssistantRoutes(group *gin.RouterGroup, c *controllers, userLimit gin.HandlerFunc) {
	chat := group.Group("/chat/sessions")
	{
		chat.POST("", userLimit, c.chat.StartSession)
		chat.GET("", c.chat.ListSessions)
		chat.GET("/:sessionId", c.chat.GetSession)
		chat.PATCH("/:sessionId", c.chat.UpdateSession)
		chat.POST("/:sessionId/messages", userLimit, c.chat.SendMessage)
	}

	tools := group.Group("/tools")
	tools.Use(userLimit)
	{
		tools.POST("/flashcards", c.tools.Flashcards)
		tools.POST("/summarize", c.tools.Summarize)
		tools.POST("/explain", c.tools.Explain)
		tools.POST("/concepts", c.tools.Concepts)
	}
}
