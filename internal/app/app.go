package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/controller"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/scheduler"
	"study_buddy_backend/internal/service"
	"study_buddy_backend/pkg/configwatcher"
	"study_buddy_backend/pkg/database"
	"study_buddy_backend/pkg/logger"
	"study_buddy_backend/pkg/monitoring"
	"study_buddy_backend/pkg/security"
	"study_buddy_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	ConfigDir string
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client

	services        *services
	scheduler       *scheduler.Scheduler
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	progress  *repository.ProgressRepository
	attempt   *repository.AttemptRepository
	quiz      *repository.QuizRepository
	dailyGoal *repository.DailyGoalRepository
	material  *repository.MaterialRepository
	chat      *repository.ChatSessionRepository
}

type services struct {
	storage        *service.StorageService
	ai             *service.AIService
	material       *service.MaterialService
	dailyGoal      *service.DailyGoalService
	progress       *service.ProgressService
	analytics      *service.AnalyticsService
	quiz           *service.QuizService
	recommendation *service.RecommendationService
	chat           *service.ChatService
	tools          *service.StudyToolsService
}

type controllers struct {
	progress       *controller.ProgressController
	analytics      *controller.AnalyticsController
	recommendation *controller.RecommendationController
	quiz           *controller.QuizController
	dailyGoal      *controller.DailyGoalController
	material       *controller.MaterialController
	health         *controller.HealthController
	chat           *controller.ChatController
	tools          *controller.StudyToolsController
}

// RegisterConfigCallback 配置热更新后按注册顺序回调
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		progress:  repository.NewProgressRepository(db),
		attempt:   repository.NewAttemptRepository(db),
		quiz:      repository.NewQuizRepository(db),
		dailyGoal: repository.NewDailyGoalRepository(db),
		material:  repository.NewMaterialRepository(db),
		chat:      repository.NewChatSessionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	if minioProvider, ok := s.storage.Provider.(*service.MinioStorageProvider); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := minioProvider.EnsureBucket(ctx); err != nil {
			logger.Log.Warn("Failed to ensure MinIO bucket", zap.String("bucket", cfg.Storage.MinioBucket), zap.Error(err))
		}
		cancel()
	}

	s.ai = service.NewAIService(cfg.AI)
	s.material = service.NewMaterialService(repos.material, s.storage)
	s.dailyGoal = service.NewDailyGoalService(repos.dailyGoal)
	s.progress = service.NewProgressService(cfg.Progress, repos.progress, repos.attempt, repos.quiz, s.dailyGoal)
	s.analytics = service.NewAnalyticsService(cfg.Progress, repos.progress, repos.attempt, repos.quiz)
	s.quiz = service.NewQuizService(repos.quiz, repos.attempt, s.material, s.ai)
	s.chat = service.NewChatService(repos.chat, s.material, s.ai)
	s.tools = service.NewStudyToolsService(s.material, s.ai)

	var cache service.RecommendationCache
	if rdb != nil {
		cache = &service.RedisRecommendationCache{Client: rdb}
	} else {
		cache = service.NewMemoryRecommendationCache()
	}
	s.recommendation = service.NewRecommendationService(repos.progress, s.ai, cache, cfg.Recommendation.CacheTTL())

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		progress:       controller.NewProgressController(s.progress, s.analytics),
		analytics:      controller.NewAnalyticsController(s.analytics),
		recommendation: controller.NewRecommendationController(s.recommendation),
		quiz:           controller.NewQuizController(s.quiz),
		dailyGoal:      controller.NewDailyGoalController(s.dailyGoal),
		material:       controller.NewMaterialController(s.material),
		health:         controller.NewHealthController(db, rdb),
		chat:           controller.NewChatController(s.chat),
		tools:          controller.NewStudyToolsController(s.tools),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerConfigReload 进度与缓存设置支持热更新，其余配置需重启生效
func (a *App) registerConfigReload(s *services) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.progress.UpdateConfig(cfg.Progress)
		s.analytics.UpdateConfig(cfg.Progress)
		s.recommendation.SetTTL(cfg.Recommendation.CacheTTL())
		logger.Log.Info("Progress settings reloaded",
			zap.Int("max_retries", cfg.Progress.MaxRetries),
			zap.String("timezone", cfg.Progress.Timezone),
			zap.Duration("recommendation_ttl", cfg.Recommendation.CacheTTL()),
		)
	})
}

func (a *App) startBackgroundTasks(s *services, cfg *config.Config) {
	if !cfg.Scheduler.Enabled {
		return
	}
	a.scheduler = scheduler.New(s.dailyGoal, cfg.Progress.Location())
	if err := a.scheduler.Start(cfg.Scheduler.DailyGoalCloseAt); err != nil {
		logger.Log.Error("Failed to start scheduler", zap.Error(err))
		a.scheduler = nil
	}
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		DB:        db,
	}
	if cfg.MigrateOnly {
		return app
	}

	// Redis 只承载建议缓存，不可用时退回进程内缓存
	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Warn("Redis unavailable, using in-memory recommendation cache", zap.Error(err))
		} else {
			app.Redis = rdb
		}
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, app.Redis)
	app.services = services
	controllers := app.initControllers(services, db, app.Redis)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.registerConfigReload(services)
	app.startBackgroundTasks(services, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.Config.Server.WatchConfig {
		go func() {
			err := configwatcher.WatchConfig(ctx, a.ConfigDir, func(cfg *config.Config) {
				for _, cb := range a.configCallbacks {
					cb(cfg)
				}
			})
			if err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}

	log.Println("Server exiting")
	_ = logger.Log.Sync()
}
