package app

import (
	"coding_steps_backend/internal/config"
	"coding_steps_backend/internal/controller"
	"coding_steps_backend/internal/curriculum"
	"coding_steps_backend/internal/repository"
	"coding_steps_backend/internal/service"
	"coding_steps_backend/internal/util"
	"coding_steps_backend/pkg/configwatcher"
	"coding_steps_backend/pkg/database"
	"coding_steps_backend/pkg/logger"
	"coding_steps_backend/pkg/monitoring"
	"coding_steps_backend/pkg/queue"
	"coding_steps_backend/pkg/security"
	"coding_steps_backend/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config     *config.Config
	Router     *gin.Engine
	DB         *gorm.DB
	Redis      *redis.Client
	Curriculum *curriculum.Curriculum

	services        *services
	queueConn       *queue.Connection
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	userTask *repository.UserTaskRepository
}

type services struct {
	storage service.StorageProvider
	task    *service.TaskService
	grading *service.GradingService
}

type controllers struct {
	task   *controller.TaskController
	grade  *controller.GradeController
	health *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, cfg *config.Config) *repositories {
	retry := repository.DefaultRetryConfig()
	if cfg.Grading.Retry.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Grading.Retry.MaxAttempts
	}
	if cfg.Grading.Retry.InitialDelay > 0 {
		retry.InitialDelay = cfg.Grading.Retry.InitialDelay
	}
	if cfg.Grading.Retry.MaxDelay > 0 {
		retry.MaxDelay = cfg.Grading.Retry.MaxDelay
	}

	return &repositories{
		userTask: repository.NewUserTaskRepository(db, retry),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) (*services, error) {
	s := &services{}

	storage, err := service.NewStorageProvider(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	s.storage = storage

	var cache service.StatusCache = service.NopStatusCache{}
	if a.Redis != nil {
		cache = service.NewRedisStatusCache(a.Redis, cfg.Grading.StatusCacheTTL)
	}

	var notifier service.GradingNotifier = service.NopNotifier{}
	if cfg.Queue.Enabled {
		conn, err := queue.NewConnection(cfg.Queue.URL)
		if err != nil {
			return nil, fmt.Errorf("init queue: %w", err)
		}
		a.queueConn = conn
		notifier = queue.NewPublisher(conn)
	}

	s.task = service.NewTaskService(repos.userTask, a.Curriculum, cache, storage, cfg.Storage.ArchiveLogs)
	s.grading = service.NewGradingService(repos.userTask, a.Curriculum, cache, notifier, cfg.Grading.MinCodeLength)

	return s, nil
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		task:   controller.NewTaskController(s.task, s.grading),
		grade:  controller.NewGradeController(s.grading),
		health: controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// rateLimit 登录后的接口按学员限流，取不到身份时按IP
func rateLimit(cfg *config.Config) gin.HandlerFunc {
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	return security.RateLimiter(cfg.RateLimit.MaxRequests, window, security.ContextKey("user", func(v any) string {
		if claims, ok := v.(*util.Claims); ok {
			return strconv.FormatUint(uint64(claims.UserID), 10)
		}
		return ""
	}))
}

func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(logger.Options{Level: cfg.LogLevel(), File: cfg.Log.File})
	logger.Log.Info("Logger initialized successfully")

	cur, err := curriculum.Load(cfg.Curriculum.Path)
	if err != nil {
		return nil, fmt.Errorf("load curriculum: %w", err)
	}
	logger.Log.Info("Curriculum loaded", zap.Int("tasks", cur.Len()), zap.String("path", cfg.Curriculum.Path))

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	app := &App{
		Config:     cfg,
		DB:         db,
		Curriculum: cur,
	}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		app.Redis = rdb
	}

	repos := app.initRepositories(db, cfg)
	services, err := app.initServices(repos, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(services)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("coding-steps", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		app.tracer = tp
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		if logger.SetLevel(newCfg.LogLevel()) {
			logger.Log.Info("Log level changed", zap.String("level", newCfg.LogLevel()))
		}
	})

	return app, nil
}

// WatchConfig 配置文件变更时依次调用已注册的回调
func (a *App) WatchConfig(ctx context.Context) error {
	if a.Config.File == "" {
		return nil
	}
	return configwatcher.WatchConfig(ctx, a.Config.File, func(cfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(cfg)
		}
	})
}

// Run 阻塞直到 ctx 取消，然后优雅关闭
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	if err := a.WatchConfig(ctx); err != nil {
		logger.Log.Warn("Config watcher disabled", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.Close()
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	// 等待进行中的请求结束（5秒超时）
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	a.Close()
	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Log.Info("Server exiting")
	return nil
}

// Close 释放外部连接，可重复调用
func (a *App) Close() {
	if a.queueConn != nil {
		if err := a.queueConn.Close(); err != nil {
			logger.Log.Warn("Failed to close queue connection", zap.Error(err))
		}
		a.queueConn = nil
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
		a.tracer = nil
	}
	if a.Redis != nil {
		a.Redis.Close()
		a.Redis = nil
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	_ = logger.Log.Sync()
}
