package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"school_exam_backend/internal/config"
	"school_exam_backend/internal/controller"
	"school_exam_backend/internal/repository"
	"school_exam_backend/internal/service"
	"school_exam_backend/pkg/database"
	"school_exam_backend/pkg/logger"
	"school_exam_backend/pkg/monitoring"
	"school_exam_backend/pkg/security"
	"school_exam_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	tracerProvider interface {
		Shutdown(ctx context.Context) error
	}
}

type repositories struct {
	assessment *repository.AssessmentRepository
	attempt    *repository.AttemptRepository
}

type services struct {
	assessment *service.AssessmentService
	attempt    *service.AttemptService
}

type controllers struct {
	assessment *controller.AssessmentController
	authoring  *controller.AuthoringController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		assessment: repository.NewAssessmentRepository(db),
		attempt:    repository.NewAttemptRepository(db),
	}
}

func (a *App) initServices(repos *repositories, rdb *redis.Client) *services {
	return &services{
		assessment: service.NewAssessmentService(repos.assessment, repos.attempt, rdb),
		attempt:    service.NewAttemptService(repos.assessment, repos.attempt),
	}
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		assessment: controller.NewAssessmentController(s.assessment, s.attempt),
		authoring:  controller.NewAuthoringController(s.assessment, s.attempt),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// ApplyConfig is the hot-reload hook for the config watcher. Only knobs that
// are safe to swap at runtime are picked up here; everything else needs a
// restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Config.CORS = cfg.CORS
	a.Config.RateLimit = cfg.RateLimit
	logger.Log.Info("Config reloaded",
		zap.Strings("cors_origins", cfg.CORS.AllowedOrigins),
		zap.Int("rate_limit", cfg.RateLimit.MaxRequests))
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	migrate := cfg.Server.Mode != "release" || cfg.ForceMigrate
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, rdb)
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("school-exam-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	app.registerRoutes(router, controllers, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
