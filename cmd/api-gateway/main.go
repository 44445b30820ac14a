package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/dayoff-api/api/swagger"
	"github.com/noah-isme/dayoff-api/internal/handler"
	internalmiddleware "github.com/noah-isme/dayoff-api/internal/middleware"
	"github.com/noah-isme/dayoff-api/internal/repository"
	"github.com/noah-isme/dayoff-api/internal/service"
	"github.com/noah-isme/dayoff-api/pkg/cache"
	"github.com/noah-isme/dayoff-api/pkg/config"
	"github.com/noah-isme/dayoff-api/pkg/database"
	"github.com/noah-isme/dayoff-api/pkg/export"
	"github.com/noah-isme/dayoff-api/pkg/jobs"
	"github.com/noah-isme/dayoff-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/dayoff-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/dayoff-api/pkg/middleware/requestid"
	"github.com/noah-isme/dayoff-api/pkg/textgen"
)

// @title Dayoff API
// @version 1.0.0
// @description Multi-stage leave approval for students and staff
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, overview cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		checks["redis"] = func(c *gin.Context) error {
			return redisClient.Ping(c.Request.Context()).Err()
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Leaves.OverviewCacheTTL, logr, cfg.Leaves.OverviewCache && redisClient != nil)

	sink, db := auditSink(ctx, cfg, logr)
	if db != nil {
		defer db.Close() //nolint:errcheck
		checks["postgres"] = func(c *gin.Context) error {
			return db.PingContext(c.Request.Context())
		}
	}
	dispatcher := service.NewAuditDispatcher(sink, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		MaxRetries: cfg.Audit.Retries,
		Logger:     logr,
	}, logr, service.WithAuditMetrics(metricsSvc))
	dispatcher.Start(context.Background())

	var generator service.TextGenerator
	if cfg.TextGen.Enabled {
		generator = textgen.NewYandexGPT(cfg.TextGen)
	} else {
		logr.Info("text generation disabled, fallback letters and summaries in use")
	}
	enricher := service.NewEnricher(generator, cfg.TextGen.Timeout, metricsSvc, logr)
	builder := service.NewSubmissionBuilder(validate, enricher, service.WithMaxLeaveDays(cfg.Leaves.MaxDays))

	leaveSvc := service.NewLeaveService(repository.NewLeaveRegistry(), builder, validate, logr,
		service.WithOverviewCache(cacheSvc, cfg.Leaves.OverviewCacheTTL),
		service.WithLeaveAudit(dispatcher),
		service.WithLeaveMetrics(metricsSvc),
	)
	exportSvc := service.NewExportService(leaveSvc, logr, export.NewCSVExporter(), export.NewPDFExporter())
	sessionSvc := service.NewSessionService(repository.NewUserDirectory(repository.DefaultDirectoryUsers), validate, dispatcher, logr, service.SessionConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: "dayoff-api",
	})

	authHandler := handler.NewAuthHandler(sessionSvc)
	leaveHandler := handler.NewLeaveHandler(leaveSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	submitLimiter := internalmiddleware.NewRateLimiter(cfg.Leaves.SubmitRatePerMinute, cfg.Leaves.SubmitBurst, logr)
	submitLimiter.StartCleanup(ctx, time.Minute)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, internalmiddleware.LogFields))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/session", authHandler.Session)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(sessionSvc))
	secured.GET("/auth/me", authHandler.Me)

	leaves := secured.Group("/leaves")
	leaves.POST("", submitLimiter.Handler(), leaveHandler.Submit)
	leaves.GET("/mine", leaveHandler.Mine)

	staff := leaves.Group("")
	staff.Use(internalmiddleware.StaffOnly())
	staff.GET("/inbox", leaveHandler.Inbox)
	staff.GET("/archive", leaveHandler.Archive)
	staff.GET("/archive/export", leaveHandler.Export)
	staff.GET("/overview", leaveHandler.Overview)
	staff.GET("/:id/turn", leaveHandler.Turn)
	staff.POST("/:id/decision", leaveHandler.Decide)

	leaves.GET("/:id", leaveHandler.Get)
	leaves.GET("/:id/letter", leaveHandler.Letter)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("server shutdown", zap.Error(err))
	}
	dispatcher.Stop()
}

// auditSink picks the configured audit destination, falling back to the log sink when Postgres is unreachable.
func auditSink(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.AuditSink, *sqlx.DB) {
	if cfg.Audit.Sink != config.AuditSinkPostgres {
		return service.NewLogAuditSink(logr), nil
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Warn("postgres audit sink unavailable, logging audit records instead", zap.Error(err))
		return service.NewLogAuditSink(logr), nil
	}
	return repository.NewAuditRepository(db), db
}
