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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/training-crm-console/api/swagger"
	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/handler"
	internalmiddleware "github.com/noah-isme/training-crm-console/internal/middleware"
	"github.com/noah-isme/training-crm-console/internal/models"
	"github.com/noah-isme/training-crm-console/internal/repository"
	"github.com/noah-isme/training-crm-console/internal/service"
	"github.com/noah-isme/training-crm-console/pkg/cache"
	"github.com/noah-isme/training-crm-console/pkg/config"
	"github.com/noah-isme/training-crm-console/pkg/debounce"
	"github.com/noah-isme/training-crm-console/pkg/jobs"
	"github.com/noah-isme/training-crm-console/pkg/logger"
	corsmiddleware "github.com/noah-isme/training-crm-console/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/training-crm-console/pkg/middleware/requestid"
	"github.com/noah-isme/training-crm-console/pkg/upstream"
)

// @title Training CRM Console Gateway
// @version 1.0.0
// @description Backend for the training center console: customer status changes, trial scheduling and follow-up reminders.
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

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

	metrics := service.NewMetricsService()
	validate := validator.New()
	client := upstream.NewClient(cfg.Upstream, logr.Named("upstream"), upstream.WithObserver(metrics))

	readiness := map[string]handler.ReadinessCheck{}
	var cacheRepo service.CacheRepository = repository.NewMemoryCacheRepository()
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("redis unavailable", zap.Error(err))
		}
		redisRepo := repository.NewRedisCacheRepository(rdb, "console:", logr.Named("cache"))
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
		readiness["redis"] = func(ctx context.Context) error { return pingRedis(ctx, rdb) }
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Schedules.WeekTTL, logr.Named("cache"), true)
	schedules := service.NewScheduleService(client, cacheSvc, cfg.Schedules.WeekTTL, cfg.Schedules.TemplateTTL, logr.Named("schedules"))

	historyProjection := repository.NewHistoryProjection()
	todoProjection := repository.NewTodoProjection()

	refreshWorker := service.NewLedgerRefreshWorker(client, historyProjection, logr.Named("ledger_refresh"))
	refreshQueue := jobs.NewQueue("ledger_refresh", refreshWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reconcile.Workers,
		BufferSize: cfg.Reconcile.BufferSize,
		Logger:     logr.Named("jobs"),
	})
	refreshQueue.Start(ctx)
	defer refreshQueue.Stop()

	ledger := service.NewHistoryLedgerService(client, historyProjection, refreshQueue, schedules, validate, logr.Named("ledger"))
	reminders := service.NewReminderService(client, todoProjection, validate, logr.Named("reminders"))
	trials := service.NewTrialScheduleResolver(client, logr.Named("trials"))
	transitions := service.NewStatusTransitionService(client, ledger, reminders, schedules, metrics, validate, logr.Named("status"))
	customers := service.NewCustomerSearchService(client, debounce.New(cfg.Search.Debounce), logr.Named("search"))

	var due interface{ Due() dto.DueReminders }
	if cfg.Reminders.Enabled {
		sweep := service.NewReminderSweepService(client, metrics, cfg.Reminders.Cron, cfg.Upstream.ServiceToken, logr.Named("reminder_sweep"))
		if err := sweep.Start(ctx); err != nil {
			logr.Fatal("failed to start reminder sweep", zap.Error(err))
		}
		defer sweep.Stop()
		due = sweep
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, readiness)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	routes := consoleRoutes{
		customers: handler.NewCustomerHandler(customers),
		status:    handler.NewStatusHandler(transitions),
		history:   handler.NewHistoryHandler(ledger),
		reminders: handler.NewReminderHandler(reminders, due),
		schedules: handler.NewScheduleHandler(schedules, trials, ledger),
	}
	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	api.Use(internalmiddleware.Session(internalmiddleware.SessionOptions{
		Secret:    cfg.Session.JWTSecret,
		LoginPath: cfg.Session.LoginPath,
	}))
	routes.register(api)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("upstream", cfg.Upstream.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type consoleRoutes struct {
	customers *handler.CustomerHandler
	status    *handler.StatusHandler
	history   *handler.HistoryHandler
	reminders *handler.ReminderHandler
	schedules *handler.ScheduleHandler
}

func (rt consoleRoutes) register(api *gin.RouterGroup) {
	customers := api.Group("/customers")
	customers.GET("", rt.customers.Search)
	customers.GET("/:id", rt.customers.Get)
	customers.POST("/:id/status-changes", rt.status.Submit)

	customers.GET("/:id/status-history", rt.history.List)
	customers.GET("/:id/status-history/export", rt.history.Export)
	customers.PUT("/:id/status-history/:historyId/notes", rt.history.UpdateNotes)
	customers.PUT("/:id/status-history/:historyId/trial", internalmiddleware.RequireScheduling(), rt.history.UpdateTrial)
	customers.DELETE("/:id/status-history/:historyId", rt.history.Delete)
	customers.POST("/:id/status-history/:historyId/cancel-trial", rt.history.CancelTrial)
	customers.POST("/:id/status-history/:historyId/complete-trial", rt.history.CompleteTrial)

	customers.GET("/:id/reminder", rt.reminders.Get)
	customers.PUT("/:id/reminder", rt.reminders.Upsert)
	customers.DELETE("/:id/reminder", rt.reminders.CancelForCustomer)

	todos := api.Group("/todos")
	todos.POST("", rt.reminders.Create)
	todos.GET("/due", rt.reminders.Due)
	todos.DELETE("/:id", rt.reminders.Cancel)
	todos.POST("/:id/complete", rt.reminders.Complete)

	schedules := api.Group("/schedules")
	schedules.GET("/week", rt.schedules.Week)
	schedules.GET("/templates", rt.schedules.Templates)
	schedules.GET("/available-coaches", internalmiddleware.RequireScheduling(), rt.schedules.AvailableCoaches)
	schedules.GET("/trial-selection", rt.schedules.EvaluateTrial)
	schedules.DELETE("/cache", internalmiddleware.RequirePositions(models.PositionManager, models.PositionAdmin, models.PositionSuperAdmin), rt.schedules.InvalidateCache)
}

func pingRedis(ctx context.Context, rdb *redis.Client) error {
	return rdb.Ping(ctx).Err()
}
