package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"degenecho/internal/auth"
	"degenecho/internal/config"
	cronrunner "degenecho/internal/cron"
	"degenecho/internal/db"
	"degenecho/internal/events"
	"degenecho/internal/handler"
	"degenecho/internal/logger"
	"degenecho/internal/repository"
	gormrepository "degenecho/internal/repository/gorm"
	"degenecho/internal/repository/memory"
	"degenecho/internal/service"

	_ "degenecho/docs"
)

func main() {
	cfgPath := os.Getenv("DE_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("DE_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log, zap.String("service", "degenecho"))
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store repository.Repository
		ping  func(context.Context) error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.DB.Driver)) {
	case "memory":
		logger.Warn("using in-memory store; state is lost on restart")
		store = memory.New()
	default:
		dbConn, err := db.OpenWithRetry(ctx, cfg.DB, logger)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer db.Close(dbConn)
		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		store = gormrepository.New(dbConn.Gorm)
		ping = func(ctx context.Context) error {
			return dbConn.SQL.PingContext(ctx)
		}
	}

	hub := events.NewHub(32)
	publishers := events.Fanout{hub}
	if cfg.Redis.Enabled {
		redisPub, err := events.NewRedisPublisher(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis publisher disabled", zap.Error(err))
		} else {
			defer redisPub.Close()
			publishers = append(publishers, redisPub)
		}
	}

	wagerService := &service.WagerService{
		Repo:         store,
		Publisher:    publishers,
		Logger:       logger,
		DefaultVault: cfg.Ledger.DefaultVault,
		MaxAirdrop:   cfg.Ledger.MaxAirdrop,
	}
	queryService := &service.PollQueryService{Repo: store}
	reconciler := &service.Reconciler{Repo: store, Logger: logger}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if !cfg.Auth.Disabled && strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatal("auth.jwt_secret is required unless auth.disabled is set")
	}
	if cfg.Auth.Disabled {
		logger.Warn("bearer auth disabled; callers are identified by header", zap.String("header", auth.DevIdentityHeader))
	}
	verifier := auth.JWT{Secret: []byte(cfg.Auth.JWTSecret), Issuer: cfg.Auth.Issuer}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(handler.CORSMiddleware())
	engine.Use(auth.RequireBearerMiddleware(verifier, cfg.Auth.Disabled))
	engine.Use(handler.WriteAuditMiddleware(logger))

	healthHandler := &handler.HealthHandler{Ping: ping}
	healthHandler.Register(engine)
	handler.RegisterDocs(engine)
	pollHandler := &handler.PollHandler{
		Wager:  wagerService,
		Query:  queryService,
		Hub:    hub,
		Logger: logger,
	}
	pollHandler.Register(engine)
	accountHandler := &handler.AccountHandler{Query: queryService}
	accountHandler.Register(engine)
	adminHandler := &handler.AdminHandler{
		Wager:      wagerService,
		Reconciler: reconciler,
		Logger:     logger,
	}
	adminHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		_, err = cronRunner.Add("reconcile", cfg.Cron.Reconcile, func(ctx context.Context) {
			report, err := reconciler.RunOnce(ctx)
			if err != nil {
				logger.Warn("cron reconcile failed", zap.Error(err))
				return
			}
			if !report.OK() {
				logger.Error("cron reconcile found mismatches", zap.Int("mismatches", len(report.Mismatches)))
			}
		})
		if err != nil {
			logger.Warn("cron register reconcile failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
