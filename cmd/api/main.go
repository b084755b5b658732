package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nickbutler25/FPLOptimizer/internal/cache"
	"github.com/nickbutler25/FPLOptimizer/internal/config"
	"github.com/nickbutler25/FPLOptimizer/internal/handlers"
	"github.com/nickbutler25/FPLOptimizer/internal/integrations/fpl"
	"github.com/nickbutler25/FPLOptimizer/internal/middleware"
	"github.com/nickbutler25/FPLOptimizer/internal/planner"
	"github.com/nickbutler25/FPLOptimizer/internal/points"
	"github.com/nickbutler25/FPLOptimizer/internal/solver"
	"github.com/nickbutler25/FPLOptimizer/pkg/logger"
)

func main() {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Level: "error", Format: "text"}).Fatal("failed to load configuration", "error", err.Error())
	}

	log := logger.New(logger.Config{Level: cfg.App.LogLevel, Format: cfg.App.LogFormat})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis connection failed, continuing without cache", "error", err.Error())
			redisClient = nil
		} else {
			log.Info("redis connected")
		}
	}

	store := cache.New(redisClient, log)
	client := fpl.NewClient(cfg.FPL, log)
	engine := points.NewEngine(log)
	adapter := solver.NewAdapter(cfg.Solver, log)
	svc := planner.NewService(client, store, engine, adapter, cfg, log)

	planHandler := handlers.NewPlanHandler(svc, cfg)
	healthHandler := handlers.NewHealthHandler(redisClient)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))

	r.GET("/health", healthHandler.Health)
	api := r.Group("/api/v1")
	{
		api.POST("/entry/:id/plan", planHandler.CreatePlan)
		api.GET("/entry/:id/squad", planHandler.GetSquad)
		api.GET("/players/:id/xp", planHandler.GetPlayerXP)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port, "env", cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err.Error())
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
