package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"safesphere/internal/app"
	"safesphere/internal/config"
	"safesphere/internal/handler"
	"safesphere/internal/httpmiddleware"
	"safesphere/internal/logging"
	"safesphere/internal/queue"
	"safesphere/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)

	if logging.IsProduction(cfg.Env) {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		Dir:         cfg.StoreDir,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		RedisAddr:   cfg.RedisAddr,
		RedisPrefix: cfg.RedisPrefix,
	})
	if err != nil {
		return err
	}
	st := store.New(kv, logger)
	defer st.Close()

	var alerts queue.Queue
	var redisQueue *store.Redis
	if cfg.QueueBackend == "redis" {
		redisQueue = store.NewRedis(cfg.RedisAddr, "")
		defer redisQueue.Close()
		alerts = queue.NewRedisQueue(redisQueue.Client, cfg.AlertQueueKey)
	} else {
		mem := queue.NewInMemory(64)
		alerts = mem
		escalations := logger.With().Str("component", "alerts").Logger()
		go func() {
			if err := queue.Escalate(ctx, mem, escalations); err != nil {
				escalations.Error().Err(err).Msg("alert escalation stopped")
			}
		}()
	}

	ctrl := app.New(st, alerts, logger, app.Options{})
	if user, err := ctrl.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("started with storage errors")
	} else if user != nil {
		logger.Info().Str("user_id", user.UserID).Msg("session restored")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		status := http.StatusOK
		redisHealthy := true
		if redisQueue != nil {
			redisHealthy = redisQueue.Healthy(c.Request.Context())
		}
		if !redisHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "store": cfg.StoreBackend, "alert_queue": redisHealthy})
	})

	limiter := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin/6, cfg.RateLimitPerMin)
	handler.New(ctrl, handler.Config{
		JWTIssuer:     cfg.JWTIssuer,
		JWTSigningKey: cfg.JWTSigningKey,
		AccessTTL:     cfg.AccessTTL,
		QRSize:        cfg.QRSize,
	}, limiter, logger).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced shutdown")
	}

	logger.Info().Msg("server exited")
	return nil
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
