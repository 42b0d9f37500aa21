package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"safesphere/internal/config"
	"safesphere/internal/logging"
	"safesphere/internal/queue"
	"safesphere/internal/store"
)

// Worker drains the alert queue and escalates incidents and SOS alerts to
// the security desk log.
func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env).With().Str("component", "worker").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend != "redis" {
		logger.Fatal().Msg("worker needs QUEUE_BACKEND=redis; the in-memory queue lives inside the api process")
	}
	redisClient := store.NewRedis(cfg.RedisAddr, "")
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		logger.Warn().Str("addr", cfg.RedisAddr).Msg("redis not reachable yet, will keep polling")
	}

	q := queue.NewRedisQueue(redisClient.Client, cfg.AlertQueueKey)
	logger.Info().Msg("worker started, waiting for alerts...")
	if err := queue.Escalate(ctx, q, logger); err != nil {
		logger.Fatal().Err(err).Msg("queue consume init failed")
	}

	logger.Info().Msg("worker stopped")
}
