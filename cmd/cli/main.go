package main

import (
	"context"
	"fmt"
	"os"

	"safesphere/internal/app"
	"safesphere/internal/cli"
	"safesphere/internal/config"
	"safesphere/internal/logging"
	"safesphere/internal/queue"
	"safesphere/internal/store"
)

func main() {
	cfg := config.Load()
	// keep the terminal for the prompt; diagnostics go to stderr
	logger := logging.NewWithWriter(cfg.Env, os.Stderr)
	ctx := context.Background()

	kv, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		Dir:         cfg.StoreDir,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		RedisAddr:   cfg.RedisAddr,
		RedisPrefix: cfg.RedisPrefix,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("open store")
	}
	st := store.New(kv, logger)
	defer st.Close()

	// alerts reach the worker only through redis; without it they stay local
	var alerts queue.Queue
	if cfg.QueueBackend == "redis" {
		redisClient := store.NewRedis(cfg.RedisAddr, "")
		defer redisClient.Close()
		alerts = queue.NewRedisQueue(redisClient.Client, cfg.AlertQueueKey)
	}

	ctrl := app.New(st, alerts, logger, app.Options{})
	user, err := ctrl.Start(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: some saved data could not be read and was reset:", err)
	}
	if user != nil {
		fmt.Printf("Welcome back, %s!\n", user.Name)
	}

	cli.New(ctrl, os.Stdin, os.Stdout).Run(ctx)
}
