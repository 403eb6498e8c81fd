package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"coduel/internal/common/cache"
	"coduel/internal/judge/pipeline"
	"coduel/internal/judge/sandbox"
	"coduel/internal/judge/store"
	"coduel/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judge_worker.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	jobStore := store.NewJobStore(redisCache)
	launcher := sandbox.NewDockerLauncher(appCfg.Sandbox)
	worker := pipeline.NewWorker(jobStore, launcher, appCfg.Pipeline)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "worker started",
		zap.String("image", appCfg.Sandbox.Image),
		zap.String("redis", appCfg.Redis.Addr))
	worker.Loop(ctx)
}
