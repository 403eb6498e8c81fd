package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"coduel/internal/common/cache"
	"coduel/internal/judge/pipeline"
	"coduel/internal/judge/sandbox"
	"coduel/pkg/utils/logger"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
)

// AppConfig holds judge-worker config.
type AppConfig struct {
	Logger   logger.Config     `yaml:"logger"`
	Redis    cache.RedisConfig `yaml:"redis"`
	Sandbox  sandbox.Config    `yaml:"sandbox"`
	Pipeline pipeline.Config   `yaml:"pipeline"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file failed: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	applyRedisDefaults(&cfg.Redis)
	if cfg.Logger.Service == "" {
		cfg.Logger.Service = "judge-worker"
	}
	return &cfg, nil
}

// applyEnvOverrides lets the deployment set the operational knobs without
// a config file.
func applyEnvOverrides(cfg *AppConfig) error {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	} else if host := os.Getenv("REDIS_HOST"); host != "" {
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		cfg.Redis.Addr = host + ":" + port
	}
	if v := os.Getenv("JUDGE_IMAGE"); v != "" {
		cfg.Sandbox.Image = v
	}
	if v := os.Getenv("CPU_LIMIT"); v != "" {
		cfg.Sandbox.CPULimit = v
	}
	if v := os.Getenv("MEM_LIMIT"); v != "" {
		cfg.Sandbox.MemLimit = v
	}
	if v := os.Getenv("SANDBOX_EXTRA_ARGS"); v != "" {
		args, err := shlex.Split(v)
		if err != nil {
			return fmt.Errorf("parse SANDBOX_EXTRA_ARGS failed: %w", err)
		}
		cfg.Sandbox.ExtraArgs = args
	}
	if d, err := envDuration("SANDBOX_TIMEOUT"); err != nil {
		return err
	} else if d > 0 {
		cfg.Sandbox.Timeout = d
	}
	if d, err := envDuration("COMPILE_TIMEOUT"); err != nil {
		return err
	} else if d > 0 {
		cfg.Pipeline.CompileTimeout = d
	}
	if d, err := envDuration("RUN_TIMEOUT"); err != nil {
		return err
	} else if d > 0 {
		cfg.Pipeline.RunTimeout = d
	}
	if v := os.Getenv("JOB_TMP_ROOT"); v != "" {
		cfg.Pipeline.JobRoot = v
	}
	if v := os.Getenv("HOST_JOB_TMP_ROOT"); v != "" {
		cfg.Pipeline.HostJobRoot = v
	}
	if v := os.Getenv("PROBLEMS_ROOT"); v != "" {
		cfg.Pipeline.ProblemsRoot = v
	}
	if v := os.Getenv("HOST_PROBLEMS_ROOT"); v != "" {
		cfg.Pipeline.HostProblemsRoot = v
	}
	if v := os.Getenv("RUNS_PER_TEST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid RUNS_PER_TEST: %q", v)
		}
		cfg.Pipeline.RunsPerTest = n
	}
	return nil
}

// envDuration reads a duration env var, accepting both "60s" and bare
// seconds ("60").
func envDuration(name string) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid %s: %q", name, v)
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.MinRetryBackoff == 0 {
		cfg.MinRetryBackoff = defaults.MinRetryBackoff
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = defaults.MaxRetryBackoff
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
	if cfg.PoolTimeout == 0 {
		cfg.PoolTimeout = defaults.PoolTimeout
	}
}
