package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agentforge/llm-gateway/internal/cache"
	"github.com/agentforge/llm-gateway/internal/config"
	"github.com/agentforge/llm-gateway/internal/gateway"
	"github.com/agentforge/llm-gateway/internal/httpclient"
	"github.com/agentforge/llm-gateway/internal/platform/logger"
	"github.com/agentforge/llm-gateway/internal/platform/otel"
	"github.com/agentforge/llm-gateway/internal/ratelimit"
	"github.com/agentforge/llm-gateway/internal/resolver"
	"github.com/agentforge/llm-gateway/internal/secretcache"
	"github.com/agentforge/llm-gateway/internal/secrets"
	"github.com/agentforge/llm-gateway/internal/secrets/awssm"
	"github.com/agentforge/llm-gateway/internal/server"
	"github.com/agentforge/llm-gateway/internal/store"
	"github.com/agentforge/llm-gateway/internal/store/dynamo"
	"github.com/agentforge/llm-gateway/internal/store/sqlite"
	"github.com/agentforge/llm-gateway/internal/transform"

	// Import adapters to trigger init() registration
	_ "github.com/agentforge/llm-gateway/internal/transform/anthropic"
	_ "github.com/agentforge/llm-gateway/internal/transform/bedrock"
	_ "github.com/agentforge/llm-gateway/internal/transform/gemini"
	_ "github.com/agentforge/llm-gateway/internal/transform/openai"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logCfg := logger.Config{Level: "info", Format: "json"}
	if cfg.Server.Env != "production" {
		logCfg = logger.Config{Level: "debug", Format: "console"}
	}
	logger.Initialize(logCfg)
	zlog := logger.Get()
	defer func() { _ = zlog.Sync() }()

	go checkForUpdates(zlog)

	shutdownTracer, err := otel.InitTracer("llm-gateway", zlog, os.Stdout)
	if err != nil {
		zlog.Fatal("failed to initialize tracer", zap.Error(err))
	}

	configStore, err := buildStore(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize config store", zap.Error(err))
	}
	defer func() { _ = configStore.Close() }()

	secretProvider, err := buildSecrets(cfg)
	if err != nil {
		zlog.Fatal("failed to initialize secret provider", zap.Error(err))
	}

	configCache, secretStore := buildCaches(cfg)

	res := resolver.New(configStore, configCache, cfg.Cache.ConfigTTL, transform.Known, zlog)
	creds := secretcache.New(secretProvider, secretStore, cfg.Cache.SecretTTL, zlog)

	dispatcher := httpclient.NewDispatcher(
		&http.Client{},
		cfg.Dispatch,
		ratelimit.NewRegistry(),
		zlog,
	)

	svc := gateway.NewService(zlog, res, creds, dispatcher, configStore)
	srv := server.New(cfg, zlog, svc)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Handler(),
	}

	go func() {
		zlog.Info("starting llm-gateway",
			zap.String("port", cfg.Server.Port),
			zap.String("env", cfg.Server.Env),
			zap.String("store", cfg.Store.Backend),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		zlog.Error("forced shutdown", zap.Error(err))
	}
	if err := shutdownTracer(ctx); err != nil {
		zlog.Error("tracer shutdown failed", zap.Error(err))
	}
}

func buildStore(cfg *config.Config, zlog *zap.Logger) (store.ConfigStore, error) {
	switch cfg.Store.Backend {
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Store.Region))
		if err != nil {
			return nil, err
		}
		return dynamo.New(dynamodb.NewFromConfig(awsCfg), dynamo.Tables{
			Providers: cfg.Store.ProviderTable,
			Endpoints: cfg.Store.EndpointTable,
			Agents:    cfg.Store.AgentTable,
		}), nil
	default:
		zlog.Info("using sqlite config store", zap.String("dsn", cfg.Store.DSN))
		return sqlite.New(cfg.Store.DSN)
	}
}

func buildSecrets(cfg *config.Config) (secrets.Provider, error) {
	switch cfg.Secrets.Backend {
	case "secretsmanager":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Secrets.Region))
		if err != nil {
			return nil, err
		}
		return awssm.New(secretsmanager.NewFromConfig(awsCfg)), nil
	default:
		return secrets.NewEnv(), nil
	}
}

// buildCaches returns the config cache and the secret cache backend. Both
// share a Redis connection when that backend is selected.
func buildCaches(cfg *config.Config) (cache.Service, cache.Service) {
	if cfg.Cache.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		shared := cache.NewRedis(client)
		return shared, shared
	}
	return cache.NewMemory(), cache.NewMemory()
}
