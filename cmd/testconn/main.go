package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/agentforge/llm-gateway/internal/cache"
	"github.com/agentforge/llm-gateway/internal/config"
	"github.com/agentforge/llm-gateway/internal/gateway"
	"github.com/agentforge/llm-gateway/internal/httpclient"
	"github.com/agentforge/llm-gateway/internal/platform/logger"
	"github.com/agentforge/llm-gateway/internal/ratelimit"
	"github.com/agentforge/llm-gateway/internal/resolver"
	"github.com/agentforge/llm-gateway/internal/secretcache"
	"github.com/agentforge/llm-gateway/internal/secrets"
	"github.com/agentforge/llm-gateway/internal/store/sqlite"
	"github.com/agentforge/llm-gateway/internal/transform"

	_ "github.com/agentforge/llm-gateway/internal/transform/anthropic"
	_ "github.com/agentforge/llm-gateway/internal/transform/bedrock"
	_ "github.com/agentforge/llm-gateway/internal/transform/gemini"
	_ "github.com/agentforge/llm-gateway/internal/transform/openai"
)

// Operator tool: probes one or more configured endpoints directly against
// the sqlite store, without going through the HTTP surface.
//
//	testconn -dsn gateway.db endpoint-a endpoint-b
func main() {
	dsn := flag.String("dsn", "gateway.db", "sqlite DSN of the config store")
	timeout := flag.Duration("timeout", 30*time.Second, "probe timeout per endpoint")
	flag.Parse()

	endpoints := flag.Args()
	if len(endpoints) == 0 {
		fmt.Fprintln(os.Stderr, "usage: testconn [-dsn file] endpoint-id [endpoint-id...]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Initialize(logger.Config{Level: "warn", Format: "console"})
	zlog := logger.Get()
	defer func() { _ = zlog.Sync() }()

	configStore, err := sqlite.New(*dsn)
	if err != nil {
		zlog.Fatal("failed to open config store", zap.Error(err))
	}
	defer func() { _ = configStore.Close() }()

	res := resolver.New(configStore, cache.NewMemory(), cfg.Cache.ConfigTTL, transform.Known, zlog)
	creds := secretcache.New(secrets.NewEnv(), cache.NewMemory(), cfg.Cache.SecretTTL, zlog)
	dispatcher := httpclient.NewDispatcher(&http.Client{}, cfg.Dispatch, ratelimit.NewRegistry(), zlog)
	svc := gateway.NewService(zlog, res, creds, dispatcher, configStore)

	failed := 0
	for _, id := range endpoints {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		result := svc.TestConnection(ctx, id)
		cancel()

		if result.Success {
			fmt.Printf("ok      %-30s %dms\n", id, result.LatencyMS)
			continue
		}
		failed++
		fmt.Printf("FAILED  %-30s %s\n", id, result.Error)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
