package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/lottery-platform-poc/internal/feed-service/ws"
	"github.com/radieske/lottery-platform-poc/internal/shared/cache"
	"github.com/radieske/lottery-platform-poc/internal/shared/config"
	"github.com/radieske/lottery-platform-poc/internal/shared/logger"
	"github.com/radieske/lottery-platform-poc/internal/shared/metrics"
)

func main() {
	cfg := config.LoadService("feed-service")
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Redis: origem do feed de sorteios publicado pelo settlement-worker
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := ws.NewHub(func(*http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, rdb, cfg.RedisDrawChannel, hub)

	// HTTP público: só o endpoint WebSocket do feed
	appMux := http.NewServeMux()
	appMux.HandleFunc("/ws", hub.HandleWS)

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(hctx context.Context) error {
		return rdb.Ping(hctx).Err()
	})
	defer metricsSrv.Close()
	log.Info("metrics/health", zap.String("addr", metricsSrv.Addr))

	addr := ":" + cfg.HTTPPort
	log.Info("feed-service listening", zap.String("addr", addr), zap.String("channel", cfg.RedisDrawChannel))
	if err := http.ListenAndServe(addr, appMux); err != nil && err != http.ErrServerClosed {
		log.Fatal("feed server failed", zap.Error(err))
	}
}
