package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/lottery-platform-poc/internal/lottery-service/repo"
	worker "github.com/radieske/lottery-platform-poc/internal/settlement-worker"
	sprod "github.com/radieske/lottery-platform-poc/internal/settlement-worker/producer"
	"github.com/radieske/lottery-platform-poc/internal/settlement-worker/pubsub"
	"github.com/radieske/lottery-platform-poc/internal/shared/cache"
	"github.com/radieske/lottery-platform-poc/internal/shared/config"
	"github.com/radieske/lottery-platform-poc/internal/shared/db"
	"github.com/radieske/lottery-platform-poc/internal/shared/kafka"
	"github.com/radieske/lottery-platform-poc/internal/shared/logger"
)

// Métricas Prometheus do pipeline de liquidação
var (
	fulfillmentsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_fulfillments_consumed_total",
		Help: "Fulfillments do oráculo consumidos",
	})
	wagersSettled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_wagers_settled_total",
		Help: "Apostas liquidadas com sucesso",
	})
	fulfillmentsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_fulfillments_rejected_total",
		Help: "Fulfillments rejeitados (id desconhecido ou já liquidado)",
	})
	settlementErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_errors_total",
		Help: "Erros por fase do pipeline",
	}, []string{"phase"})
)

func main() {
	cfg := config.LoadService("settlement-worker")
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(fulfillmentsConsumed, wagersSettled, fulfillmentsRejected, settlementErrors)

	// Postgres: a liquidação roda em uma única transação contra o lottery_core
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: broadcast dos sorteios para o feed-service
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka consumer: fulfillments do oráculo
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		GroupID:  "settlement-worker",
		Topic:    cfg.TopicRandomnessFulfilled,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	// Kafka producers: registros públicos da liquidação + DLQ
	drawnWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicNumbersDrawn)
	defer drawnWriter.Close()
	prizeWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPrizeAwarded)
	defer prizeWriter.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicRandomnessFulfilledDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRandomnessFulfilledDLQ)
		defer dlqWriter.Close()
	}

	// Servidor HTTP para métricas Prometheus e healthcheck
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			if err := pg.PingContext(ctx); err != nil {
				http.Error(w, "pg", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := ":" + cfg.MetricsPort
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mux)
	}()

	w := &worker.Worker{
		Log:       log,
		Reader:    reader,
		Settler:   repo.NewPostgres(pg),
		Publisher: sprod.NewKafkaPublisher(drawnWriter, prizeWriter),
		Broadcast: pubsub.NewRedisBroadcaster(rdb),
		OracleKey: cfg.OracleKey,
		Channel:   cfg.RedisDrawChannel,

		OnConsumed: fulfillmentsConsumed.Inc,
		OnSettled:  wagersSettled.Inc,
		OnRejected: fulfillmentsRejected.Inc,
		OnError: func(phase string) {
			settlementErrors.WithLabelValues(phase).Inc()
		},
	}
	if dlqWriter != nil {
		w.DLQ = dlqWriter
	}

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicRandomnessFulfilled),
		zap.String("publish", cfg.TopicNumbersDrawn),
	)

	if err := w.Run(context.Background()); err != nil {
		log.Fatal("worker stopped", zap.Error(err))
	}
}
