package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	lhttp "github.com/radieske/lottery-platform-poc/internal/lottery-service/http"
	"github.com/radieske/lottery-platform-poc/internal/lottery-service/oracle"
	kpub "github.com/radieske/lottery-platform-poc/internal/lottery-service/producer"
	"github.com/radieske/lottery-platform-poc/internal/lottery-service/repo"
	"github.com/radieske/lottery-platform-poc/internal/shared/config"
	"github.com/radieske/lottery-platform-poc/internal/shared/db"
	"github.com/radieske/lottery-platform-poc/internal/shared/logger"
)

func main() {
	cfg := config.LoadService("lottery-service")
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Kafka writers: pedido de entropia + registros públicos de entrada
	requestWriter := kafkago.NewWriter(kafkago.WriterConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		Topic:    cfg.TopicRandomnessRequested,
		Balancer: &kafkago.LeastBytes{},
	})
	defer requestWriter.Close()

	wagerWriter := kafkago.NewWriter(kafkago.WriterConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		Topic:    cfg.TopicWagerPlaced,
		Balancer: &kafkago.LeastBytes{},
	})
	defer wagerWriter.Close()

	playerWriter := kafkago.NewWriter(kafkago.WriterConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		Topic:    cfg.TopicNewPlayer,
		Balancer: &kafkago.LeastBytes{},
	})
	defer playerWriter.Close()

	// deps
	repository := repo.NewPostgres(pg)
	gateway := oracle.NewKafkaGateway(requestWriter)
	publ := kpub.NewKafkaPublisher(wagerWriter, playerWriter)

	// HTTP público (apostas, consultas e governança)
	api := lhttp.NewServer(log, repository, gateway, publ, cfg.OwnerToken)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.PingContext(ctx); err != nil {
			http.Error(w, "pg", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() {
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, metricsMux)
	}()

	log.Info("lottery-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
