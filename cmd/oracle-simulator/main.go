package main

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"encoding/json"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/lottery-platform-poc/internal/shared/config"
	"github.com/radieske/lottery-platform-poc/internal/shared/kafka"
	"github.com/radieske/lottery-platform-poc/internal/shared/logger"
	"github.com/radieske/lottery-platform-poc/internal/shared/metrics"
	"github.com/radieske/lottery-platform-poc/pkg/contracts/events"
)

// Métricas Prometheus do oráculo simulado
var (
	requestsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_requests_consumed_total",
		Help: "Pedidos de entropia consumidos",
	})
	fulfillmentsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_fulfillments_sent_total",
		Help: "Fulfillments publicados",
	})
	duplicatesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_duplicate_fulfillments_total",
		Help: "Fulfillments reentregues de propósito",
	})
)

func main() {
	cfg := config.LoadService("oracle-simulator")
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(requestsConsumed, fulfillmentsSent, duplicatesSent)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		GroupID:  "oracle-simulator",
		Topic:    cfg.TopicRandomnessRequested,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRandomnessFulfilled)
	defer writer.Close()

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(context.Context) error { return nil })
	defer metricsSrv.Close()
	log.Info("oracle simulator (metrics) running", zap.String("addr", metricsSrv.Addr))

	log.Info("oracle simulator started",
		zap.String("consume", cfg.TopicRandomnessRequested),
		zap.String("publish", cfg.TopicRandomnessFulfilled),
	)

	ctx := context.Background()

	// Loop principal: consome pedidos, gera palavras e publica o fulfillment.
	// O delay simula o tempo de confirmação do gateway de aleatoriedade real.
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		requestsConsumed.Inc()

		var req events.RandomnessRequested
		if jerr := json.Unmarshal(msg.Value, &req); jerr != nil {
			log.Error("unmarshal randomness_requested", zap.Error(jerr))
			continue
		}

		time.Sleep(time.Duration(200+rand.Intn(800)) * time.Millisecond)

		numWords := req.NumWords
		if numWords <= 0 {
			numWords = 1
		}
		words, err := randomWords(numWords)
		if err != nil {
			log.Error("entropy read", zap.Error(err))
			continue
		}

		ful := events.RandomnessFulfilled{
			CorrelationID: req.CorrelationID,
			RandomWords:   words,
			OracleKey:     cfg.OracleKey,
			TsUnixMs:      time.Now().UnixMilli(),
		}
		if err := publish(ctx, writer, &ful); err != nil {
			log.Error("publish fulfillment", zap.Int64("correlationId", req.CorrelationID), zap.Error(err))
			continue
		}
		fulfillmentsSent.Inc()
		log.Info("fulfillment published", zap.Int64("correlationId", req.CorrelationID))

		// Reentrega proposital em ~5% dos casos: o guard de idempotência do
		// settlement-worker deve rejeitar a segunda entrega sem pagar de novo.
		if rand.Intn(100) < 5 {
			if err := publish(ctx, writer, &ful); err == nil {
				duplicatesSent.Inc()
				log.Info("duplicate fulfillment delivered", zap.Int64("correlationId", req.CorrelationID))
			}
		}
	}
}

// randomWords gera n palavras de 64 bits a partir de entropia do sistema
func randomWords(n int) ([]uint64, error) {
	buf := make([]byte, 8*n)
	if _, err := crand.Read(buf); err != nil {
		return nil, err
	}
	words := make([]uint64, n)
	for i := range words {
		words[i] = binary.BigEndian.Uint64(buf[i*8 : i*8+8])
	}
	return words, nil
}

func publish(ctx context.Context, w *kafkago.Writer, ful *events.RandomnessFulfilled) error {
	b, _ := json.Marshal(ful)
	return kafka.WriteJSON(ctx, w, strconv.FormatInt(ful.CorrelationID, 10), b)
}
