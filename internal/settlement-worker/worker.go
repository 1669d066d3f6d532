package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/lottery-platform-poc/internal/lottery-service/repo"
	"github.com/radieske/lottery-platform-poc/pkg/contracts/events"
)

// Settler liquida uma aposta pendente a partir das palavras do oráculo.
type Settler interface {
	SettleWager(ctx context.Context, correlationID int64, words []uint64) (repo.SettlementResult, error)
}

// Publisher publica os registros públicos da liquidação.
type Publisher interface {
	PublishNumbersDrawn(ctx context.Context, e events.NumbersDrawn) error
	PublishPrizeAwarded(ctx context.Context, e events.PrizeAwarded) error
}

// Broadcaster empurra o sorteio liquidado para o canal de broadcast (feeds).
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// DLQWriter é satisfeita por *kafka.Writer.
type DLQWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Worker consome fulfillments do oráculo e executa a liquidação. O flag
// settled no banco faz a segunda entrega do mesmo id virar rejeição, não um
// segundo pagamento.
type Worker struct {
	Log       *zap.Logger
	Reader    *kafka.Reader
	Settler   Settler
	Publisher Publisher
	Broadcast Broadcaster // opcional
	DLQ       DLQWriter   // opcional
	OracleKey string
	Channel   string

	OnConsumed func()       // métricas (counter++)
	OnSettled  func()       // métricas
	OnRejected func()       // métricas (estado: id desconhecido/já liquidado)
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e liquidação.
func (w *Worker) Run(ctx context.Context) error {
	for {
		m, err := w.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			w.Log.Warn("kafka read failed", zap.Error(err))
			w.phaseError("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if w.OnConsumed != nil {
			w.OnConsumed()
		}

		var ev events.RandomnessFulfilled
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			w.Log.Warn("invalid fulfillment message", zap.Error(err))
			w.phaseError("decode")
			w.toDLQ(ctx, m.Value)
			continue
		}

		w.HandleFulfillment(ctx, &ev)
	}
}

// HandleFulfillment processa um fulfillment:
//  1. autoriza a origem (chave do oráculo)
//  2. liquida na mesma transação (sorteio, score, payout)
//  3. publica numbers_drawn e, se houver prêmio, prize_awarded
//  4. broadcast do sorteio para o feed
func (w *Worker) HandleFulfillment(ctx context.Context, ev *events.RandomnessFulfilled) {
	log := w.Log.With(zap.Int64("correlationId", ev.CorrelationID))

	// Qualquer origem que não seja o gateway configurado é rejeitada
	if ev.OracleKey != w.OracleKey {
		log.Warn("fulfillment from unauthorized caller dropped")
		w.phaseError("auth")
		return
	}
	if len(ev.RandomWords) == 0 {
		log.Warn("fulfillment without random words")
		w.phaseError("decode")
		w.toDLQ(ctx, mustJSON(ev))
		return
	}

	res, err := w.settleWithRetry(ctx, ev)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrWagerNotFound), errors.Is(err, repo.ErrAlreadySettled):
			// Guard de idempotência: rejeita sem retry; a política de
			// reentrega do gateway é problema do gateway.
			log.Info("fulfillment rejected", zap.String("reason", err.Error()))
			if w.OnRejected != nil {
				w.OnRejected()
			}
		case errors.Is(err, repo.ErrPoolShortfall):
			// Integridade: payout maior que o pool indica defeito de
			// contabilidade. A transação abortou inteira; nada foi pago e a
			// aposta segue não liquidada para investigação.
			log.Error("pool shortfall at disbursement, settlement halted", zap.Error(err))
			w.phaseError("integrity")
			w.toDLQ(ctx, mustJSON(ev))
		default:
			log.Error("settlement failed", zap.Error(err))
			w.phaseError("settle")
			w.toDLQ(ctx, mustJSON(ev))
		}
		return
	}

	if w.OnSettled != nil {
		w.OnSettled()
	}
	log.Info("wager settled",
		zap.Int("matches", res.MatchCount),
		zap.Int64("payout", res.Payout),
	)

	drawn := events.NumbersDrawn{
		CorrelationID: res.CorrelationID,
		DrawnNumbers:  toInts(res.DrawnNumbers),
		Ts:            time.Now(),
	}
	if err := w.Publisher.PublishNumbersDrawn(ctx, drawn); err != nil {
		log.Warn("numbers_drawn publish failed", zap.Error(err))
		w.phaseError("publish")
	}
	if res.Payout > 0 {
		if err := w.Publisher.PublishPrizeAwarded(ctx, events.PrizeAwarded{
			CorrelationID: res.CorrelationID,
			Player:        res.Player,
			Payout:        res.Payout,
			MatchCount:    res.MatchCount,
			Ts:            time.Now(),
		}); err != nil {
			log.Warn("prize_awarded publish failed", zap.Error(err))
			w.phaseError("publish")
		}
	}

	if w.Broadcast != nil {
		if err := w.Broadcast.Publish(ctx, w.Channel, mustJSON(drawn)); err != nil {
			log.Warn("draw broadcast failed", zap.Error(err))
			w.phaseError("broadcast")
		}
	}
}

// settleWithRetry tenta a liquidação com backoff simples para falhas
// transitórias; erros de estado e de integridade não são retentados.
func (w *Worker) settleWithRetry(ctx context.Context, ev *events.RandomnessFulfilled) (repo.SettlementResult, error) {
	const retries = 3

	res, err := w.Settler.SettleWager(ctx, ev.CorrelationID, ev.RandomWords)
	for i := 0; i < retries && err != nil && isTransient(err); i++ {
		time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
		res, err = w.Settler.SettleWager(ctx, ev.CorrelationID, ev.RandomWords)
	}
	return res, err
}

func isTransient(err error) bool {
	return !errors.Is(err, repo.ErrWagerNotFound) &&
		!errors.Is(err, repo.ErrAlreadySettled) &&
		!errors.Is(err, repo.ErrPoolShortfall)
}

func (w *Worker) toDLQ(ctx context.Context, payload []byte) {
	if w.DLQ == nil {
		return
	}
	if err := w.DLQ.WriteMessages(ctx, kafka.Message{Value: payload, Time: time.Now()}); err != nil {
		w.Log.Error("dlq write failed", zap.Error(err))
	}
}

func (w *Worker) phaseError(phase string) {
	if w.OnError != nil {
		w.OnError(phase)
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// toInts converte os números internos ([]uint8) para o tipo de wire; []uint8
// é []byte para o encoding/json e sairia como base64.
func toInts(in []uint8) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
