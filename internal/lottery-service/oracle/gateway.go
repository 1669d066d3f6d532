package oracle

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/lottery-platform-poc/pkg/contracts/events"
)

// Gateway é a borda com o oráculo de aleatoriedade: emite o correlation id no
// momento do pedido e publica a requisição no tópico do oráculo. O id é
// emitido ANTES da transação de entrada e o pedido publicado DEPOIS do commit,
// então um fulfillment nunca enxerga um id sem aposta correspondente.
type Gateway interface {
	NewRequestID() (int64, error)
	PublishRequest(ctx context.Context, req events.RandomnessRequested) error
}

// KafkaGateway publica pedidos de entropia via Kafka.
type KafkaGateway struct {
	Writer *kafka.Writer
}

func NewKafkaGateway(w *kafka.Writer) *KafkaGateway { return &KafkaGateway{Writer: w} }

// NewRequestID emite um correlation id opaco de 63 bits (cabe em BIGINT).
func (g *KafkaGateway) NewRequestID() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	id := int64(binary.BigEndian.Uint64(buf[:]) >> 1)
	if id == 0 {
		id = 1
	}
	return id, nil
}

func (g *KafkaGateway) PublishRequest(ctx context.Context, req events.RandomnessRequested) error {
	req.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(req)
	return g.Writer.WriteMessages(ctx, kafka.Message{Value: b})
}
