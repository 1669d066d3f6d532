package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/lottery-platform-poc/pkg/contracts/events"
)

// KafkaPublisher publica os registros públicos do motor (wager_placed e
// new_player). Dashboards e feeds consomem; o motor nunca lê de volta.
type KafkaPublisher struct {
	WagerWriter  *kafka.Writer
	PlayerWriter *kafka.Writer
}

func NewKafkaPublisher(wagerW, playerW *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{WagerWriter: wagerW, PlayerWriter: playerW}
}

func (p *KafkaPublisher) PublishWagerPlaced(ctx context.Context, e events.WagerPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.WagerWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(e.CorrelationID, 10)),
		Value: b,
	})
}

func (p *KafkaPublisher) PublishNewPlayer(ctx context.Context, e events.NewPlayer) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.PlayerWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Player),
		Value: b,
	})
}
