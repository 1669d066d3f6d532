package producer

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/lottery-platform-poc/pkg/contracts/events"
)

// KafkaPublisher publica os registros públicos da liquidação.
type KafkaPublisher struct {
	DrawnWriter *kafka.Writer
	PrizeWriter *kafka.Writer
}

func NewKafkaPublisher(drawnW, prizeW *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{DrawnWriter: drawnW, PrizeWriter: prizeW}
}

func (p *KafkaPublisher) PublishNumbersDrawn(ctx context.Context, e events.NumbersDrawn) error {
	b, _ := json.Marshal(e)
	return p.DrawnWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(e.CorrelationID, 10)),
		Value: b,
	})
}

func (p *KafkaPublisher) PublishPrizeAwarded(ctx context.Context, e events.PrizeAwarded) error {
	b, _ := json.Marshal(e)
	return p.PrizeWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(e.CorrelationID, 10)),
		Value: b,
	})
}
