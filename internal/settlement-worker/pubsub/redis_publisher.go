package pubsub

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const ChannelDrawBroadcast = "draws_broadcast"

// RedisBroadcaster empurra sorteios liquidados para o canal consumido pelo
// feed-service. Lado de leitura apenas; o motor não depende dele.
type RedisBroadcaster struct {
	r *redis.Client
}

func NewRedisBroadcaster(r *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{r: r}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.r.Publish(ctx, channel, payload).Err()
}
