package chat

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Publisher is the path a session takes after a successful append. The local
// publisher fans out in-process; the Redis bridge routes through a channel so
// every server instance (this one included) delivers from the same stream,
// which keeps live ordering identical across instances.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// LocalPublisher hands messages straight to the broker. Used when no Redis
// address is configured (single-node deployments and tests).
type LocalPublisher struct {
	broker *Broker
}

func NewLocalPublisher(broker *Broker) *LocalPublisher {
	return &LocalPublisher{broker: broker}
}

func (p *LocalPublisher) Publish(ctx context.Context, msg *Message) error {
	p.broker.Publish(msg.RoomKey, msg)
	return nil
}

const channelPrefix = "chat:"

// RedisBridge publishes to one Redis channel per room key and feeds everything
// received on chat:* back into the local broker. Our own publishes come back
// through the subscription too — that is the delivery path, not a duplicate.
type RedisBridge struct {
	rdb        *redis.Client
	broker     *Broker
	instanceID string
	log        zerolog.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

type bridgeEnvelope struct {
	Origin  string   `json:"origin"`
	Message *Message `json:"message"`
}

func NewRedisBridge(rdb *redis.Client, broker *Broker, log zerolog.Logger) *RedisBridge {
	return &RedisBridge{
		rdb:        rdb,
		broker:     broker,
		instanceID: uuid.NewString(),
		log:        log.With().Str("component", "redis-bridge").Logger(),
		done:       make(chan struct{}),
	}
}

func (b *RedisBridge) Publish(ctx context.Context, msg *Message) error {
	payload, err := json.Marshal(bridgeEnvelope{Origin: b.instanceID, Message: msg})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channelPrefix+msg.RoomKey, payload).Err()
}

// Run consumes the chat:* pattern until Close is called.
func (b *RedisBridge) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	defer close(b.done)

	pubsub := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			roomKey := strings.TrimPrefix(m.Channel, channelPrefix)
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil || env.Message == nil {
				b.log.Warn().Str("room", roomKey).Msg("dropping undecodable bridge payload")
				continue
			}
			b.broker.Publish(roomKey, env.Message)
		}
	}
}

func (b *RedisBridge) Close() {
	if b.cancel != nil {
		b.cancel()
		<-b.done
	}
}
