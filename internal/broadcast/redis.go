package broadcast

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "video-sync:room:"

func roomChannel(roomId string) string {
	return roomChannelPrefix + roomId
}

// RedisPublisher fans room messages out through redis pub/sub so that every
// server instance relays them to its own Hub.
type RedisPublisher struct {
	rc      *redis.Client
	hub     *Hub
	queue   chan envelope
	dropped DropRecorder
	logger  *slog.Logger
}

func NewRedisPublisher(rc *redis.Client, hub *Hub, queueSize int, dropped DropRecorder, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{
		rc:      rc,
		hub:     hub,
		queue:   make(chan envelope, queueSize),
		dropped: dropped,
		logger:  logger,
	}
}

// Publish encodes msg and queues it for redis. It never blocks.
func (p *RedisPublisher) Publish(ctx context.Context, roomId string, msg *Message) {
	data, err := encode(msg)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode message", "error", err, "room_id", roomId)
		p.dropped.BroadcastDropped(DropReasonEncode)
		return
	}

	select {
	case p.queue <- envelope{roomId: roomId, data: data}:
	default:
		p.logger.WarnContext(ctx, "publish queue full, message dropped", "room_id", roomId)
		p.dropped.BroadcastDropped(DropReasonPublishQueueFull)
	}
}

// Run publishes queued messages until ctx is done.
func (p *RedisPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-p.queue:
			if err := p.rc.Publish(ctx, roomChannel(env.roomId), env.data).Err(); err != nil {
				p.logger.ErrorContext(ctx, "failed to publish message", "error", err, "room_id", env.roomId)
				p.dropped.BroadcastDropped(DropReasonRedisPublish)
			}
		}
	}
}

// Relay delivers every room message seen on redis to the local Hub until ctx
// is done. ready, if not nil, is closed once the subscription is active.
func (p *RedisPublisher) Relay(ctx context.Context, ready chan<- struct{}) error {
	pubsub := p.rc.PSubscribe(ctx, roomChannelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			roomId := strings.TrimPrefix(msg.Channel, roomChannelPrefix)
			p.hub.Deliver(ctx, roomId, []byte(msg.Payload))
		}
	}
}
