package broadcast

import (
	"context"
	"log/slog"

	"github.com/sharetube/watchsync/internal/repository/connection"
)

const (
	DropReasonPublishQueueFull = "publish_queue_full"
	DropReasonSubscriberFull   = "subscriber_full"
	DropReasonEncode           = "encode"
	DropReasonRedisPublish     = "redis_publish"
)

type subscriptionRepo interface {
	Add(ctx context.Context, roomId string, sub connection.Subscriber) error
	Remove(ctx context.Context, roomId, subscriberId string) error
	RemoveAll(ctx context.Context, subscriberId string) []string
	List(roomId string) []connection.Subscriber
}

type DropRecorder interface {
	BroadcastDropped(reason string)
}

type envelope struct {
	roomId string
	data   []byte
}

// Hub delivers room messages to the subscribers attached to this process.
type Hub struct {
	subs    subscriptionRepo
	queue   chan envelope
	dropped DropRecorder
	logger  *slog.Logger
}

func NewHub(subs subscriptionRepo, queueSize int, dropped DropRecorder, logger *slog.Logger) *Hub {
	return &Hub{
		subs:    subs,
		queue:   make(chan envelope, queueSize),
		dropped: dropped,
		logger:  logger,
	}
}

func (h *Hub) Subscribe(ctx context.Context, roomId string, sub connection.Subscriber) error {
	return h.subs.Add(ctx, roomId, sub)
}

func (h *Hub) Unsubscribe(ctx context.Context, roomId, subscriberId string) error {
	return h.subs.Remove(ctx, roomId, subscriberId)
}

func (h *Hub) UnsubscribeAll(ctx context.Context, subscriberId string) []string {
	return h.subs.RemoveAll(ctx, subscriberId)
}

// Publish encodes msg and queues it for delivery. It never blocks.
func (h *Hub) Publish(ctx context.Context, roomId string, msg *Message) {
	data, err := encode(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode message", "error", err, "room_id", roomId)
		h.dropped.BroadcastDropped(DropReasonEncode)
		return
	}

	h.enqueue(ctx, roomId, data)
}

func (h *Hub) enqueue(ctx context.Context, roomId string, data []byte) {
	select {
	case h.queue <- envelope{roomId: roomId, data: data}:
	default:
		h.logger.WarnContext(ctx, "publish queue full, message dropped", "room_id", roomId)
		h.dropped.BroadcastDropped(DropReasonPublishQueueFull)
	}
}

// Run delivers queued messages until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-h.queue:
			h.Deliver(ctx, env.roomId, env.data)
		}
	}
}

// Deliver hands data to every current subscriber of the room. Subscribers
// whose buffer is full miss the message.
func (h *Hub) Deliver(ctx context.Context, roomId string, data []byte) {
	for _, sub := range h.subs.List(roomId) {
		if !sub.Send(data) {
			h.logger.DebugContext(ctx, "subscriber dropped message", "room_id", roomId, "subscriber_id", sub.Id())
			h.dropped.BroadcastDropped(DropReasonSubscriberFull)
		}
	}
}
