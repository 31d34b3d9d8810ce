package inmemory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sharetube/watchsync/internal/repository/connection"
)

// repo tracks which subscribers are attached to which rooms.
type repo struct {
	byRoom       map[string]map[string]connection.Subscriber
	bySubscriber map[string]map[string]struct{}
	mu           sync.RWMutex
	logger       *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		byRoom:       make(map[string]map[string]connection.Subscriber),
		bySubscriber: make(map[string]map[string]struct{}),
		logger:       logger,
	}
}

func (r *repo) Add(ctx context.Context, roomId string, sub connection.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.DebugContext(ctx, "called", "room_id", roomId, "subscriber_id", sub.Id())
	subs, ok := r.byRoom[roomId]
	if !ok {
		subs = make(map[string]connection.Subscriber)
		r.byRoom[roomId] = subs
	}

	if _, ok := subs[sub.Id()]; ok {
		r.logger.DebugContext(ctx, "returned", "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}
	subs[sub.Id()] = sub

	rooms, ok := r.bySubscriber[sub.Id()]
	if !ok {
		rooms = make(map[string]struct{})
		r.bySubscriber[sub.Id()] = rooms
	}
	rooms[roomId] = struct{}{}

	return nil
}

func (r *repo) Remove(ctx context.Context, roomId, subscriberId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.DebugContext(ctx, "called", "room_id", roomId, "subscriber_id", subscriberId)
	if _, ok := r.byRoom[roomId][subscriberId]; !ok {
		r.logger.DebugContext(ctx, "returned", "error", connection.ErrNotFound)
		return connection.ErrNotFound
	}

	r.removeLocked(roomId, subscriberId)
	return nil
}

// RemoveAll detaches the subscriber from every room and returns those rooms.
func (r *repo) RemoveAll(ctx context.Context, subscriberId string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.DebugContext(ctx, "called", "subscriber_id", subscriberId)
	rooms := make([]string, 0, len(r.bySubscriber[subscriberId]))
	for roomId := range r.bySubscriber[subscriberId] {
		rooms = append(rooms, roomId)
	}

	for _, roomId := range rooms {
		r.removeLocked(roomId, subscriberId)
	}

	return rooms
}

func (r *repo) removeLocked(roomId, subscriberId string) {
	delete(r.byRoom[roomId], subscriberId)
	if len(r.byRoom[roomId]) == 0 {
		delete(r.byRoom, roomId)
	}

	delete(r.bySubscriber[subscriberId], roomId)
	if len(r.bySubscriber[subscriberId]) == 0 {
		delete(r.bySubscriber, subscriberId)
	}
}

// List returns a snapshot of the room's subscribers.
func (r *repo) List(roomId string) []connection.Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]connection.Subscriber, 0, len(r.byRoom[roomId]))
	for _, sub := range r.byRoom[roomId] {
		subs = append(subs, sub)
	}

	return subs
}

func (r *repo) IsSubscribed(roomId, subscriberId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byRoom[roomId][subscriberId]
	return ok
}
