package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchsync/internal/repository/room"
)

func (r repo) getMembersKey(roomId string) string {
	return "room:" + roomId + ":members"
}

func (r repo) SetMember(ctx context.Context, params *room.SetMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	if err := r.rc.HSet(ctx, r.getMembersKey(params.RoomId), params.UserId, string(params.Role)).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) RemoveMember(ctx context.Context, params *room.RemoveMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	res, err := r.rc.HDel(ctx, r.getMembersKey(params.RoomId), params.UserId).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if res == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrMemberNotFound)
		return room.ErrMemberNotFound
	}

	return nil
}

func (r repo) GetMemberRole(ctx context.Context, params *room.GetMemberRoleParams) (room.Role, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	role, err := r.rc.HGet(ctx, r.getMembersKey(params.RoomId), params.UserId).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.DebugContext(ctx, "returned", "error", room.ErrMemberNotFound)
			return "", room.ErrMemberNotFound
		}

		r.logger.DebugContext(ctx, "returned", "error", err)
		return "", err
	}

	return room.Role(role), nil
}
