package videosync

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/watchsync/internal/repository/room"
)

// CanControl reports whether role may mutate the room's video state.
func CanControl(role room.Role) bool {
	switch role {
	case room.RoleHost, room.RoleModerator:
		return true
	}
	return false
}

// authorize checks that userId is a member of roomId and, when control is
// set, that its role allows control commands.
func (s service) authorize(ctx context.Context, roomId, userId string, control bool) error {
	if userId == "" {
		return ErrNotAuthenticated
	}

	role, err := s.roomRepo.GetMemberRole(ctx, &room.GetMemberRoleParams{
		UserId: userId,
		RoomId: roomId,
	})
	if err != nil {
		if errors.Is(err, room.ErrMemberNotFound) {
			return ErrNotAMember
		}

		return fmt.Errorf("failed to get member role: %w", err)
	}

	if control && !CanControl(role) {
		return ErrInsufficientRole
	}

	return nil
}
