package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sharetube/watchsync/internal/repository/room"
)

func (r *repo) SetMember(ctx context.Context, params *room.SetMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO room_members (room_id, user_id, role)
		VALUES (?, ?, ?)
		ON CONFLICT(room_id, user_id) DO UPDATE SET
			role=excluded.role
	`, params.RoomId, params.UserId, string(params.Role))
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r *repo) RemoveMember(ctx context.Context, params *room.RemoveMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM room_members WHERE room_id = ? AND user_id = ?",
		params.RoomId, params.UserId,
	)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrMemberNotFound)
		return room.ErrMemberNotFound
	}

	return nil
}

func (r *repo) GetMemberRole(ctx context.Context, params *room.GetMemberRoleParams) (room.Role, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	var role string
	err := r.db.QueryRowContext(ctx,
		"SELECT role FROM room_members WHERE room_id = ? AND user_id = ?",
		params.RoomId, params.UserId,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.DebugContext(ctx, "returned", "error", room.ErrMemberNotFound)
			return "", room.ErrMemberNotFound
		}

		r.logger.DebugContext(ctx, "returned", "error", err)
		return "", err
	}

	return room.Role(role), nil
}
