package room

type Role string

const (
	RoleHost      Role = "HOST"
	RoleModerator Role = "MODERATOR"
	RoleMember    Role = "MEMBER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleHost, RoleModerator, RoleMember:
		return true
	}
	return false
}

type SetMemberParams struct {
	UserId string `json:"user_id"`
	RoomId string `json:"room_id"`
	Role   Role   `json:"role"`
}

type GetMemberRoleParams struct {
	UserId string `json:"user_id"`
	RoomId string `json:"room_id"`
}

type RemoveMemberParams struct {
	UserId string `json:"user_id"`
	RoomId string `json:"room_id"`
}
