package permissions

import api "github.com/OvyFlash/telegram-bot-api"

// Role ranks what a chat member may do to other members.
type Role int

const (
	RoleNone Role = iota
	// RoleAdmin holds an administrator title without the right to restrict.
	RoleAdmin
	RoleModerator
	RoleManager
)

func RoleOf(member *api.ChatMember) Role {
	switch {
	case member == nil:
		return RoleNone
	case member.IsCreator():
		return RoleManager
	case !member.IsAdministrator():
		return RoleNone
	case member.CanManageChat || member.CanPromoteMembers:
		return RoleManager
	case member.CanRestrictMembers:
		return RoleModerator
	default:
		return RoleAdmin
	}
}

// IsPrivilegedModerator reports whether the member may run moderation commands.
func IsPrivilegedModerator(member *api.ChatMember) bool {
	return RoleOf(member) >= RoleModerator
}

// CanModerate reports whether the member, usually the bot itself, can both
// restrict members and delete their messages.
func CanModerate(member *api.ChatMember) bool {
	return RoleOf(member) >= RoleAdmin && member.CanRestrictMembers && member.CanDeleteMessages
}
