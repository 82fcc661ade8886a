package moderation

import (
	"context"
	"errors"
	"time"
)

type MemberStatus string

const (
	MemberStatusCreator       MemberStatus = "creator"
	MemberStatusAdministrator MemberStatus = "administrator"
	MemberStatusMember        MemberStatus = "member"
	MemberStatusRestricted    MemberStatus = "restricted"
	MemberStatusLeft          MemberStatus = "left"
	MemberStatusKicked        MemberStatus = "kicked"
)

var (
	// ErrNoPrivileges is returned by a Platform when the bot lacks the rights for a call.
	ErrNoPrivileges = errors.New("no privileges")
	// ErrProtectedMember rejects actions against chat owners and administrators.
	ErrProtectedMember = errors.New("member is protected")
)

// Platform is the chat service the engine acts upon.
type Platform interface {
	GetChatMember(ctx context.Context, chatID, userID int64) (MemberStatus, error)
	// RestrictMember revokes the member's right to send messages; a zero until means forever.
	RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error
	BanMember(ctx context.Context, chatID, userID int64) error
	UnbanMember(ctx context.Context, chatID, userID int64) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Exempt reports whether the status belongs to the chat's owner or administrators.
func (s MemberStatus) Exempt() bool {
	return s == MemberStatusCreator || s == MemberStatusAdministrator
}

// Present reports whether the status still counts as being in the chat.
func (s MemberStatus) Present() bool {
	switch s {
	case MemberStatusCreator, MemberStatusAdministrator, MemberStatusMember, MemberStatusRestricted:
		return true
	}
	return false
}
