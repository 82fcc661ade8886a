package moderation

import (
	"time"

	"github.com/iamwavecut/ngmod/internal/db"
)

type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionDeleted
	ActionWarned
	ActionEscalated
	ActionMuted
	ActionFloodAutoDisabled
)

const (
	ReasonBlacklist = "blacklist"
	ReasonSlowmode  = "slowmode"
	ReasonFlood     = "flood"
)

type (
	MessageEvent struct {
		ChatID    int64
		UserID    int64
		MessageID int
		// Text is the message text or media caption.
		Text string
		Date time.Time
	}

	MembershipEvent struct {
		ChatID    int64
		UserID    int64
		OldStatus MemberStatus
		NewStatus MemberStatus
		Date      time.Time
	}

	// Action describes what the engine did in response to an event.
	Action struct {
		Kind       ActionKind
		ChatID     int64
		UserID     int64
		Reason     string
		Count      int
		Limit      int
		Escalation db.WarnAction
		Warning    *db.Warning
		Trigger    *db.FilterTrigger
		// Err holds a platform failure that left the action incomplete.
		Err error
	}
)

func (k ActionKind) String() string {
	switch k {
	case ActionDeleted:
		return "deleted"
	case ActionWarned:
		return "warned"
	case ActionEscalated:
		return "escalated"
	case ActionMuted:
		return "muted"
	case ActionFloodAutoDisabled:
		return "flood_auto_disabled"
	default:
		return "none"
	}
}

func (a Action) None() bool {
	return a.Kind == ActionNone
}

func (e MembershipEvent) Left() bool {
	return e.OldStatus.Present() && !e.NewStatus.Present()
}

func (e MembershipEvent) Joined() bool {
	return !e.OldStatus.Present() && e.NewStatus.Present()
}

func (e MembershipEvent) Promoted() bool {
	return !e.OldStatus.Exempt() && e.NewStatus.Exempt()
}
