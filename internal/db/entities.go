package db

import "time"

type (
	WarnAction  string
	TriggerKind string

	ChatSettings struct {
		ChatID          int64      `db:"chat_id"`
		WarnLimit       int        `db:"warn_limit"`
		WarnAction      WarnAction `db:"warn_action"`
		AntifloodLimit  int        `db:"antiflood_limit"`
		AntifloodWindow int        `db:"antiflood_window"`
		SlowmodeSeconds int        `db:"slowmode_seconds"`
		ReportEnabled   bool       `db:"report_enabled"`
		WelcomeMessage  string     `db:"welcome_message"`
		GoodbyeMessage  string     `db:"goodbye_message"`
		CreatedAt       time.Time  `db:"created_at"`
		UpdatedAt       time.Time  `db:"updated_at"`
	}

	// SettingsPatch carries a partial settings update; nil fields are left untouched.
	SettingsPatch struct {
		WarnLimit       *int
		WarnAction      *WarnAction
		AntifloodLimit  *int
		AntifloodWindow *int
		SlowmodeSeconds *int
		ReportEnabled   *bool
		WelcomeMessage  *string
		GoodbyeMessage  *string
	}

	Warning struct {
		ID        int64     `db:"id"`
		ChatID    int64     `db:"chat_id"`
		UserID    int64     `db:"user_id"`
		Reason    string    `db:"reason"`
		IssuedBy  int64     `db:"issued_by"`
		CreatedAt time.Time `db:"created_at"`
	}

	FilterTrigger struct {
		ID        int64       `db:"id"`
		ChatID    int64       `db:"chat_id"`
		Kind      TriggerKind `db:"kind"`
		Keyword   string      `db:"keyword"`
		Reply     string      `db:"reply"`
		CreatedAt time.Time   `db:"created_at"`
	}
)

const (
	WarnActionBan  WarnAction = "ban"
	WarnActionKick WarnAction = "kick"

	TriggerKindBlacklist TriggerKind = "blacklist"
	TriggerKindWarn      TriggerKind = "warn"
)

func (a WarnAction) Valid() bool {
	return a == WarnActionBan || a == WarnActionKick
}

func (k TriggerKind) Valid() bool {
	return k == TriggerKindBlacklist || k == TriggerKindWarn
}

func (s *ChatSettings) FloodEnabled() bool {
	return s != nil && s.AntifloodLimit > 0
}
