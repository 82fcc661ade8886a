package db

import (
	"fmt"

	"github.com/iamwavecut/ngmod/internal/errors"
)

const (
	DefaultWarnLimit       = 3
	DefaultAntifloodLimit  = 5
	DefaultAntifloodWindow = 10
	MaxSlowmodeSeconds     = 3600
)

func DefaultSettings(chatID int64) *ChatSettings {
	return &ChatSettings{
		ChatID:          chatID,
		WarnLimit:       DefaultWarnLimit,
		WarnAction:      WarnActionBan,
		AntifloodLimit:  DefaultAntifloodLimit,
		AntifloodWindow: DefaultAntifloodWindow,
		SlowmodeSeconds: 0,
		ReportEnabled:   true,
	}
}

func (p SettingsPatch) Empty() bool {
	return p.WarnLimit == nil &&
		p.WarnAction == nil &&
		p.AntifloodLimit == nil &&
		p.AntifloodWindow == nil &&
		p.SlowmodeSeconds == nil &&
		p.ReportEnabled == nil &&
		p.WelcomeMessage == nil &&
		p.GoodbyeMessage == nil
}

// Validate rejects values no chat may hold. Policy minimums (like the warn limit floor
// enforced by commands) are not checked here.
func (p SettingsPatch) Validate() error {
	switch {
	case p.WarnLimit != nil && *p.WarnLimit < 1:
		return fmt.Errorf("%w: warn limit must be positive", errors.ErrInvalidInput)
	case p.WarnAction != nil && !p.WarnAction.Valid():
		return fmt.Errorf("%w: unknown warn action %q", errors.ErrInvalidInput, *p.WarnAction)
	case p.AntifloodLimit != nil && *p.AntifloodLimit < 0:
		return fmt.Errorf("%w: antiflood limit must not be negative", errors.ErrInvalidInput)
	case p.AntifloodWindow != nil && *p.AntifloodWindow < 1:
		return fmt.Errorf("%w: antiflood window must be positive", errors.ErrInvalidInput)
	case p.SlowmodeSeconds != nil && (*p.SlowmodeSeconds < 0 || *p.SlowmodeSeconds > MaxSlowmodeSeconds):
		return fmt.Errorf("%w: slowmode must be between 0 and %d", errors.ErrInvalidInput, MaxSlowmodeSeconds)
	}
	return nil
}

// Apply returns a copy of s with the patch fields merged in.
func (p SettingsPatch) Apply(s *ChatSettings) *ChatSettings {
	res := *s
	if p.WarnLimit != nil {
		res.WarnLimit = *p.WarnLimit
	}
	if p.WarnAction != nil {
		res.WarnAction = *p.WarnAction
	}
	if p.AntifloodLimit != nil {
		res.AntifloodLimit = *p.AntifloodLimit
	}
	if p.AntifloodWindow != nil {
		res.AntifloodWindow = *p.AntifloodWindow
	}
	if p.SlowmodeSeconds != nil {
		res.SlowmodeSeconds = *p.SlowmodeSeconds
	}
	if p.ReportEnabled != nil {
		res.ReportEnabled = *p.ReportEnabled
	}
	if p.WelcomeMessage != nil {
		res.WelcomeMessage = *p.WelcomeMessage
	}
	if p.GoodbyeMessage != nil {
		res.GoodbyeMessage = *p.GoodbyeMessage
	}
	return &res
}
