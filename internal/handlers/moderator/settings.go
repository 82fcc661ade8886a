package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/iamwavecut/ngmod/internal/db"
	"github.com/iamwavecut/ngmod/internal/i18n"
)

const MinFloodLimit = 3

func (m *Moderator) update(ctx context.Context, r *request, patch db.SettingsPatch) (*db.ChatSettings, error) {
	settings, err := m.engine.Settings().Update(ctx, r.chat.ID, patch)
	if err != nil {
		return nil, errors.WithMessage(err, "update settings")
	}
	return settings, nil
}

func (m *Moderator) cmdWarnLimit(ctx context.Context, r *request) error {
	if r.args == "" {
		settings, err := m.engine.Settings().GetOrCreate(ctx, r.chat.ID)
		if err != nil {
			return err
		}
		m.reply(ctx, r, fmt.Sprintf(i18n.Get("⚠️ Current warn limit: %d.\nUsage: /warnlimit <number>", r.lang), settings.WarnLimit))
		return nil
	}
	limit, err := strconv.Atoi(r.args)
	if err != nil || limit < 1 {
		m.reply(ctx, r, i18n.Get("Please send a valid number (minimum 1).", r.lang))
		return nil
	}
	if _, err := m.update(ctx, r, db.SettingsPatch{WarnLimit: &limit}); err != nil {
		return err
	}
	m.reply(ctx, r, fmt.Sprintf(i18n.Get("✅ Warn limit set to %d.", r.lang), limit))
	return nil
}

func (m *Moderator) cmdWarnAction(ctx context.Context, r *request) error {
	action := db.WarnAction(strings.ToLower(r.args))
	if !action.Valid() {
		m.reply(ctx, r, i18n.Get("Usage: /warnaction <ban|kick>", r.lang))
		return nil
	}
	if _, err := m.update(ctx, r, db.SettingsPatch{WarnAction: &action}); err != nil {
		return err
	}
	m.reply(ctx, r, fmt.Sprintf(i18n.Get("✅ Users reaching the warn limit will now be: %s.", r.lang), warnActionName(action, r.lang)))
	return nil
}

func (m *Moderator) cmdFlood(ctx context.Context, r *request) error {
	settings, err := m.engine.Settings().GetOrCreate(ctx, r.chat.ID)
	if err != nil {
		return err
	}
	if !settings.FloodEnabled() {
		m.reply(ctx, r, i18n.Get("🌊 Anti-flood is currently disabled.", r.lang))
		return nil
	}
	m.reply(ctx, r, fmt.Sprintf(i18n.Get("🌊 Anti-flood is active: %d messages in %d seconds.", r.lang), settings.AntifloodLimit, settings.AntifloodWindow))
	return nil
}

func (m *Moderator) cmdAntiflood(ctx context.Context, r *request) error {
	args := strings.Fields(strings.ToLower(r.args))
	if len(args) == 0 {
		settings, err := m.engine.Settings().GetOrCreate(ctx, r.chat.ID)
		if err != nil {
			return err
		}
		status := i18n.Get("❌ Disabled", r.lang)
		if settings.FloodEnabled() {
			status = i18n.Get("✅ Enabled", r.lang)
		}
		m.reply(ctx, r, fmt.Sprintf(i18n.Get("🌊 Anti-flood settings:\n  Status: %s\n  Limit: %d messages\n  Window: %d seconds\n\nUsage:\n  /antiflood on\n  /antiflood off\n  /antiflood <limit> [window] (min: %d)", r.lang),
			status, settings.AntifloodLimit, settings.AntifloodWindow, MinFloodLimit))
		return nil
	}

	disable := func() error {
		off := 0
		if _, err := m.update(ctx, r, db.SettingsPatch{AntifloodLimit: &off}); err != nil {
			return err
		}
		m.reply(ctx, r, i18n.Get("🌊 Anti-flood disabled.", r.lang))
		return nil
	}

	switch args[0] {
	case "on", "enable":
		settings, err := m.engine.Settings().GetOrCreate(ctx, r.chat.ID)
		if err != nil {
			return err
		}
		limit, window := settings.AntifloodLimit, settings.AntifloodWindow
		if limit < MinFloodLimit {
			limit = db.DefaultAntifloodLimit
		}
		if window < 1 {
			window = db.DefaultAntifloodWindow
		}
		if _, err := m.update(ctx, r, db.SettingsPatch{AntifloodLimit: &limit, AntifloodWindow: &window}); err != nil {
			return err
		}
		m.reply(ctx, r, fmt.Sprintf(i18n.Get("🌊 Anti-flood enabled: %d messages in %d seconds.", r.lang), limit, window))
		return nil
	case "off", "disable", "no":
		return disable()
	}

	limit, err := strconv.Atoi(args[0])
	if err != nil {
		m.reply(ctx, r, i18n.Get("Usage: /antiflood <on|off|number>", r.lang))
		return nil
	}
	if limit <= 0 {
		return disable()
	}
	if limit < MinFloodLimit {
		m.reply(ctx, r, fmt.Sprintf(i18n.Get("⚠️ Anti-flood limit must be at least %d, or 0 to disable.", r.lang), MinFloodLimit))
		return nil
	}
	window := db.DefaultAntifloodWindow
	if len(args) > 1 {
		if w, err := strconv.Atoi(args[1]); err == nil && w > 0 {
			window = w
		}
	}
	if _, err := m.update(ctx, r, db.SettingsPatch{AntifloodLimit: &limit, AntifloodWindow: &window}); err != nil {
		return err
	}
	m.reply(ctx, r, fmt.Sprintf(i18n.Get("🌊 Anti-flood set: %d messages in %d seconds.", r.lang), limit, window))
	return nil
}

func (m *Moderator) cmdSlowmode(ctx context.Context, r *request) error {
	seconds, err := strconv.Atoi(r.args)
	if err != nil {
		m.reply(ctx, r, i18n.Get("Usage: /slowmode <seconds> (0 to disable)", r.lang))
		return nil
	}
	if seconds < 0 || seconds > db.MaxSlowmodeSeconds {
		m.reply(ctx, r, fmt.Sprintf(i18n.Get("Slowmode must be between 0 and %d seconds.", r.lang), db.MaxSlowmodeSeconds))
		return nil
	}
	if _, err := m.update(ctx, r, db.SettingsPatch{SlowmodeSeconds: &seconds}); err != nil {
		return err
	}
	if seconds == 0 {
		m.reply(ctx, r, i18n.Get("🐢 Slowmode disabled.", r.lang))
		return nil
	}
	m.reply(ctx, r, fmt.Sprintf(i18n.Get("🐢 Slowmode set to %d second(s).", r.lang), seconds))
	return nil
}

func (m *Moderator) cmdReports(ctx context.Context, r *request) error {
	var enabled bool
	switch strings.ToLower(r.args) {
	case "on", "yes", "enable":
		enabled = true
	case "off", "no", "disable":
	case "":
		settings, err := m.engine.Settings().GetOrCreate(ctx, r.chat.ID)
		if err != nil {
			return err
		}
		status := i18n.Get("❌ Disabled", r.lang)
		if settings.ReportEnabled {
			status = i18n.Get("✅ Enabled", r.lang)
		}
		m.reply(ctx, r, fmt.Sprintf(i18n.Get("📋 Report settings:\n  Status: %s\n\nUsage:\n  /reports on\n  /reports off", r.lang), status))
		return nil
	default:
		m.reply(ctx, r, i18n.Get("Usage: /reports <on|off>", r.lang))
		return nil
	}
	if _, err := m.update(ctx, r, db.SettingsPatch{ReportEnabled: &enabled}); err != nil {
		return err
	}
	if enabled {
		m.reply(ctx, r, i18n.Get("📋 Reporting enabled! Use /report or @admin to report users.", r.lang))
	} else {
		m.reply(ctx, r, i18n.Get("📋 Reporting disabled.", r.lang))
	}
	return nil
}

func (m *Moderator) cmdSettings(ctx context.Context, r *request) error {
	s, err := m.engine.Settings().GetOrCreate(ctx, r.chat.ID)
	if err != nil {
		return err
	}
	onOff := func(v bool) string {
		if v {
			return i18n.Get("on", r.lang)
		}
		return i18n.Get("off", r.lang)
	}
	m.reply(ctx, r, fmt.Sprintf(i18n.Get("⚙️ Group settings:\n  ⚠️ Warn limit: %d (%s)\n  🌊 Anti-flood: %d msgs / %ds\n  🐢 Slowmode: %ds\n  📋 Reports: %s", r.lang),
		s.WarnLimit, warnActionName(s.WarnAction, r.lang),
		s.AntifloodLimit, s.AntifloodWindow,
		s.SlowmodeSeconds,
		onOff(s.ReportEnabled),
	))
	return nil
}

func warnActionName(action db.WarnAction, lang string) string {
	if action == db.WarnActionKick {
		return i18n.Get("kick", lang)
	}
	return i18n.Get("ban", lang)
}
