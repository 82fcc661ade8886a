package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngmod/internal/bot"
	"github.com/iamwavecut/ngmod/internal/db"
	"github.com/iamwavecut/ngmod/internal/i18n"
	"github.com/iamwavecut/ngmod/internal/infrastructure/telegram"
	"github.com/iamwavecut/ngmod/internal/moderation"
)

func (m *Moderator) handleMembership(ctx context.Context, upd *api.ChatMemberUpdated) error {
	user := upd.NewChatMember.User
	if user == nil {
		return nil
	}
	m.users.Remember(user.ID, user.UserName)

	ev := moderation.MembershipEvent{
		ChatID:    upd.Chat.ID,
		UserID:    user.ID,
		OldStatus: telegram.MemberStatus(&upd.OldChatMember),
		NewStatus: telegram.MemberStatus(&upd.NewChatMember),
		Date:      bot.UpdateTime(&api.Update{ChatMember: upd}, time.Now()),
	}
	if _, err := m.engine.OnMembershipChange(ctx, ev); err != nil {
		return errors.WithMessage(err, "membership change")
	}
	if user.IsBot || user.ID == m.tg.BotID() {
		return nil
	}

	var template string
	switch {
	case ev.Joined():
		template = i18n.Get("Welcome to the group, {name}! 👋", m.lang)
	case ev.Left():
		template = i18n.Get("Goodbye, {name}. 👋", m.lang)
	default:
		return nil
	}

	settings, err := m.engine.Settings().GetOrCreate(ctx, upd.Chat.ID)
	if err != nil {
		return errors.WithMessage(err, "get settings")
	}
	if ev.Joined() && settings.WelcomeMessage != "" {
		template = settings.WelcomeMessage
	}
	if ev.Left() && settings.GoodbyeMessage != "" {
		template = settings.GoodbyeMessage
	}

	text := renderGreeting(template, user, &upd.Chat)
	if _, err := m.tg.Send(ctx, api.NewMessage(upd.Chat.ID, text)); err != nil {
		m.getLogEntry().WithFields(log.Fields{
			"chat_id": upd.Chat.ID,
			"error":   err.Error(),
		}).Warn("cant send greeting")
	}
	return nil
}

func renderGreeting(template string, user *api.User, chat *api.Chat) string {
	return strings.NewReplacer(
		"{name}", user.FirstName,
		"{group}", chat.Title,
	).Replace(template)
}

func (m *Moderator) cmdSetWelcome(ctx context.Context, r *request) error {
	return m.setGreeting(ctx, r, "welcome")
}

func (m *Moderator) cmdSetGoodbye(ctx context.Context, r *request) error {
	return m.setGreeting(ctx, r, "goodbye")
}

func (m *Moderator) setGreeting(ctx context.Context, r *request, kind string) error {
	if r.args == "" {
		m.reply(ctx, r, fmt.Sprintf(i18n.Get("Usage: /set%s <message>\nVariables: {name}, {group}", r.lang), kind))
		return nil
	}
	text := r.args
	patch := db.SettingsPatch{WelcomeMessage: &text}
	done := i18n.Get("✅ Welcome message updated.", r.lang)
	if kind == "goodbye" {
		patch = db.SettingsPatch{GoodbyeMessage: &text}
		done = i18n.Get("✅ Goodbye message updated.", r.lang)
	}
	if _, err := m.update(ctx, r, patch); err != nil {
		return err
	}
	m.reply(ctx, r, done)
	return nil
}

func (m *Moderator) cmdResetWelcome(ctx context.Context, r *request) error {
	empty := ""
	if _, err := m.update(ctx, r, db.SettingsPatch{WelcomeMessage: &empty, GoodbyeMessage: &empty}); err != nil {
		return err
	}
	m.reply(ctx, r, i18n.Get("✅ Welcome/goodbye messages reset to default.", r.lang))
	return nil
}
