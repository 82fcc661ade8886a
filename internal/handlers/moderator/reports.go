package handlers

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf16"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngmod/internal/i18n"
	"github.com/iamwavecut/ngmod/internal/infrastructure/telegram"
	"github.com/iamwavecut/ngmod/internal/policy/permissions"
)

// report forwards the replied-to message's author to the chat admins, both in the
// chat and by direct message where the admin allows it.
func (m *Moderator) report(ctx context.Context, r *request) error {
	member, err := m.tg.ChatMember(ctx, r.chat.ID, r.user.ID)
	if err == nil && telegram.MemberStatus(member).Exempt() {
		return nil
	}
	settings, err := m.engine.Settings().GetOrCreate(ctx, r.chat.ID)
	if err != nil {
		return errors.WithMessage(err, "get settings")
	}
	if !settings.ReportEnabled {
		return nil
	}

	replied := r.msg.ReplyToMessage
	if replied == nil || replied.From == nil {
		m.reply(ctx, r, i18n.Get("Reply to a message to report it to admins.", r.lang))
		return nil
	}
	reported := replied.From
	switch {
	case reported.ID == r.user.ID:
		m.reply(ctx, r, i18n.Get("You can't report yourself.", r.lang))
		return nil
	case reported.ID == m.tg.BotID():
		m.reply(ctx, r, i18n.Get("Nice try.", r.lang))
		return nil
	}
	if target, err := m.tg.ChatMember(ctx, r.chat.ID, reported.ID); err == nil && permissions.IsPrivilegedModerator(target) {
		m.reply(ctx, r, i18n.Get("You can't report an admin.", r.lang))
		return nil
	}

	admins, err := m.tg.GetAdministrators(ctx, r.chat.ID)
	if err != nil {
		return errors.WithMessage(err, "get administrators")
	}

	reason := ""
	if r.msg.IsCommand() {
		reason = r.args
	}
	body := fmt.Sprintf(i18n.Get("🚨 Report\nReported: %s\nBy: %s", m.lang), displayName(reported), displayName(r.user))
	if reason != "" {
		body += fmt.Sprintf(i18n.Get("\nReason: %s", m.lang), reason)
	}

	notice := api.NewMessage(r.chat.ID, body)
	notice.ReplyParameters = api.ReplyParameters{
		ChatID:                   r.chat.ID,
		MessageID:                replied.MessageID,
		AllowSendingWithoutReply: true,
	}
	var mentions []string
	for _, admin := range admins {
		if admin.User == nil || admin.User.IsBot {
			continue
		}
		if len(mentions) == 0 {
			notice.Text += "\n\n👮"
		}
		name := displayName(admin.User)
		notice.Text += " "
		notice.Entities = append(notice.Entities, api.MessageEntity{
			Type:   "text_mention",
			Offset: utf16Len(notice.Text),
			Length: utf16Len(name),
			User:   admin.User,
		})
		notice.Text += name
		mentions = append(mentions, name)
	}
	if _, err := m.tg.Send(ctx, notice); err != nil {
		return errors.WithMessage(err, "send report")
	}

	direct := fmt.Sprintf(i18n.Get("🚨 Report in %s\nReported: %s\nBy: %s", m.lang), r.chat.Title, displayName(reported), displayName(r.user))
	if reason != "" {
		direct += fmt.Sprintf(i18n.Get("\nReason: %s", m.lang), reason)
	}
	if r.chat.UserName != "" {
		direct += fmt.Sprintf("\n\nhttps://t.me/%s/%d", r.chat.UserName, replied.MessageID)
	}
	for _, admin := range admins {
		if admin.User == nil || admin.User.IsBot {
			continue
		}
		if _, err := m.tg.Send(ctx, api.NewMessage(admin.User.ID, direct)); err != nil {
			m.getLogEntry().WithFields(log.Fields{
				"admin_id": admin.User.ID,
				"error":    err.Error(),
			}).Debug("cant notify admin directly")
		}
	}

	m.getLogEntry().WithFields(log.Fields{
		"chat_id":  r.chat.ID,
		"reporter": r.user.ID,
		"reported": reported.ID,
		"admins":   strings.Join(mentions, ","),
	}).Info("report delivered")
	return nil
}

// utf16Len measures text the way Telegram entity offsets do.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
