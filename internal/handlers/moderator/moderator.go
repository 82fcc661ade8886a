package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngmod/internal/bot"
	"github.com/iamwavecut/ngmod/internal/db"
	"github.com/iamwavecut/ngmod/internal/i18n"
	"github.com/iamwavecut/ngmod/internal/moderation"
)

const undoCallbackPrefix = "warn_undo:"

var adminMention = regexp.MustCompile(`(?i)(?:^|\s)@admins?\b`)

// Moderator turns Telegram updates into engine events, runs moderation commands and
// reports the engine's actions back to the chat.
type Moderator struct {
	tg       telegramClient
	engine   engine
	users    userRegistry
	lang     string
	commands map[string]command
}

func NewModerator(tg telegramClient, engine engine, users userRegistry, lang string) *Moderator {
	m := &Moderator{
		tg:     tg,
		engine: engine,
		users:  users,
		lang:   lang,
	}
	m.commands = m.buildCommands()
	return m
}

func (m *Moderator) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if user != nil {
		m.users.Remember(user.ID, user.UserName)
	}

	switch {
	case u.CallbackQuery != nil:
		return true, m.handleCallback(ctx, u.CallbackQuery)
	case u.ChatMember != nil:
		return true, m.handleMembership(ctx, u.ChatMember)
	case u.Message != nil:
		return true, m.handleMessage(ctx, u.Message, chat, user)
	}
	return true, nil
}

func (m *Moderator) handleMessage(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if chat == nil || user == nil {
		return nil
	}
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		m.users.Remember(msg.ReplyToMessage.From.ID, msg.ReplyToMessage.From.UserName)
	}
	if msg.IsCommand() {
		return m.handleCommand(ctx, msg, chat, user)
	}
	if !bot.IsGroup(chat) || msg.SenderChat != nil {
		return nil
	}
	if len(msg.NewChatMembers) > 0 || msg.LeftChatMember != nil {
		return nil
	}

	action, err := m.engine.OnMessage(ctx, moderation.MessageEvent{
		ChatID:    chat.ID,
		UserID:    user.ID,
		MessageID: msg.MessageID,
		Text:      bot.MessageText(msg),
		Date:      bot.UpdateTime(&api.Update{Message: msg}, time.Now()),
	})
	if err != nil {
		m.getLogEntry().WithFields(log.Fields{
			"method":  "handleMessage",
			"chat_id": chat.ID,
			"user_id": user.ID,
			"error":   err.Error(),
		}).Error("cant evaluate message")
	}
	if !action.None() {
		m.announce(ctx, msg, user, action)
		return nil
	}

	if adminMention.MatchString(bot.MessageText(msg)) {
		return m.report(ctx, &request{msg: msg, chat: chat, user: user, lang: m.lang})
	}
	return nil
}

// announce posts the outcome of an engine action to the chat.
func (m *Moderator) announce(ctx context.Context, msg *api.Message, target *api.User, action moderation.Action) {
	name := displayName(target)
	var (
		text   string
		markup *api.InlineKeyboardMarkup
	)

	switch action.Kind {
	case moderation.ActionWarned:
		text = fmt.Sprintf(i18n.Get("⚠️ %s has been warned (%d/%d).\nReason: %s", m.lang), name, action.Count, action.Limit, action.Reason)
		keyboard := api.NewInlineKeyboardMarkup(api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(i18n.Get("↩️ Undo", m.lang), undoCallbackData(action)),
		))
		markup = &keyboard
	case moderation.ActionEscalated:
		text = m.escalationText(name, action)
	case moderation.ActionMuted:
		text = fmt.Sprintf(i18n.Get("🚫 %s has been muted for flooding.", m.lang), name)
	case moderation.ActionFloodAutoDisabled:
		text = i18n.Get("⚠️ I don't have permission to restrict users. Anti-flood has been auto-disabled.", m.lang)
	default:
		return
	}

	reply := api.NewMessage(msg.Chat.ID, text)
	reply.ReplyParameters = api.ReplyParameters{
		ChatID:                   msg.Chat.ID,
		MessageID:                msg.MessageID,
		AllowSendingWithoutReply: true,
	}
	reply.LinkPreviewOptions.IsDisabled = true
	if markup != nil {
		reply.ReplyMarkup = markup
	}
	if err := tool.Err(m.tg.Send(ctx, reply)); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Warn("cant announce action")
	}
}

func (m *Moderator) escalationText(name string, action moderation.Action) string {
	if action.Err != nil {
		return fmt.Sprintf(i18n.Get("⚠️ %s reached %d warnings, but I couldn't remove them. Please check my admin rights.", m.lang), name, action.Count)
	}
	if action.Escalation == db.WarnActionKick {
		return fmt.Sprintf(i18n.Get("👢 %s has been kicked after reaching %d warnings.", m.lang), name, action.Limit)
	}
	return fmt.Sprintf(i18n.Get("🚫 %s has been banned after reaching %d warnings.", m.lang), name, action.Limit)
}

func (m *Moderator) reply(ctx context.Context, r *request, text string) {
	msg := api.NewMessage(r.chat.ID, text)
	msg.ReplyParameters = api.ReplyParameters{
		ChatID:                   r.chat.ID,
		MessageID:                r.msg.MessageID,
		AllowSendingWithoutReply: true,
	}
	msg.DisableNotification = true
	msg.LinkPreviewOptions.IsDisabled = true
	if _, err := m.tg.Send(ctx, msg); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Warn("cant send reply")
	}
}

func (m *Moderator) getLogEntry() *log.Entry {
	return log.WithField("object", "Moderator")
}

func displayName(user *api.User) string {
	if name := bot.GetFullName(user); name != "" {
		return name
	}
	return strconv.FormatInt(user.ID, 10)
}
