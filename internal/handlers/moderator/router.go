package handlers

import (
	"context"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngmod/internal/bot"
	"github.com/iamwavecut/ngmod/internal/i18n"
	"github.com/iamwavecut/ngmod/internal/policy/permissions"
)

type (
	request struct {
		msg  *api.Message
		chat *api.Chat
		user *api.User
		args string
		lang string
	}

	// guard rejects a command by replying to it and returning false.
	guard func(ctx context.Context, m *Moderator, r *request) bool

	command struct {
		guards []guard
		run    func(ctx context.Context, r *request) error
	}
)

func (m *Moderator) handleCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	cmd, ok := m.commands[strings.ToLower(msg.Command())]
	if !ok {
		return nil
	}
	r := &request{
		msg:  msg,
		chat: chat,
		user: user,
		args: strings.TrimSpace(msg.CommandArguments()),
		lang: i18n.Resolve(user.LanguageCode, m.lang),
	}
	for _, g := range cmd.guards {
		if !g(ctx, m, r) {
			return nil
		}
	}
	if err := cmd.run(ctx, r); err != nil {
		m.getLogEntry().WithFields(log.Fields{
			"method":  "handleCommand",
			"command": msg.Command(),
			"chat_id": chat.ID,
			"user_id": user.ID,
			"error":   err.Error(),
		}).Error("command failed")
		m.reply(ctx, r, i18n.Get("Something went wrong, please try again later.", r.lang))
	}
	return nil
}

func groupOnly(ctx context.Context, m *Moderator, r *request) bool {
	if bot.IsGroup(r.chat) {
		return true
	}
	m.reply(ctx, r, i18n.Get("This command can only be used in groups.", r.lang))
	return false
}

func adminOnly(ctx context.Context, m *Moderator, r *request) bool {
	member, err := m.tg.ChatMember(ctx, r.chat.ID, r.user.ID)
	if err != nil {
		m.getLogEntry().WithField("error", err.Error()).Warn("cant check command issuer")
		return false
	}
	if permissions.IsPrivilegedModerator(member) {
		return true
	}
	m.reply(ctx, r, i18n.Get("You need to be an admin with ban rights to do this.", r.lang))
	return false
}

func botCanModerate(ctx context.Context, m *Moderator, r *request) bool {
	member, err := m.tg.ChatMember(ctx, r.chat.ID, m.tg.BotID())
	if err == nil && permissions.CanModerate(member) {
		return true
	}
	m.reply(ctx, r, i18n.Get("I need admin rights to restrict members and delete messages.", r.lang))
	return false
}

func (m *Moderator) buildCommands() map[string]command {
	admin := []guard{groupOnly, adminOnly}
	enforcing := []guard{groupOnly, adminOnly, botCanModerate}
	return map[string]command{
		"warn":          {guards: enforcing, run: m.cmdWarn},
		"warns":         {guards: []guard{groupOnly}, run: m.cmdWarns},
		"resetwarns":    {guards: admin, run: m.cmdResetWarns},
		"warnlimit":     {guards: admin, run: m.cmdWarnLimit},
		"warnaction":    {guards: admin, run: m.cmdWarnAction},
		"warnmode":      {guards: admin, run: m.cmdWarnAction},
		"antiflood":     {guards: admin, run: m.cmdAntiflood},
		"setflood":      {guards: admin, run: m.cmdAntiflood},
		"flood":         {guards: []guard{groupOnly}, run: m.cmdFlood},
		"slowmode":      {guards: admin, run: m.cmdSlowmode},
		"addblacklist":  {guards: admin, run: m.cmdAddBlacklist},
		"rmblacklist":   {guards: admin, run: m.cmdRemoveBlacklist},
		"unblacklist":   {guards: admin, run: m.cmdRemoveBlacklist},
		"blacklist":     {guards: []guard{groupOnly}, run: m.cmdBlacklist},
		"addwarnfilter": {guards: admin, run: m.cmdAddWarnFilter},
		"rmwarnfilter":  {guards: admin, run: m.cmdRemoveWarnFilter},
		"warnfilters":   {guards: []guard{groupOnly}, run: m.cmdWarnFilters},
		"reports":       {guards: admin, run: m.cmdReports},
		"report":        {guards: []guard{groupOnly}, run: m.report},
		"setwelcome":    {guards: admin, run: m.cmdSetWelcome},
		"setgoodbye":    {guards: admin, run: m.cmdSetGoodbye},
		"resetwelcome":  {guards: admin, run: m.cmdResetWelcome},
		"settings":      {guards: []guard{groupOnly}, run: m.cmdSettings},
	}
}
