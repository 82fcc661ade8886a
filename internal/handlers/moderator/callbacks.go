package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngmod/internal/i18n"
	"github.com/iamwavecut/ngmod/internal/moderation"
	"github.com/iamwavecut/ngmod/internal/policy/permissions"
)

// handleCallback serves the undo button attached to warning announcements.
func (m *Moderator) handleCallback(ctx context.Context, cq *api.CallbackQuery) error {
	if !strings.HasPrefix(cq.Data, undoCallbackPrefix) || cq.Message == nil || cq.From == nil {
		return nil
	}
	lang := i18n.Resolve(cq.From.LanguageCode, m.lang)
	answer := func(text string) {
		if err := m.tg.Request(ctx, api.NewCallback(cq.ID, text)); err != nil {
			m.getLogEntry().WithField("error", err.Error()).Debug("cant answer callback")
		}
	}

	userID, warningID, err := parseUndoCallback(cq.Data)
	if err != nil {
		answer("")
		return errors.WithMessage(err, "parse callback data")
	}
	chatID := cq.Message.Chat.ID

	member, err := m.tg.ChatMember(ctx, chatID, cq.From.ID)
	if err != nil || !permissions.IsPrivilegedModerator(member) {
		answer(i18n.Get("Only admins can do this.", lang))
		return nil
	}

	var removed bool
	if warningID > 0 {
		removed, err = m.engine.Ledger().Remove(ctx, userID, chatID, warningID)
	} else {
		removed, err = m.engine.Ledger().RemoveMostRecent(ctx, userID, chatID)
	}
	if err != nil {
		answer("")
		return errors.WithMessage(err, "remove warning")
	}
	if !removed {
		answer(i18n.Get("Nothing to undo.", lang))
		return nil
	}

	text := fmt.Sprintf(i18n.Get("✅ Warning removed by %s.", m.lang), displayName(cq.From))
	if err := m.tg.Request(ctx, api.NewEditMessageText(chatID, cq.Message.MessageID, text)); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Warn("cant edit warning message")
	}
	answer(i18n.Get("Warning removed.", lang))

	m.getLogEntry().WithFields(log.Fields{
		"chat_id":    chatID,
		"user_id":    userID,
		"warning_id": warningID,
		"by":         cq.From.ID,
	}).Info("warning undone")
	return nil
}

// undoCallbackData encodes "warn_undo:<user>:<warning>". Buttons without a warning id
// fall back to the user's most recent warning.
func undoCallbackData(action moderation.Action) string {
	data := undoCallbackPrefix + strconv.FormatInt(action.UserID, 10)
	if action.Warning != nil && action.Warning.ID > 0 {
		data += ":" + strconv.FormatInt(action.Warning.ID, 10)
	}
	return data
}

func parseUndoCallback(data string) (userID, warningID int64, err error) {
	user, warning, found := strings.Cut(strings.TrimPrefix(data, undoCallbackPrefix), ":")
	if userID, err = strconv.ParseInt(user, 10, 64); err != nil {
		return 0, 0, err
	}
	if found {
		if warningID, err = strconv.ParseInt(warning, 10, 64); err != nil {
			return 0, 0, err
		}
	}
	return userID, warningID, nil
}
