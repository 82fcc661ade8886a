package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngmod/internal/i18n"
	"github.com/iamwavecut/ngmod/internal/moderation"
)

func (m *Moderator) cmdWarn(ctx context.Context, r *request) error {
	target, rest, err := m.resolveTarget(ctx, r)
	if err != nil {
		m.reply(ctx, r, i18n.Get("Usage: /warn <reply|@user|id> [reason]", r.lang))
		return nil
	}
	if target.ID == m.tg.BotID() {
		m.reply(ctx, r, i18n.Get("Nice try.", r.lang))
		return nil
	}

	reason := rest
	if reason == "" {
		reason = i18n.Get("No reason provided", r.lang)
	}

	action, err := m.engine.Warn(ctx, r.chat.ID, target.ID, reason, r.user.ID)
	switch {
	case errors.Is(err, moderation.ErrProtectedMember):
		m.reply(ctx, r, i18n.Get("I can't warn an admin.", r.lang))
		return nil
	case err != nil:
		return errors.WithMessage(err, "warn")
	}

	m.getLogEntry().WithFields(log.Fields{
		"chat_id":   r.chat.ID,
		"user_id":   target.ID,
		"issued_by": r.user.ID,
		"count":     action.Count,
		"limit":     action.Limit,
		"action":    action.Kind.String(),
	}).Info("warned")
	m.announce(ctx, r.msg, target, action)
	return nil
}

func (m *Moderator) cmdWarns(ctx context.Context, r *request) error {
	target, _, err := m.resolveTarget(ctx, r)
	if err != nil {
		target = r.user
	}
	name := displayName(target)

	warnings, err := m.engine.Ledger().List(ctx, target.ID, r.chat.ID)
	if err != nil {
		return errors.WithMessage(err, "list warnings")
	}
	if len(warnings) == 0 {
		m.reply(ctx, r, fmt.Sprintf(i18n.Get("✅ %s has no warnings.", r.lang), name))
		return nil
	}

	lines := []string{fmt.Sprintf(i18n.Get("⚠️ Warnings for %s (%d total):", r.lang), name, len(warnings))}
	for i, w := range warnings {
		lines = append(lines, fmt.Sprintf("  %d. %s (%s)", i+1, w.Reason, w.CreatedAt.Format("2006-01-02 15:04")))
	}
	m.reply(ctx, r, strings.Join(lines, "\n"))
	return nil
}

func (m *Moderator) cmdResetWarns(ctx context.Context, r *request) error {
	target, _, err := m.resolveTarget(ctx, r)
	if err != nil {
		m.reply(ctx, r, i18n.Get("Usage: /resetwarns <reply|@user|id>", r.lang))
		return nil
	}
	deleted, err := m.engine.Ledger().Reset(ctx, target.ID, r.chat.ID)
	if err != nil {
		return errors.WithMessage(err, "reset warnings")
	}
	m.reply(ctx, r, fmt.Sprintf(i18n.Get("✅ Cleared %d warning(s) for %s.", r.lang), deleted, displayName(target)))
	return nil
}
