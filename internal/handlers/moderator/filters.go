package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/iamwavecut/ngmod/internal/db"
	"github.com/iamwavecut/ngmod/internal/i18n"
	"github.com/iamwavecut/ngmod/internal/moderation"
)

// keywordLines splits multi-line command input into distinct normalized keywords.
func keywordLines(text string) []string {
	seen := map[string]struct{}{}
	var res []string
	for _, line := range strings.Split(text, "\n") {
		kw := moderation.NormalizeKeyword(line)
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		res = append(res, kw)
	}
	return res
}

func (m *Moderator) cmdAddBlacklist(ctx context.Context, r *request) error {
	keywords := keywordLines(r.args)
	if len(keywords) == 0 {
		m.reply(ctx, r, i18n.Get("Usage: /addblacklist <word or phrases>\nMultiple words on separate lines.", r.lang))
		return nil
	}
	for _, kw := range keywords {
		if _, err := m.engine.Filter().AddTrigger(ctx, r.chat.ID, db.TriggerKindBlacklist, kw, ""); err != nil {
			return errors.WithMessage(err, "add blacklist trigger")
		}
	}
	if len(keywords) == 1 {
		m.reply(ctx, r, fmt.Sprintf(i18n.Get("🚫 Added \"%s\" to the blacklist.", r.lang), keywords[0]))
		return nil
	}
	m.reply(ctx, r, fmt.Sprintf(i18n.Get("🚫 Added %d words to the blacklist.", r.lang), len(keywords)))
	return nil
}

func (m *Moderator) cmdRemoveBlacklist(ctx context.Context, r *request) error {
	keywords := keywordLines(r.args)
	if len(keywords) == 0 {
		m.reply(ctx, r, i18n.Get("Usage: /rmblacklist <word or phrases>\nMultiple words on separate lines.", r.lang))
		return nil
	}
	removed := 0
	for _, kw := range keywords {
		ok, err := m.engine.Filter().RemoveTrigger(ctx, r.chat.ID, db.TriggerKindBlacklist, kw)
		if err != nil {
			return errors.WithMessage(err, "remove blacklist trigger")
		}
		if ok {
			removed++
		}
	}

	switch {
	case len(keywords) == 1 && removed == 1:
		m.reply(ctx, r, fmt.Sprintf(i18n.Get("✅ Removed \"%s\" from the blacklist.", r.lang), keywords[0]))
	case len(keywords) == 1:
		m.reply(ctx, r, i18n.Get("This word isn't blacklisted.", r.lang))
	case removed == 0:
		m.reply(ctx, r, i18n.Get("None of those words were blacklisted.", r.lang))
	default:
		m.reply(ctx, r, fmt.Sprintf(i18n.Get("✅ Removed %d/%d words from the blacklist.", r.lang), removed, len(keywords)))
	}
	return nil
}

func (m *Moderator) cmdBlacklist(ctx context.Context, r *request) error {
	triggers, err := m.engine.Filter().ListTriggers(ctx, r.chat.ID, db.TriggerKindBlacklist)
	if err != nil {
		return errors.WithMessage(err, "list blacklist")
	}
	if len(triggers) == 0 {
		m.reply(ctx, r, i18n.Get("📝 No blacklisted words in this group.", r.lang))
		return nil
	}
	words := make([]string, 0, len(triggers))
	for _, t := range triggers {
		words = append(words, t.Keyword)
	}
	sort.Strings(words)

	lines := []string{i18n.Get("🚫 Blacklisted words:", r.lang)}
	for _, w := range words {
		lines = append(lines, " • "+w)
	}
	m.reply(ctx, r, strings.Join(lines, "\n"))
	return nil
}

func (m *Moderator) cmdAddWarnFilter(ctx context.Context, r *request) error {
	keyword, reply := splitKeyword(r.args)
	if moderation.NormalizeKeyword(keyword) == "" {
		m.reply(ctx, r, i18n.Get("Usage: /addwarnfilter <keyword|\"phrase\"> [reason]", r.lang))
		return nil
	}
	trigger, err := m.engine.Filter().AddTrigger(ctx, r.chat.ID, db.TriggerKindWarn, keyword, reply)
	if err != nil {
		return errors.WithMessage(err, "add warn filter")
	}
	m.reply(ctx, r, fmt.Sprintf(i18n.Get("⚠️ Messages containing \"%s\" will now get a warning.", r.lang), trigger.Keyword))
	return nil
}

func (m *Moderator) cmdRemoveWarnFilter(ctx context.Context, r *request) error {
	keyword, _ := splitKeyword(r.args)
	if moderation.NormalizeKeyword(keyword) == "" {
		m.reply(ctx, r, i18n.Get("Usage: /rmwarnfilter <keyword|\"phrase\">", r.lang))
		return nil
	}
	ok, err := m.engine.Filter().RemoveTrigger(ctx, r.chat.ID, db.TriggerKindWarn, keyword)
	if err != nil {
		return errors.WithMessage(err, "remove warn filter")
	}
	if !ok {
		m.reply(ctx, r, i18n.Get("There is no such warn filter.", r.lang))
		return nil
	}
	m.reply(ctx, r, fmt.Sprintf(i18n.Get("✅ Warn filter \"%s\" removed.", r.lang), moderation.NormalizeKeyword(keyword)))
	return nil
}

func (m *Moderator) cmdWarnFilters(ctx context.Context, r *request) error {
	triggers, err := m.engine.Filter().ListTriggers(ctx, r.chat.ID, db.TriggerKindWarn)
	if err != nil {
		return errors.WithMessage(err, "list warn filters")
	}
	if len(triggers) == 0 {
		m.reply(ctx, r, i18n.Get("📝 No warn filters in this group.", r.lang))
		return nil
	}
	lines := []string{i18n.Get("⚠️ Warn filters:", r.lang)}
	for _, t := range triggers {
		line := " • " + t.Keyword
		if t.Reply != "" {
			line += ": " + t.Reply
		}
		lines = append(lines, line)
	}
	m.reply(ctx, r, strings.Join(lines, "\n"))
	return nil
}
