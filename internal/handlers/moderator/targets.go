package handlers

import (
	"context"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
)

var errNoTarget = errors.New("no target user")

// resolveTarget finds the user a command is aimed at: the replied-to author, a
// text mention, a remembered @username or a numeric id. It returns the target and
// the argument text left after the user reference.
func (m *Moderator) resolveTarget(ctx context.Context, r *request) (*api.User, string, error) {
	if reply := r.msg.ReplyToMessage; reply != nil && reply.From != nil {
		return reply.From, r.args, nil
	}

	for _, entity := range r.msg.Entities {
		if entity.Type == "text_mention" && entity.User != nil {
			_, rest := splitFirst(r.args)
			return entity.User, rest, nil
		}
	}

	first, rest := splitFirst(r.args)
	if first == "" {
		return nil, "", errNoTarget
	}

	var userID int64
	if strings.HasPrefix(first, "@") {
		id, ok := m.users.Lookup(first)
		if !ok {
			return nil, "", errors.Errorf("unknown username %s", first)
		}
		userID = id
	} else {
		id, err := strconv.ParseInt(first, 10, 64)
		if err != nil {
			return nil, "", errNoTarget
		}
		userID = id
	}

	member, err := m.tg.ChatMember(ctx, r.chat.ID, userID)
	if err != nil || member.User == nil {
		return &api.User{ID: userID}, rest, nil
	}
	return member.User, rest, nil
}

func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	if i := strings.IndexAny(s, " \t\n"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// splitKeyword takes a leading keyword, optionally quoted, and returns it with the remainder.
func splitKeyword(s string) (string, string) {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"`, "“", "«"} {
		if !strings.HasPrefix(s, q) {
			continue
		}
		closing := map[string]string{`"`: `"`, "“": "”", "«": "»"}[q]
		body := s[len(q):]
		if i := strings.Index(body, closing); i >= 0 {
			return strings.TrimSpace(body[:i]), strings.TrimSpace(body[i+len(closing):])
		}
	}
	return splitFirst(s)
}
