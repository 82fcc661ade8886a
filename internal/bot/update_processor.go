package bot

import (
	"context"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	UpdateTimeout = 5 * time.Minute
)

type UpdateProcessor struct {
	updateHandlers []Handler
	now            func() time.Time
}

func NewUpdateProcessor(handlers ...Handler) *UpdateProcessor {
	enabled := make([]Handler, 0, len(handlers))
	for _, handler := range handlers {
		if handler != nil {
			enabled = append(enabled, handler)
		}
	}
	return &UpdateProcessor{
		updateHandlers: enabled,
		now:            time.Now,
	}
}

func (up *UpdateProcessor) Process(ctx context.Context, u *api.Update) error {
	if u == nil {
		return errors.New("update is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	updateTime := UpdateTime(u, up.now())
	if age := up.now().Sub(updateTime); age > UpdateTimeout {
		log.WithFields(log.Fields{
			"update_id":   u.UpdateID,
			"update_time": updateTime,
			"age":         age.String(),
		}).Debug("skipping outdated update")
		return nil
	}

	chat := u.FromChat()
	if chat == nil {
		switch {
		case u.MyChatMember != nil:
			chat = &u.MyChatMember.Chat
		case u.ChatMember != nil:
			chat = &u.ChatMember.Chat
		}
	}

	user := u.SentFrom()
	if user == nil {
		switch {
		case u.MyChatMember != nil:
			user = &u.MyChatMember.From
		case u.ChatMember != nil:
			user = &u.ChatMember.From
		}
	}

	for _, handler := range up.updateHandlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		proceed, err := handler.Handle(ctx, u, chat, user)
		if err != nil {
			return errors.WithMessage(err, "handling error")
		}
		if !proceed {
			log.Trace("not proceeding")
			return nil
		}
	}
	return nil
}

// UpdateTime returns when the update's payload was produced, or fallback when
// the update carries no timestamp.
func UpdateTime(u *api.Update, fallback time.Time) time.Time {
	switch {
	case u.Message != nil:
		return time.Unix(int64(u.Message.Date), 0)
	case u.EditedMessage != nil:
		return time.Unix(int64(u.EditedMessage.Date), 0)
	case u.ChatMember != nil:
		return time.Unix(int64(u.ChatMember.Date), 0)
	case u.MyChatMember != nil:
		return time.Unix(int64(u.MyChatMember.Date), 0)
	default:
		return fallback
	}
}

func GetUN(user *api.User) string {
	if user == nil {
		return ""
	}
	userName := user.UserName
	if len(userName) == 0 {
		userName = strings.TrimSpace(user.FirstName + " " + user.LastName)
	}
	return userName
}

func GetFullName(user *api.User) string {
	if user == nil {
		return ""
	}
	fullName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if len(fullName) == 0 {
		fullName = user.UserName
	}
	return fullName
}

// MessageText returns the text a filter should see: the message text or the media caption.
func MessageText(msg *api.Message) string {
	if msg == nil {
		return ""
	}
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

func IsGroup(chat *api.Chat) bool {
	return chat != nil && (chat.Type == "group" || chat.Type == "supergroup")
}
