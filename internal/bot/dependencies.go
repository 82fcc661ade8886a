package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
)

// Handler processes one update. Returning proceed=false stops the chain.
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}
