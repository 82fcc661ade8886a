package handlers

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/ngmod/internal/moderation"
)

type telegramClient interface {
	Send(ctx context.Context, c api.Chattable) (api.Message, error)
	Request(ctx context.Context, c api.Chattable) error
	ChatMember(ctx context.Context, chatID, userID int64) (*api.ChatMember, error)
	GetAdministrators(ctx context.Context, chatID int64) ([]api.ChatMember, error)
	BotID() int64
}

type engine interface {
	OnMessage(ctx context.Context, ev moderation.MessageEvent) (moderation.Action, error)
	OnMembershipChange(ctx context.Context, ev moderation.MembershipEvent) (moderation.Action, error)
	Warn(ctx context.Context, chatID, userID int64, reason string, issuedBy int64) (moderation.Action, error)
	Settings() *moderation.Settings
	Ledger() *moderation.Ledger
	Filter() *moderation.FilterEngine
}

type userRegistry interface {
	Remember(userID int64, username string)
	Lookup(username string) (int64, bool)
}
