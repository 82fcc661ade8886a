package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"golang.org/x/time/rate"

	"github.com/iamwavecut/ngmod/internal/moderation"
)

var privilegeErrorMarkers = []string{
	"not enough rights",
	"chat_admin_required",
	"have no rights",
}

// protectedTargetMarkers describe refusals caused by the target, not by the bot's rights.
var protectedTargetMarkers = []string{
	"can't restrict self",
	"user is an administrator of the chat",
	"can't remove chat owner",
}

// NewBotAPI connects to endpoint with every HTTP request bounded by timeout. The
// client has no context of its own, so this is what keeps a call from hanging.
func NewBotAPI(token, endpoint string, timeout time.Duration) (*api.BotAPI, error) {
	if endpoint == "" {
		endpoint = api.APIEndpoint
	}
	return api.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
}

// Operations performs moderation calls against the Telegram Bot API.
type Operations struct {
	bot     *api.BotAPI
	limiter *rate.Limiter
}

// NewOperations paces outgoing requests to rps per second.
func NewOperations(bot *api.BotAPI, rps float64) *Operations {
	if rps <= 0 {
		rps = 25
	}
	return &Operations{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
	}
}

func (o *Operations) request(ctx context.Context, c api.Chattable) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := o.bot.Request(c)
	return mapError(err)
}

func (o *Operations) GetChatMember(ctx context.Context, chatID, userID int64) (moderation.MemberStatus, error) {
	member, err := o.ChatMember(ctx, chatID, userID)
	if err != nil {
		return "", err
	}
	return MemberStatus(member), nil
}

func (o *Operations) ChatMember(ctx context.Context, chatID, userID int64) (*api.ChatMember, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	member, err := o.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat member: %w", mapError(err))
	}
	return &member, nil
}

// MemberStatus converts a Telegram member into the engine's status. Restricted users
// who are no longer in the chat count as having left.
func MemberStatus(member *api.ChatMember) moderation.MemberStatus {
	if member == nil {
		return ""
	}
	status := moderation.MemberStatus(member.Status)
	if status == moderation.MemberStatusRestricted && !member.IsMember {
		return moderation.MemberStatusLeft
	}
	return status
}

func (o *Operations) BotID() int64 {
	return o.bot.Self.ID
}

func (o *Operations) GetAdministrators(ctx context.Context, chatID int64) ([]api.ChatMember, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	admins, err := o.bot.GetChatAdministrators(api.ChatAdministratorsConfig{
		ChatConfig: api.ChatConfig{
			ChatID: chatID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat administrators: %w", mapError(err))
	}
	return admins, nil
}

func (o *Operations) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := o.request(ctx, api.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (o *Operations) BanMember(ctx context.Context, chatID, userID int64) error {
	config := api.BanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		RevokeMessages: false,
	}
	if err := o.request(ctx, config); err != nil {
		return fmt.Errorf("failed to ban user: %w", err)
	}
	return nil
}

func (o *Operations) UnbanMember(ctx context.Context, chatID, userID int64) error {
	config := api.UnbanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		OnlyIfBanned: true,
	}
	if err := o.request(ctx, config); err != nil {
		return fmt.Errorf("failed to unban user: %w", err)
	}
	return nil
}

func (o *Operations) RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error {
	config := api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		Permissions: &api.ChatPermissions{},
	}
	if !until.IsZero() {
		config.UntilDate = until.Unix()
	}
	if err := o.request(ctx, config); err != nil {
		return fmt.Errorf("failed to restrict user: %w", err)
	}
	return nil
}

// Send delivers a prepared message, keeping to the same pacing as moderation calls.
func (o *Operations) Send(ctx context.Context, c api.Chattable) (api.Message, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return api.Message{}, err
	}
	msg, err := o.bot.Send(c)
	return msg, mapError(err)
}

// Request performs a call whose response body is not needed.
func (o *Operations) Request(ctx context.Context, c api.Chattable) error {
	return o.request(ctx, c)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if containsAny(err, protectedTargetMarkers) {
		return fmt.Errorf("%w: %s", moderation.ErrProtectedMember, err.Error())
	}
	if IsPrivilegeError(err) {
		return fmt.Errorf("%w: %s", moderation.ErrNoPrivileges, err.Error())
	}
	return err
}

// IsPrivilegeError reports whether Telegram refused a call for lack of rights.
func IsPrivilegeError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Code == 403 {
		return true
	}
	return containsAny(err, privilegeErrorMarkers)
}

func containsAny(err error, markers []string) bool {
	text := strings.ToLower(err.Error())
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
