package handlers

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/ngmod/internal/db/sqlite"
	"github.com/iamwavecut/ngmod/internal/infra/reg"
	"github.com/iamwavecut/ngmod/internal/moderation"
)

const (
	testChatID = int64(-1001)
	testBotID  = int64(999)
	adminID    = int64(10)
	memberID   = int64(20)
	otherID    = int64(30)
)

// fakeTelegram serves both the handler's Telegram client and the engine's platform.
type fakeTelegram struct {
	mu      sync.Mutex
	members map[int64]*api.ChatMember
	sent    []api.Chattable
	actions []string
}

func newFakeTelegram() *fakeTelegram {
	tg := &fakeTelegram{members: map[int64]*api.ChatMember{}}
	tg.setMember(&api.User{ID: testBotID, FirstName: "Bot", IsBot: true}, &api.ChatMember{
		Status:             "administrator",
		CanRestrictMembers: true,
		CanDeleteMessages:  true,
	})
	tg.setMember(&api.User{ID: adminID, FirstName: "Alice"}, &api.ChatMember{
		Status:             "administrator",
		CanRestrictMembers: true,
	})
	tg.setMember(&api.User{ID: memberID, FirstName: "Bob", UserName: "bob"}, &api.ChatMember{Status: "member"})
	tg.setMember(&api.User{ID: otherID, FirstName: "Carol"}, &api.ChatMember{Status: "member"})
	return tg
}

func (f *fakeTelegram) setMember(user *api.User, member *api.ChatMember) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member.User = user
	f.members[user.ID] = member
}

func (f *fakeTelegram) Send(_ context.Context, c api.Chattable) (api.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return api.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeTelegram) Request(_ context.Context, c api.Chattable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return nil
}

func (f *fakeTelegram) ChatMember(_ context.Context, _ int64, userID int64) (*api.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if member, ok := f.members[userID]; ok {
		copied := *member
		return &copied, nil
	}
	return &api.ChatMember{Status: "left", User: &api.User{ID: userID}}, nil
}

func (f *fakeTelegram) GetAdministrators(_ context.Context, _ int64) ([]api.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []api.ChatMember
	for _, id := range []int64{testBotID, adminID} {
		res = append(res, *f.members[id])
	}
	return res, nil
}

func (f *fakeTelegram) BotID() int64 { return testBotID }

func (f *fakeTelegram) GetChatMember(ctx context.Context, chatID, userID int64) (moderation.MemberStatus, error) {
	member, err := f.ChatMember(ctx, chatID, userID)
	if err != nil {
		return "", err
	}
	return moderation.MemberStatus(member.Status), nil
}

func (f *fakeTelegram) record(action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
}

func (f *fakeTelegram) RestrictMember(context.Context, int64, int64, time.Time) error {
	f.record("restrict")
	return nil
}

func (f *fakeTelegram) BanMember(context.Context, int64, int64) error {
	f.record("ban")
	return nil
}

func (f *fakeTelegram) UnbanMember(context.Context, int64, int64) error {
	f.record("unban")
	return nil
}

func (f *fakeTelegram) DeleteMessage(context.Context, int64, int) error {
	f.record("delete")
	return nil
}

func (f *fakeTelegram) performed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...)
}

// texts returns the text of every message sent so far.
func (f *fakeTelegram) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []string
	for _, c := range f.sent {
		switch msg := c.(type) {
		case api.MessageConfig:
			res = append(res, msg.Text)
		case api.EditMessageTextConfig:
			res = append(res, msg.Text)
		}
	}
	return res
}

func (f *fakeTelegram) lastText(t *testing.T) string {
	t.Helper()
	texts := f.texts()
	if len(texts) == 0 {
		t.Fatalf("nothing was sent")
	}
	return texts[len(texts)-1]
}

func (f *fakeTelegram) lastMessage(t *testing.T) api.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if msg, ok := f.sent[i].(api.MessageConfig); ok {
			return msg
		}
	}
	t.Fatalf("no message was sent")
	return api.MessageConfig{}
}

type fixture struct {
	moderator   *Moderator
	tg          *fakeTelegram
	coordinator *moderation.Coordinator
	users       *reg.Registry
	nextID      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := sqlite.NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	tg := newFakeTelegram()
	coordinator := moderation.NewCoordinator(
		moderation.NewSettings(store),
		moderation.NewLedger(store),
		moderation.NewFloodDetector(),
		moderation.NewSlowmodeTracker(),
		moderation.NewFilterEngine(store, 16, time.Minute),
		moderation.NewMemberDirectory(tg, 64, time.Minute, time.Second),
		tg,
		moderation.CoordinatorConfig{PlatformTimeout: time.Second},
	)
	users, err := reg.New(128)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	return &fixture{
		moderator:   NewModerator(tg, coordinator, users, "en"),
		tg:          tg,
		coordinator: coordinator,
		users:       users,
	}
}

func (f *fixture) user(id int64) *api.User {
	member, _ := f.tg.ChatMember(context.Background(), testChatID, id)
	return member.User
}

func (f *fixture) chat() *api.Chat {
	return &api.Chat{ID: testChatID, Type: "supergroup", Title: "Test Group"}
}

func (f *fixture) message(from int64, text string) *api.Message {
	f.nextID++
	msg := &api.Message{
		MessageID: f.nextID,
		From:      f.user(from),
		Chat:      *f.chat(),
		Date:      int(time.Now().Unix()),
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		end := strings.IndexAny(text, " \n")
		if end < 0 {
			end = len(text)
		}
		msg.Entities = []api.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}}
	}
	return msg
}

func (f *fixture) send(t *testing.T, msg *api.Message) {
	t.Helper()
	proceed, err := f.moderator.Handle(context.Background(), &api.Update{Message: msg}, &msg.Chat, msg.From)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !proceed {
		t.Fatalf("handler stopped the chain")
	}
}

func (f *fixture) replyTo(msg *api.Message, target int64) *api.Message {
	msg.ReplyToMessage = &api.Message{MessageID: 500, From: f.user(target), Chat: *f.chat()}
	return msg
}
