package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
)

type recordingHandler struct {
	proceed bool
	err     error
	calls   int
	chat    *api.Chat
	user    *api.User
}

func (h *recordingHandler) Handle(_ context.Context, _ *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	h.calls++
	h.chat = chat
	h.user = user
	return h.proceed, h.err
}

func messageUpdate(date time.Time) *api.Update {
	return &api.Update{
		UpdateID: 1,
		Message: &api.Message{
			MessageID: 10,
			Date:      int(date.Unix()),
			Chat:      api.Chat{ID: -100, Type: "supergroup"},
			From:      &api.User{ID: 7, FirstName: "Ann"},
			Text:      "hi",
		},
	}
}

func TestUpdateProcessorSkipsOutdatedUpdates(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{proceed: true}
	up := NewUpdateProcessor(handler)

	if err := up.Process(context.Background(), messageUpdate(time.Now().Add(-10*time.Minute))); err != nil {
		t.Fatalf("process: %v", err)
	}
	if handler.calls != 0 {
		t.Fatalf("outdated update must be skipped")
	}
}

func TestUpdateProcessorStopsChain(t *testing.T) {
	t.Parallel()

	first := &recordingHandler{proceed: false}
	second := &recordingHandler{proceed: true}
	up := NewUpdateProcessor(first, nil, second)

	if err := up.Process(context.Background(), messageUpdate(time.Now())); err != nil {
		t.Fatalf("process: %v", err)
	}
	if first.calls != 1 || second.calls != 0 {
		t.Fatalf("unexpected calls: first=%d second=%d", first.calls, second.calls)
	}
	if first.chat == nil || first.chat.ID != -100 || first.user == nil || first.user.ID != 7 {
		t.Fatalf("chat and user must be resolved: %#v %#v", first.chat, first.user)
	}
}

func TestUpdateProcessorWrapsHandlerErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	up := NewUpdateProcessor(&recordingHandler{err: boom})

	err := up.Process(context.Background(), messageUpdate(time.Now()))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped handler error, got %v", err)
	}
}

func TestUpdateProcessorResolvesChatMemberUpdates(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{proceed: true}
	up := NewUpdateProcessor(handler)

	u := &api.Update{
		UpdateID: 2,
		ChatMember: &api.ChatMemberUpdated{
			Chat: api.Chat{ID: -200, Type: "group"},
			From: api.User{ID: 9},
			Date: int(time.Now().Unix()),
		},
	}
	if err := up.Process(context.Background(), u); err != nil {
		t.Fatalf("process: %v", err)
	}
	if handler.chat == nil || handler.chat.ID != -200 || handler.user == nil || handler.user.ID != 9 {
		t.Fatalf("chat member update not resolved: %#v %#v", handler.chat, handler.user)
	}
}

func TestMessageTextFallsBackToCaption(t *testing.T) {
	t.Parallel()

	if got := MessageText(&api.Message{Caption: "photo caption"}); got != "photo caption" {
		t.Fatalf("unexpected text: %q", got)
	}
	if got := MessageText(&api.Message{Text: "text", Caption: "caption"}); got != "text" {
		t.Fatalf("unexpected text: %q", got)
	}
	if got := MessageText(nil); got != "" {
		t.Fatalf("nil message must have no text")
	}
}
