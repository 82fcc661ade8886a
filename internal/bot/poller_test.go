package bot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
)

type fakeUpdatesSource struct {
	mu      sync.Mutex
	batches [][]api.Update
}

func (s *fakeUpdatesSource) GetUpdates(_ api.UpdateConfig) ([]api.Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		time.Sleep(10 * time.Millisecond)
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

type countingHandler struct {
	calls atomic.Int32
}

func (h *countingHandler) Handle(context.Context, *api.Update, *api.Chat, *api.User) (bool, error) {
	h.calls.Add(1)
	return true, nil
}

func TestPollerDispatchesEveryUpdateOnce(t *testing.T) {
	t.Parallel()

	now := int(time.Now().Unix())
	update := func(id int) api.Update {
		return api.Update{
			UpdateID: id,
			Message: &api.Message{
				Date: now,
				Chat: api.Chat{ID: -1, Type: "group"},
				From: &api.User{ID: 1},
			},
		}
	}
	source := &fakeUpdatesSource{batches: [][]api.Update{
		{update(1), update(2)},
		{update(2), update(3)},
	}}
	handler := &countingHandler{}
	poller := NewPoller(source, NewUpdateProcessor(handler), 2)

	ctx := context.Background()
	if err := poller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for handler.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := poller.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := handler.calls.Load(); got != 3 {
		t.Fatalf("expected 3 dispatched updates, got %d", got)
	}
}
