package moderation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iamwavecut/ngmod/internal/db/sqlite"
)

type testStore interface {
	settingsStore
	warningStore
	triggerStore
	Close() error
}

func newTestStore(t *testing.T) testStore {
	t.Helper()

	client, err := sqlite.NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type platformCall struct {
	method string
	chatID int64
	userID int64
}

type fakePlatform struct {
	mu       sync.Mutex
	statuses map[int64]MemberStatus
	calls    []platformCall

	restrictErr error
	banErr      error
	deleteErr   error
	lookups     int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{statuses: map[int64]MemberStatus{}}
}

func (p *fakePlatform) setStatus(userID int64, status MemberStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[userID] = status
}

func (p *fakePlatform) record(method string, chatID, userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, platformCall{method: method, chatID: chatID, userID: userID})
}

func (p *fakePlatform) methods() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := make([]string, 0, len(p.calls))
	for _, call := range p.calls {
		res = append(res, call.method)
	}
	return res
}

func (p *fakePlatform) GetChatMember(_ context.Context, _ int64, userID int64) (MemberStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookups++
	if status, ok := p.statuses[userID]; ok {
		return status, nil
	}
	return MemberStatusMember, nil
}

func (p *fakePlatform) RestrictMember(_ context.Context, chatID, userID int64, _ time.Time) error {
	p.record("restrict", chatID, userID)
	return p.restrictErr
}

func (p *fakePlatform) BanMember(_ context.Context, chatID, userID int64) error {
	p.record("ban", chatID, userID)
	return p.banErr
}

func (p *fakePlatform) UnbanMember(_ context.Context, chatID, userID int64) error {
	p.record("unban", chatID, userID)
	return nil
}

func (p *fakePlatform) DeleteMessage(_ context.Context, chatID int64, _ int) error {
	p.record("delete", chatID, 0)
	return p.deleteErr
}
