package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iamwavecut/ngmod/internal/db"
	ngerrors "github.com/iamwavecut/ngmod/internal/errors"
)

func newTestFilterEngine(t *testing.T) *FilterEngine {
	t.Helper()
	return NewFilterEngine(newTestStore(t), 16, time.Minute)
}

func TestFilterEngineMatchesWholeWordsOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newTestFilterEngine(t)
	if _, err := f.AddTrigger(ctx, -1, db.TriggerKindBlacklist, "spam", ""); err != nil {
		t.Fatalf("add trigger: %v", err)
	}

	tests := []struct {
		text  string
		match bool
	}{
		{text: "spam", match: true},
		{text: "this is SPAM!", match: true},
		{text: "(spam)", match: true},
		{text: "spam,spam", match: true},
		{text: "spammer here", match: false},
		{text: "antispam", match: false},
		{text: "spam_bot", match: false},
		{text: "", match: false},
	}
	for _, tt := range tests {
		got, err := f.Match(ctx, -1, tt.text)
		if err != nil {
			t.Fatalf("match %q: %v", tt.text, err)
		}
		if (got != nil) != tt.match {
			t.Fatalf("text %q: match=%v want %v", tt.text, got != nil, tt.match)
		}
	}
}

func TestFilterEngineMatchesMultiWordAndUnicodeKeywords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newTestFilterEngine(t)
	for _, keyword := range []string{"free money", "Казино", "café"} {
		if _, err := f.AddTrigger(ctx, -1, db.TriggerKindBlacklist, keyword, ""); err != nil {
			t.Fatalf("add trigger %q: %v", keyword, err)
		}
	}

	for _, text := range []string{"get FREE MONEY now", "лучшее казино!", "meet at the café"} {
		got, err := f.Match(ctx, -1, text)
		if err != nil {
			t.Fatalf("match %q: %v", text, err)
		}
		if got == nil {
			t.Fatalf("text %q must match", text)
		}
	}
	if got, _ := f.Match(ctx, -1, "free moneybags"); got != nil {
		t.Fatalf("partial word must not match, got %q", got.Keyword)
	}
}

func TestFilterEngineFirstMatchInInsertionOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newTestFilterEngine(t)
	if _, err := f.AddTrigger(ctx, -1, db.TriggerKindWarn, "rude", "be polite"); err != nil {
		t.Fatalf("add warn trigger: %v", err)
	}
	if _, err := f.AddTrigger(ctx, -1, db.TriggerKindBlacklist, "scam", ""); err != nil {
		t.Fatalf("add blacklist trigger: %v", err)
	}

	got, err := f.Match(ctx, -1, "scam and rude")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if got == nil || got.Kind != db.TriggerKindWarn || got.Keyword != "rude" {
		t.Fatalf("earliest trigger must win, got %#v", got)
	}
}

func TestFilterEngineWritesInvalidateCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newTestFilterEngine(t)

	if got, _ := f.Match(ctx, -1, "buy crypto"); got != nil {
		t.Fatalf("empty chat must not match")
	}
	if _, err := f.AddTrigger(ctx, -1, db.TriggerKindBlacklist, "  CRYPTO ", ""); err != nil {
		t.Fatalf("add trigger: %v", err)
	}
	got, err := f.Match(ctx, -1, "buy crypto")
	if err != nil || got == nil {
		t.Fatalf("new trigger must be visible: got=%v err=%v", got, err)
	}
	if got.Keyword != "crypto" {
		t.Fatalf("keyword must be normalized, got %q", got.Keyword)
	}

	removed, err := f.RemoveTrigger(ctx, -1, db.TriggerKindBlacklist, "Crypto")
	if err != nil || !removed {
		t.Fatalf("remove trigger: removed=%v err=%v", removed, err)
	}
	if got, _ := f.Match(ctx, -1, "buy crypto"); got != nil {
		t.Fatalf("removed trigger must not match")
	}
}

func TestFilterEngineRejectsBadInput(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newTestFilterEngine(t)

	if _, err := f.AddTrigger(ctx, -1, db.TriggerKindWarn, "   ", ""); !errors.Is(err, ngerrors.ErrInvalidInput) {
		t.Fatalf("empty keyword: expected invalid input, got %v", err)
	}
	if _, err := f.AddTrigger(ctx, -1, db.TriggerKind("reply"), "hi", ""); !errors.Is(err, ngerrors.ErrInvalidInput) {
		t.Fatalf("unknown kind: expected invalid input, got %v", err)
	}
}

func TestWarnReason(t *testing.T) {
	t.Parallel()

	if got := WarnReason(&db.FilterTrigger{Keyword: "idiot"}); got != "Triggered warn filter: idiot" {
		t.Fatalf("unexpected default reason: %q", got)
	}
	if got := WarnReason(&db.FilterTrigger{Keyword: "idiot", Reply: "no insults"}); got != "no insults" {
		t.Fatalf("unexpected reply reason: %q", got)
	}
}
