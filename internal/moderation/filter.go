package moderation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/iamwavecut/ngmod/internal/db"
	"github.com/iamwavecut/ngmod/internal/errors"
)

const (
	wordBoundaryBefore = `(?:^|[^\p{L}\p{N}_])`
	wordBoundaryAfter  = `(?:$|[^\p{L}\p{N}_])`
)

type triggerStore interface {
	UpsertTrigger(ctx context.Context, trigger *db.FilterTrigger) error
	DeleteTrigger(ctx context.Context, chatID int64, kind db.TriggerKind, keyword string) (bool, error)
	ListTriggers(ctx context.Context, chatID int64, kind db.TriggerKind) ([]*db.FilterTrigger, error)
}

type (
	compiledTrigger struct {
		trigger *db.FilterTrigger
		pattern *regexp.Regexp
	}

	// FilterEngine matches message text against a chat's blacklist and warn-filter
	// keywords. Compiled trigger lists are cached per chat and dropped on every write.
	FilterEngine struct {
		store triggerStore
		cache *expirable.LRU[int64, []compiledTrigger]
		// serializes cache fills with writes so a fill never caches a list older than a write
		fillMutex sync.Mutex
	}
)

func NewFilterEngine(store triggerStore, cacheSize int, ttl time.Duration) *FilterEngine {
	return &FilterEngine{
		store: store,
		cache: expirable.NewLRU[int64, []compiledTrigger](cacheSize, nil, ttl),
	}
}

// NormalizeKeyword returns the stored form of a keyword.
func NormalizeKeyword(keyword string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(keyword)))
}

func compileKeyword(keyword string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)` + wordBoundaryBefore + regexp.QuoteMeta(keyword) + wordBoundaryAfter)
}

// AddTrigger stores a keyword for the chat. Adding an existing keyword replaces its reply.
func (f *FilterEngine) AddTrigger(ctx context.Context, chatID int64, kind db.TriggerKind, keyword, reply string) (*db.FilterTrigger, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown trigger kind %q", errors.ErrInvalidInput, kind)
	}
	keyword = NormalizeKeyword(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: empty keyword", errors.ErrInvalidInput)
	}

	trigger := &db.FilterTrigger{
		ChatID:  chatID,
		Kind:    kind,
		Keyword: keyword,
		Reply:   strings.TrimSpace(reply),
	}

	f.fillMutex.Lock()
	defer f.fillMutex.Unlock()
	if err := f.store.UpsertTrigger(ctx, trigger); err != nil {
		return nil, err
	}
	f.cache.Remove(chatID)
	return trigger, nil
}

func (f *FilterEngine) RemoveTrigger(ctx context.Context, chatID int64, kind db.TriggerKind, keyword string) (bool, error) {
	f.fillMutex.Lock()
	defer f.fillMutex.Unlock()

	removed, err := f.store.DeleteTrigger(ctx, chatID, kind, NormalizeKeyword(keyword))
	if err != nil {
		return false, err
	}
	f.cache.Remove(chatID)
	return removed, nil
}

func (f *FilterEngine) ListTriggers(ctx context.Context, chatID int64, kind db.TriggerKind) ([]*db.FilterTrigger, error) {
	return f.store.ListTriggers(ctx, chatID, kind)
}

// Match returns the first trigger, in insertion order across all kinds, whose keyword
// appears in text as a whole word. It returns nil when nothing matches.
func (f *FilterEngine) Match(ctx context.Context, chatID int64, text string) (*db.FilterTrigger, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	triggers, err := f.compiled(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(triggers) == 0 {
		return nil, nil
	}

	normalized := strings.ToLower(norm.NFC.String(text))
	for _, ct := range triggers {
		if ct.pattern.MatchString(normalized) {
			return ct.trigger, nil
		}
	}
	return nil, nil
}

func (f *FilterEngine) compiled(ctx context.Context, chatID int64) ([]compiledTrigger, error) {
	if triggers, ok := f.cache.Get(chatID); ok {
		return triggers, nil
	}

	f.fillMutex.Lock()
	defer f.fillMutex.Unlock()
	if triggers, ok := f.cache.Get(chatID); ok {
		return triggers, nil
	}

	stored, err := f.store.ListTriggers(ctx, chatID, "")
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	triggers := make([]compiledTrigger, 0, len(stored))
	for _, trigger := range stored {
		pattern, err := compileKeyword(trigger.Keyword)
		if err != nil {
			f.getLogEntry().WithFields(log.Fields{
				"chat_id": chatID,
				"keyword": trigger.Keyword,
				"error":   err.Error(),
			}).Warn("skipping uncompilable trigger")
			continue
		}
		triggers = append(triggers, compiledTrigger{trigger: trigger, pattern: pattern})
	}
	f.cache.Add(chatID, triggers)
	return triggers, nil
}

// WarnReason is the warning reason recorded when a warn-filter trigger fires.
func WarnReason(trigger *db.FilterTrigger) string {
	if trigger.Reply != "" {
		return trigger.Reply
	}
	return "Triggered warn filter: " + trigger.Keyword
}

func (f *FilterEngine) getLogEntry() *log.Entry {
	return log.WithField("object", "FilterEngine")
}
