package moderation

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/maphash"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngmod/internal/db"
)

const ledgerLockStripes = 64

type warningStore interface {
	AddWarning(ctx context.Context, warning *db.Warning) (*db.Warning, int, error)
	CountWarnings(ctx context.Context, chatID, userID int64) (int, error)
	ListWarnings(ctx context.Context, chatID, userID int64) ([]*db.Warning, error)
	ResetWarnings(ctx context.Context, chatID, userID int64) (int, error)
	RemoveLatestWarning(ctx context.Context, chatID, userID int64) (bool, error)
	RemoveWarning(ctx context.Context, chatID, userID, warningID int64) (bool, error)
}

type (
	// Ledger records warnings and decides when they cross the chat's limit.
	Ledger struct {
		store warningStore
		seed  maphash.Seed
		locks [ledgerLockStripes]sync.Mutex
	}

	LedgerResult struct {
		Warning *db.Warning
		// Count is the number of warnings the user held right after this one,
		// before any reset.
		Count     int
		Escalated bool
	}
)

func NewLedger(store warningStore) *Ledger {
	return &Ledger{
		store: store,
		seed:  maphash.MakeSeed(),
	}
}

func (l *Ledger) lockFor(chatID, userID int64) *sync.Mutex {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(chatID))
	binary.LittleEndian.PutUint64(buf[8:], uint64(userID))
	return &l.locks[maphash.Bytes(l.seed, buf[:])%ledgerLockStripes]
}

func (l *Ledger) Add(ctx context.Context, userID, chatID int64, reason string, issuedBy int64) (*db.Warning, int, error) {
	mu := l.lockFor(chatID, userID)
	mu.Lock()
	defer mu.Unlock()

	return l.store.AddWarning(ctx, &db.Warning{
		ChatID:   chatID,
		UserID:   userID,
		Reason:   reason,
		IssuedBy: issuedBy,
	})
}

// AddWithLimit stores the warning and, if the user's count reaches limit, clears
// the ledger for the pair. Insert, count and reset run under the pair's lock, so
// each crossing of the limit is reported exactly once. The count restarts after a
// reset, so n concurrent warnings against limit escalate n/limit times and leave
// n%limit warnings behind.
func (l *Ledger) AddWithLimit(ctx context.Context, warning *db.Warning, limit int) (LedgerResult, error) {
	mu := l.lockFor(warning.ChatID, warning.UserID)
	mu.Lock()
	defer mu.Unlock()

	stored, count, err := l.store.AddWarning(ctx, warning)
	if err != nil {
		return LedgerResult{}, fmt.Errorf("add warning: %w", err)
	}
	res := LedgerResult{Warning: stored, Count: count}
	if limit <= 0 || count < limit {
		return res, nil
	}

	removed, err := l.store.ResetWarnings(ctx, warning.ChatID, warning.UserID)
	if err != nil {
		return res, fmt.Errorf("reset warnings: %w", err)
	}
	res.Escalated = true
	l.getLogEntry().WithFields(log.Fields{
		"chat_id": warning.ChatID,
		"user_id": warning.UserID,
		"count":   count,
		"removed": removed,
	}).Debug("warning limit reached")
	return res, nil
}

func (l *Ledger) Count(ctx context.Context, userID, chatID int64) (int, error) {
	return l.store.CountWarnings(ctx, chatID, userID)
}

func (l *Ledger) List(ctx context.Context, userID, chatID int64) ([]*db.Warning, error) {
	return l.store.ListWarnings(ctx, chatID, userID)
}

func (l *Ledger) Reset(ctx context.Context, userID, chatID int64) (int, error) {
	mu := l.lockFor(chatID, userID)
	mu.Lock()
	defer mu.Unlock()

	return l.store.ResetWarnings(ctx, chatID, userID)
}

// RemoveMostRecent drops the user's latest warning; it reports false when there was none.
func (l *Ledger) RemoveMostRecent(ctx context.Context, userID, chatID int64) (bool, error) {
	mu := l.lockFor(chatID, userID)
	mu.Lock()
	defer mu.Unlock()

	return l.store.RemoveLatestWarning(ctx, chatID, userID)
}

// Remove drops one specific warning of the user; it reports false when that warning
// is already gone, for example after a reset.
func (l *Ledger) Remove(ctx context.Context, userID, chatID, warningID int64) (bool, error) {
	mu := l.lockFor(chatID, userID)
	mu.Lock()
	defer mu.Unlock()

	return l.store.RemoveWarning(ctx, chatID, userID, warningID)
}

func (l *Ledger) getLogEntry() *log.Entry {
	return log.WithField("object", "Ledger")
}
