package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/ngmod/internal/db"
)

const triggerColumns = `id, chat_id, kind, keyword, reply, created_at`

// UpsertTrigger keeps the original row, and therefore its position in evaluation
// order, when the keyword already exists for the chat and kind.
func (c *sqliteClient) UpsertTrigger(ctx context.Context, trigger *db.FilterTrigger) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	err := tool.Err(c.db.ExecContext(ctx, `
		INSERT INTO filter_triggers (chat_id, kind, keyword, reply, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, kind, keyword) DO UPDATE SET
			reply = excluded.reply
	`, trigger.ChatID, trigger.Kind, trigger.Keyword, trigger.Reply, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("upsert trigger: %w", err)
	}
	return nil
}

func (c *sqliteClient) DeleteTrigger(ctx context.Context, chatID int64, kind db.TriggerKind, keyword string) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		DELETE FROM filter_triggers WHERE chat_id = ? AND kind = ? AND keyword = ?
	`, chatID, kind, keyword)
	if err != nil {
		return false, fmt.Errorf("delete trigger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete trigger rows: %w", err)
	}
	return n > 0, nil
}

// ListTriggers returns the chat's triggers in insertion order; an empty kind lists every kind.
func (c *sqliteClient) ListTriggers(ctx context.Context, chatID int64, kind db.TriggerKind) ([]*db.FilterTrigger, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	triggers := make([]*db.FilterTrigger, 0)
	var err error
	if kind == "" {
		err = c.db.SelectContext(ctx, &triggers, `
			SELECT `+triggerColumns+` FROM filter_triggers WHERE chat_id = ? ORDER BY id
		`, chatID)
	} else {
		err = c.db.SelectContext(ctx, &triggers, `
			SELECT `+triggerColumns+` FROM filter_triggers WHERE chat_id = ? AND kind = ? ORDER BY id
		`, chatID, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	return triggers, nil
}
