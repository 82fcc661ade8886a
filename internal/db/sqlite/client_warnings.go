package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iamwavecut/ngmod/internal/db"
)

// AddWarning stores the warning and returns it together with the user's warning count
// in that chat, both read inside one transaction.
func (c *sqliteClient) AddWarning(ctx context.Context, warning *db.Warning) (*db.Warning, int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stored := *warning
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	var count int
	err := c.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO warnings (chat_id, user_id, reason, issued_by, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, stored.ChatID, stored.UserID, stored.Reason, stored.IssuedBy, stored.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert warning: %w", err)
		}
		if stored.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("warning id: %w", err)
		}
		if err := tx.GetContext(ctx, &count, `
			SELECT COUNT(*) FROM warnings WHERE chat_id = ? AND user_id = ?
		`, stored.ChatID, stored.UserID); err != nil {
			return fmt.Errorf("count warnings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &stored, count, nil
}

func (c *sqliteClient) CountWarnings(ctx context.Context, chatID, userID int64) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	if err := c.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM warnings WHERE chat_id = ? AND user_id = ?
	`, chatID, userID); err != nil {
		return 0, fmt.Errorf("count warnings: %w", err)
	}
	return count, nil
}

func (c *sqliteClient) ListWarnings(ctx context.Context, chatID, userID int64) ([]*db.Warning, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	warnings := make([]*db.Warning, 0)
	if err := c.db.SelectContext(ctx, &warnings, `
		SELECT id, chat_id, user_id, reason, issued_by, created_at
		FROM warnings
		WHERE chat_id = ? AND user_id = ?
		ORDER BY id DESC
	`, chatID, userID); err != nil {
		return nil, fmt.Errorf("list warnings: %w", err)
	}
	return warnings, nil
}

func (c *sqliteClient) ResetWarnings(ctx context.Context, chatID, userID int64) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `DELETE FROM warnings WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("reset warnings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset warnings rows: %w", err)
	}
	return int(n), nil
}

// RemoveWarning deletes one warning by id, only if it still belongs to the user in that chat.
func (c *sqliteClient) RemoveWarning(ctx context.Context, chatID, userID, warningID int64) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		DELETE FROM warnings WHERE id = ? AND chat_id = ? AND user_id = ?
	`, warningID, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("remove warning: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove warning rows: %w", err)
	}
	return n > 0, nil
}

func (c *sqliteClient) RemoveLatestWarning(ctx context.Context, chatID, userID int64) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		DELETE FROM warnings WHERE id = (
			SELECT id FROM warnings WHERE chat_id = ? AND user_id = ? ORDER BY id DESC LIMIT 1
		)
	`, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("remove latest warning: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove latest warning rows: %w", err)
	}
	return n > 0, nil
}
