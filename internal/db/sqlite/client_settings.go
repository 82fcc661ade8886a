package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iamwavecut/ngmod/internal/db"
)

const settingsColumns = `chat_id, warn_limit, warn_action, antiflood_limit, antiflood_window,
	slowmode_seconds, report_enabled, welcome_message, goodbye_message, created_at, updated_at`

func (c *sqliteClient) GetOrCreateSettings(ctx context.Context, chatID int64) (*db.ChatSettings, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now().UTC()
	defaults := db.DefaultSettings(chatID)
	_, err := c.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO chat_settings (`+settingsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		defaults.ChatID,
		defaults.WarnLimit,
		defaults.WarnAction,
		defaults.AntifloodLimit,
		defaults.AntifloodWindow,
		defaults.SlowmodeSeconds,
		defaults.ReportEnabled,
		defaults.WelcomeMessage,
		defaults.GoodbyeMessage,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert default settings: %w", err)
	}
	return c.getSettings(ctx, chatID)
}

// UpdateSettings merges the given fields in a single upsert statement, so concurrent
// updates of different fields never overwrite each other.
func (c *sqliteClient) UpdateSettings(ctx context.Context, chatID int64, patch db.SettingsPatch) (*db.ChatSettings, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now().UTC()
	merged := patch.Apply(db.DefaultSettings(chatID))

	assignments := make([]string, 0, 9)
	for _, field := range []struct {
		column string
		set    bool
	}{
		{"warn_limit", patch.WarnLimit != nil},
		{"warn_action", patch.WarnAction != nil},
		{"antiflood_limit", patch.AntifloodLimit != nil},
		{"antiflood_window", patch.AntifloodWindow != nil},
		{"slowmode_seconds", patch.SlowmodeSeconds != nil},
		{"report_enabled", patch.ReportEnabled != nil},
		{"welcome_message", patch.WelcomeMessage != nil},
		{"goodbye_message", patch.GoodbyeMessage != nil},
	} {
		if field.set {
			assignments = append(assignments, field.column+" = excluded."+field.column)
		}
	}
	assignments = append(assignments, "updated_at = excluded.updated_at")

	query := `
		INSERT INTO chat_settings (` + settingsColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET ` + strings.Join(assignments, ", ")
	_, err := c.db.ExecContext(ctx, query,
		merged.ChatID,
		merged.WarnLimit,
		merged.WarnAction,
		merged.AntifloodLimit,
		merged.AntifloodWindow,
		merged.SlowmodeSeconds,
		merged.ReportEnabled,
		merged.WelcomeMessage,
		merged.GoodbyeMessage,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert settings: %w", err)
	}
	return c.getSettings(ctx, chatID)
}

func (c *sqliteClient) getSettings(ctx context.Context, chatID int64) (*db.ChatSettings, error) {
	var settings db.ChatSettings
	err := c.db.GetContext(ctx, &settings, `SELECT `+settingsColumns+` FROM chat_settings WHERE chat_id = ?`, chatID)
	if err != nil {
		return nil, fmt.Errorf("select settings: %w", err)
	}
	return &settings, nil
}
