package moderation

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngmod/internal/db"
)

type settingsStore interface {
	GetOrCreateSettings(ctx context.Context, chatID int64) (*db.ChatSettings, error)
	UpdateSettings(ctx context.Context, chatID int64, patch db.SettingsPatch) (*db.ChatSettings, error)
}

// Settings is the per-chat configuration store. A chat seen for the first time gets defaults.
type Settings struct {
	store settingsStore
}

func NewSettings(store settingsStore) *Settings {
	return &Settings{store: store}
}

func (s *Settings) GetOrCreate(ctx context.Context, chatID int64) (*db.ChatSettings, error) {
	return s.store.GetOrCreateSettings(ctx, chatID)
}

func (s *Settings) Update(ctx context.Context, chatID int64, patch db.SettingsPatch) (*db.ChatSettings, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return s.store.GetOrCreateSettings(ctx, chatID)
	}
	settings, err := s.store.UpdateSettings(ctx, chatID, patch)
	if err != nil {
		return nil, err
	}
	s.getLogEntry().WithField("chat_id", chatID).Debug("settings updated")
	return settings, nil
}

func (s *Settings) getLogEntry() *log.Entry {
	return log.WithField("object", "Settings")
}
