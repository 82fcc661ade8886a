package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestProcessAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{
		"NG_TOKEN":     "123:abc",
		"NG_DOT_PATH":  "/var/lib/ngmod",
		"NG_WORKERS":   "4",
		"NG_API_RPS":   "10",
		"IGNORED_NAME": "x",
	}))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if cfg.TelegramAPIToken != "123:abc" {
		t.Fatalf("unexpected token: %q", cfg.TelegramAPIToken)
	}
	if cfg.DotPath != "/var/lib/ngmod" || cfg.Workers != 4 || cfg.APIRequestsPerSec != 10 {
		t.Fatalf("unexpected overrides: %#v", cfg)
	}
	if cfg.Moderation.PlatformTimeout != 10*time.Second {
		t.Fatalf("unexpected platform timeout: %s", cfg.Moderation.PlatformTimeout)
	}
	if cfg.Moderation.FloodMuteDuration != 0 {
		t.Fatalf("flood mute must default to forever, got %s", cfg.Moderation.FloodMuteDuration)
	}
}

func TestProcessRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err == nil || !strings.Contains(err.Error(), "TOKEN") {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestProcessExpandsHome(t *testing.T) {
	t.Parallel()

	cfg, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{
		"NG_TOKEN": "t",
	}))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if strings.HasPrefix(cfg.DotPath, "~") {
		t.Fatalf("dot path not expanded: %q", cfg.DotPath)
	}
}
