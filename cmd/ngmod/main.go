package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngmod/internal/bot"
	"github.com/iamwavecut/ngmod/internal/config"
	"github.com/iamwavecut/ngmod/internal/db/sqlite"
	handlers "github.com/iamwavecut/ngmod/internal/handlers/moderator"
	"github.com/iamwavecut/ngmod/internal/infra"
	"github.com/iamwavecut/ngmod/internal/infra/reg"
	"github.com/iamwavecut/ngmod/internal/infrastructure/telegram"
	"github.com/iamwavecut/ngmod/internal/lifecycle"
	"github.com/iamwavecut/ngmod/internal/moderation"
	"github.com/iamwavecut/ngmod/internal/observability"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	log.SetFormatter(&config.NbFormatter{})
	log.SetOutput(os.Stdout)
	if err != nil {
		log.WithField("error", err.Error()).Fatalln("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runtime, err := setup(ctx, cfg)
	if err != nil {
		log.WithField("error", err.Error()).Fatalln("cant set up")
	}

	log.Info("bot starting")
	if err := runtime.Run(ctx, infra.MonitorExecutable(ctx, 10*time.Second)); err != nil {
		log.WithField("error", err.Error()).Fatalln("unclean shutdown")
	}
}

func setup(ctx context.Context, cfg config.Config) (*lifecycle.Runtime, error) {
	workDir, err := infra.GetWorkDir(cfg.DotPath)
	if err != nil {
		return nil, err
	}
	store, err := sqlite.NewSQLiteClient(ctx, workDir, cfg.DBName)
	if err != nil {
		return nil, err
	}

	mc := cfg.Moderation
	botAPI, err := telegram.NewBotAPI(cfg.TelegramAPIToken, "", mc.PlatformTimeout)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	pollAPI, err := telegram.NewBotAPI(cfg.TelegramAPIToken, "", bot.LongPollTimeout+mc.PlatformTimeout)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
		pollAPI.Debug = true
	}
	ops := telegram.NewOperations(botAPI, cfg.APIRequestsPerSec)

	flood := moderation.NewFloodDetector()
	slowmode := moderation.NewSlowmodeTracker()
	coordinator := moderation.NewCoordinator(
		moderation.NewSettings(store),
		moderation.NewLedger(store),
		flood,
		slowmode,
		moderation.NewFilterEngine(store, mc.TriggerCacheSize, mc.TriggerCacheTTL),
		moderation.NewMemberDirectory(ops, mc.MemberCacheSize, mc.MemberCacheTTL, mc.PlatformTimeout),
		ops,
		moderation.CoordinatorConfig{
			PlatformTimeout:   mc.PlatformTimeout,
			FloodMuteDuration: mc.FloodMuteDuration,
		},
	)

	users, err := reg.New(mc.UsernameCacheSize)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	processor := bot.NewUpdateProcessor(
		handlers.NewModerator(ops, coordinator, users, cfg.DefaultLanguage),
	)

	return lifecycle.NewRuntime(shutdownTimeout).
		Register("store", lifecycle.OnStop(store.Close)).
		Register("metrics", observability.NewServer(cfg.MetricsAddr)).
		Register("sweeper", moderation.NewSweeper(flood, slowmode, mc.FloodSweepEvery, mc.FloodIdleAfter)).
		Register("poller", bot.NewPoller(pollAPI, processor, cfg.Workers)), nil
}
