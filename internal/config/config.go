package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken  string  `env:"TOKEN,required"`
		DefaultLanguage   string  `env:"LANG,default=en"`
		LogLevel          int     `env:"LOG_LEVEL,default=4"`
		DotPath           string  `env:"DOT_PATH,default=~/.ngmod"`
		DBName            string  `env:"DB_NAME,default=ngmod.db"`
		MetricsAddr       string  `env:"METRICS_ADDR,default=:2112"`
		Workers           int64   `env:"WORKERS,default=16"`
		APIRequestsPerSec float64 `env:"API_RPS,default=25"`
		Moderation        Moderation
	}

	Moderation struct {
		PlatformTimeout   time.Duration `env:"PLATFORM_TIMEOUT,default=10s"`
		FloodMuteDuration time.Duration `env:"FLOOD_MUTE_DURATION,default=0s"`
		FloodSweepEvery   time.Duration `env:"FLOOD_SWEEP_INTERVAL,default=1m"`
		FloodIdleAfter    time.Duration `env:"FLOOD_IDLE_AFTER,default=10m"`
		MemberCacheTTL    time.Duration `env:"MEMBER_CACHE_TTL,default=2m"`
		MemberCacheSize   int           `env:"MEMBER_CACHE_SIZE,default=10000"`
		TriggerCacheTTL   time.Duration `env:"TRIGGER_CACHE_TTL,default=10m"`
		TriggerCacheSize  int           `env:"TRIGGER_CACHE_SIZE,default=1000"`
		UsernameCacheSize int           `env:"USERNAME_CACHE_SIZE,default=50000"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

// Load reads the configuration once, from NG_-prefixed environment variables and
// an optional .env file in the working directory.
func Load() (Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.WithField("error", err.Error()).Warn("cant load .env file")
		}
		cfg, err := Process(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// Process builds a Config from the given lookuper.
func Process(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper("NG_", lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath
	return cfg, nil
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
