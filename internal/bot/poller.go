package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/iamwavecut/ngmod/internal/infra"
)

const (
	pollRetryDelay = 3 * time.Second
	// LongPollTimeout is how long Telegram holds a getUpdates call open.
	LongPollTimeout = 60 * time.Second
)

var allowedUpdates = []string{"message", "callback_query", "chat_member", "my_chat_member"}

type updatesSource interface {
	GetUpdates(config api.UpdateConfig) ([]api.Update, error)
}

// Poller long-polls Telegram and hands every update to the processor on its own
// goroutine, with at most workers updates in flight.
type Poller struct {
	source    updatesSource
	processor *UpdateProcessor
	sem       *semaphore.Weighted
	workers   int64

	runMutex  sync.Mutex
	started   bool
	runCancel context.CancelFunc
	workersWg sync.WaitGroup
}

func NewPoller(source updatesSource, processor *UpdateProcessor, workers int64) *Poller {
	if workers <= 0 {
		workers = 1
	}
	return &Poller{
		source:    source,
		processor: processor,
		sem:       semaphore.NewWeighted(workers),
		workers:   workers,
	}
}

func (p *Poller) Start(ctx context.Context) error {
	p.runMutex.Lock()
	defer p.runMutex.Unlock()
	if p.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.runCancel = cancel

	p.workersWg.Add(1)
	go func() {
		defer p.workersWg.Done()
		p.poll(runCtx)
	}()

	p.started = true
	return nil
}

func (p *Poller) Stop(ctx context.Context) error {
	p.runMutex.Lock()
	if !p.started {
		p.runMutex.Unlock()
		return nil
	}
	p.started = false
	cancel := p.runCancel
	p.runMutex.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.workersWg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop poller: %w", ctx.Err())
	}
}

func (p *Poller) poll(ctx context.Context) {
	entry := p.getLogEntry()
	config := api.NewUpdate(0)
	config.Timeout = int(LongPollTimeout / time.Second)
	config.AllowedUpdates = allowedUpdates

	for ctx.Err() == nil {
		updates, err := p.source.GetUpdates(config)
		if err != nil {
			entry.WithField("error", err.Error()).Warn("cant get updates")
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID < config.Offset {
				continue
			}
			config.Offset = update.UpdateID + 1
			if err := p.sem.Acquire(ctx, 1); err != nil {
				return
			}
			p.workersWg.Add(1)
			go func(u api.Update) {
				defer p.workersWg.Done()
				defer p.sem.Release(1)
				defer infra.RecoverPanic(fmt.Sprintf("update %d", u.UpdateID))
				if err := p.processor.Process(ctx, &u); err != nil {
					entry.WithField("error", err.Error()).WithField("update_id", u.UpdateID).Error("cant process update")
				}
			}(update)
		}
	}
}

func (p *Poller) getLogEntry() *log.Entry {
	return log.WithField("object", "Poller")
}
