package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultStopTimeout = 15 * time.Second

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type namedComponent struct {
	name string
	Component
}

// Runtime owns the bot's long-running parts. Components start in registration order
// and stop in reverse.
type Runtime struct {
	components  []namedComponent
	stopTimeout time.Duration
}

func NewRuntime(stopTimeout time.Duration) *Runtime {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Runtime{stopTimeout: stopTimeout}
}

func (r *Runtime) Register(name string, component Component) *Runtime {
	if component != nil {
		r.components = append(r.components, namedComponent{name: name, Component: component})
	}
	return r
}

func (r *Runtime) Start(ctx context.Context) error {
	for i, c := range r.components {
		if err := c.Start(ctx); err != nil {
			_ = stopComponents(ctx, r.components[:i])
			return fmt.Errorf("start %s: %w", c.name, err)
		}
		r.getLogEntry().WithField("component", c.name).Debug("started")
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	return stopComponents(ctx, r.components)
}

// Run starts every component, blocks until ctx is cancelled or done fires, then stops
// them within the stop timeout.
func (r *Runtime) Run(ctx context.Context, done <-chan struct{}) error {
	if err := r.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		r.getLogEntry().Info("shutdown requested")
	case <-done:
		r.getLogEntry().Info("restart requested")
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.stopTimeout)
	defer cancel()
	return r.Stop(stopCtx)
}

// OnStop wraps a cleanup function, such as closing a database, as a component.
func OnStop(fn func() error) Component {
	return stopFunc(fn)
}

type stopFunc func() error

func (stopFunc) Start(context.Context) error { return nil }

func (f stopFunc) Stop(context.Context) error { return f() }

func stopComponents(ctx context.Context, components []namedComponent) error {
	var stopErr error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.Stop(ctx); err != nil {
			stopErr = errors.Join(stopErr, fmt.Errorf("stop %s: %w", c.name, err))
			continue
		}
		log.WithField("object", "Runtime").WithField("component", c.name).Debug("stopped")
	}
	return stopErr
}

func (r *Runtime) getLogEntry() *log.Entry {
	return log.WithField("object", "Runtime")
}
