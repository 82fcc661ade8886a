package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

type recorder struct {
	events []string
}

type fakeComponent struct {
	name     string
	rec      *recorder
	startErr error
	stopErr  error

	stopCtxErr   error
	stopDeadline bool
}

func (c *fakeComponent) Start(context.Context) error {
	c.rec.events = append(c.rec.events, "start:"+c.name)
	return c.startErr
}

func (c *fakeComponent) Stop(ctx context.Context) error {
	c.stopCtxErr = ctx.Err()
	_, c.stopDeadline = ctx.Deadline()
	c.rec.events = append(c.rec.events, "stop:"+c.name)
	return c.stopErr
}

func TestRuntimeStopsInReverseOrder(t *testing.T) {
	rec := &recorder{}
	r := NewRuntime(time.Second).
		Register("store", &fakeComponent{name: "store", rec: rec}).
		Register("sweeper", &fakeComponent{name: "sweeper", rec: rec}).
		Register("poller", &fakeComponent{name: "poller", rec: rec})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start:store", "start:sweeper", "start:poller", "stop:poller", "stop:sweeper", "stop:store"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("got %v, want %v", rec.events, want)
	}
}

func TestRuntimeStartFailureRollsBack(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	r := NewRuntime(time.Second).
		Register("store", &fakeComponent{name: "store", rec: rec}).
		Register("metrics", &fakeComponent{name: "metrics", rec: rec, startErr: boom}).
		Register("poller", &fakeComponent{name: "poller", rec: rec})

	err := r.Start(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "start metrics") {
		t.Fatalf("error does not name the component: %v", err)
	}

	want := []string{"start:store", "start:metrics", "stop:store"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("got %v, want %v", rec.events, want)
	}
}

func TestRuntimeStopJoinsErrors(t *testing.T) {
	rec := &recorder{}
	errA, errB := errors.New("a"), errors.New("b")
	r := NewRuntime(time.Second).
		Register("a", &fakeComponent{name: "a", rec: rec, stopErr: errA}).
		Register("b", &fakeComponent{name: "b", rec: rec, stopErr: errB})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := r.Stop(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both stop errors, got %v", err)
	}
	if len(rec.events) != 4 {
		t.Fatalf("every component should be stopped: %v", rec.events)
	}
}

func TestRuntimeRegisterSkipsNil(t *testing.T) {
	r := NewRuntime(0).Register("nothing", nil)
	if len(r.components) != 0 {
		t.Fatalf("nil component registered")
	}
	if r.stopTimeout != DefaultStopTimeout {
		t.Fatalf("stop timeout = %v, want default", r.stopTimeout)
	}
}

func TestRuntimeRun(t *testing.T) {
	tests := []struct {
		name    string
		trigger func(cancel context.CancelFunc, done chan struct{})
	}{
		{name: "context cancelled", trigger: func(cancel context.CancelFunc, _ chan struct{}) { cancel() }},
		{name: "done closed", trigger: func(_ context.CancelFunc, done chan struct{}) { close(done) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			c := &fakeComponent{name: "poller", rec: rec}
			r := NewRuntime(time.Second).Register("poller", c)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			done := make(chan struct{})
			tt.trigger(cancel, done)

			if err := r.Run(ctx, done); err != nil {
				t.Fatalf("run: %v", err)
			}
			if !reflect.DeepEqual(rec.events, []string{"start:poller", "stop:poller"}) {
				t.Fatalf("unexpected events: %v", rec.events)
			}
			if c.stopCtxErr != nil {
				t.Fatalf("stop context was already done during stop: %v", c.stopCtxErr)
			}
			if !c.stopDeadline {
				t.Fatalf("stop context has no deadline")
			}
		})
	}
}

func TestOnStop(t *testing.T) {
	closed := 0
	c := OnStop(func() error {
		closed++
		return nil
	})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if closed != 0 {
		t.Fatalf("closed on start")
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if closed != 1 {
		t.Fatalf("closed %d times", closed)
	}
}
