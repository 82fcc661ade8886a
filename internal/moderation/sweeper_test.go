package moderation

import (
	"context"
	"testing"
	"time"
)

func TestSweeperDropsIdleState(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	flood := NewFloodDetector()
	flood.now = clock
	slowmode := NewSlowmodeTracker()
	slowmode.now = clock

	flood.RecordAndCheck(-1, 1, now, 5, 10*time.Second)
	slowmode.Allow(-1, 1, now, 30*time.Second)

	s := NewSweeper(flood, slowmode, time.Minute, 10*time.Minute)

	now = now.Add(11 * time.Minute)
	s.Sweep()
	if flood.Size() != 0 {
		t.Fatalf("flood state kept: %d", flood.Size())
	}
	if slowmode.Size() != 1 {
		t.Fatalf("slowmode mark dropped before the longest interval passed")
	}

	now = now.Add(time.Hour)
	s.Sweep()
	if slowmode.Size() != 0 {
		t.Fatalf("slowmode state kept: %d", slowmode.Size())
	}
}

func TestSweeperStartStop(t *testing.T) {
	t.Parallel()

	s := NewSweeper(NewFloodDetector(), NewSlowmodeTracker(), 5*time.Millisecond, time.Minute)
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestSweeperKeepsFloodStampsInsideLongWindow(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	flood := NewFloodDetector()
	flood.now = func() time.Time { return now }
	s := NewSweeper(flood, NewSlowmodeTracker(), time.Minute, 10*time.Minute)

	for i := 0; i < 4; i++ {
		if flood.RecordAndCheck(-1, 1, now, 5, time.Hour) {
			t.Fatalf("message %d triggered early", i+1)
		}
	}

	now = now.Add(11 * time.Minute)
	s.Sweep()
	if got := flood.Tracked(-1, 1); got != 4 {
		t.Fatalf("stamps inside the window were swept, tracked=%d", got)
	}
	if !flood.RecordAndCheck(-1, 1, now, 5, time.Hour) {
		t.Fatalf("fifth message within the hour must trigger")
	}

	flood.RecordAndCheck(-1, 2, now, 5, time.Hour)
	now = now.Add(61 * time.Minute)
	s.Sweep()
	if flood.Size() != 0 {
		t.Fatalf("state past the window must be swept, size=%d", flood.Size())
	}
}
