package moderation

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// StaleThreshold is how old an event may be before activity tracking ignores it.
const StaleThreshold = 60 * time.Second

type (
	activityKey struct {
		chatID int64
		userID int64
	}

	floodWindow struct {
		stamps []int64
		seen   int64
		window time.Duration
	}

	// FloodDetector counts each user's recent messages per chat in a sliding window.
	// State lives in memory only and starts empty.
	FloodDetector struct {
		windows *xsync.MapOf[activityKey, floodWindow]
		now     func() time.Time
	}
)

func NewFloodDetector() *FloodDetector {
	return &FloodDetector{
		windows: xsync.NewMapOf[activityKey, floodWindow](),
		now:     time.Now,
	}
}

// RecordAndCheck records a message sent at eventTime and reports whether the user
// has now sent limit or more messages within window. A positive result clears the
// user's history. A non-positive limit disables tracking.
func (d *FloodDetector) RecordAndCheck(chatID, userID int64, eventTime time.Time, limit int, window time.Duration) bool {
	if limit <= 0 {
		return false
	}
	if d.now().Sub(eventTime) > StaleThreshold {
		return false
	}

	ts := eventTime.UnixNano()
	cutoff := ts - window.Nanoseconds()
	triggered := false

	d.windows.Compute(activityKey{chatID, userID}, func(old floodWindow, _ bool) (floodWindow, bool) {
		stamps := make([]int64, 0, len(old.stamps)+1)
		for _, stamp := range old.stamps {
			if stamp > cutoff {
				stamps = append(stamps, stamp)
			}
		}
		stamps = append(stamps, ts)
		if len(stamps) >= limit {
			triggered = true
			return floodWindow{}, true
		}
		return floodWindow{stamps: stamps, seen: d.now().UnixNano(), window: window}, false
	})

	return triggered
}

// Tracked returns how many messages are currently held for the user.
func (d *FloodDetector) Tracked(chatID, userID int64) int {
	w, ok := d.windows.Load(activityKey{chatID, userID})
	if !ok {
		return 0
	}
	return len(w.stamps)
}

func (d *FloodDetector) Forget(chatID, userID int64) {
	d.windows.Delete(activityKey{chatID, userID})
}

func (d *FloodDetector) Size() int {
	return d.windows.Size()
}

// Sweep drops users who have not been seen for longer than idle, or than their
// chat's window when that is longer.
func (d *FloodDetector) Sweep(idle time.Duration) int {
	now := d.now()
	removed := 0
	d.windows.Range(func(key activityKey, _ floodWindow) bool {
		d.windows.Compute(key, func(old floodWindow, loaded bool) (floodWindow, bool) {
			if !loaded {
				return old, true
			}
			if old.seen < now.Add(-max(idle, old.window)).UnixNano() {
				removed++
				return old, true
			}
			return old, false
		})
		return true
	})
	return removed
}
