package moderation

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// SlowmodeTracker remembers when each user last had a message accepted.
type SlowmodeTracker struct {
	last *xsync.MapOf[activityKey, int64]
	now  func() time.Time
}

func NewSlowmodeTracker() *SlowmodeTracker {
	return &SlowmodeTracker{
		last: xsync.NewMapOf[activityKey, int64](),
		now:  time.Now,
	}
}

// Allow reports whether a message sent at eventTime respects the interval since the
// user's previous accepted message. Rejected messages do not move the mark.
func (s *SlowmodeTracker) Allow(chatID, userID int64, eventTime time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return true
	}
	if s.now().Sub(eventTime) > StaleThreshold {
		return true
	}

	ts := eventTime.UnixNano()
	allowed := true
	s.last.Compute(activityKey{chatID, userID}, func(prev int64, loaded bool) (int64, bool) {
		if loaded && ts-prev < interval.Nanoseconds() {
			allowed = false
			return prev, false
		}
		return ts, false
	})
	return allowed
}

func (s *SlowmodeTracker) Forget(chatID, userID int64) {
	s.last.Delete(activityKey{chatID, userID})
}

func (s *SlowmodeTracker) Size() int {
	return s.last.Size()
}

// Sweep drops marks older than idle.
func (s *SlowmodeTracker) Sweep(idle time.Duration) int {
	threshold := s.now().Add(-idle).UnixNano()
	removed := 0
	s.last.Range(func(key activityKey, _ int64) bool {
		s.last.Compute(key, func(prev int64, loaded bool) (int64, bool) {
			if !loaded || prev < threshold {
				if loaded {
					removed++
				}
				return prev, true
			}
			return prev, false
		})
		return true
	})
	return removed
}
