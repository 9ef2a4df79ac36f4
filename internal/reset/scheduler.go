// Package reset schedules per-shop stock and limit resets.
//
// Each shop moves between two states: scheduled (a future next-reset
// timestamp exists) and due (now has reached it). Due is transient; the
// check that observes it immediately recomputes a next-reset strictly
// after now, so a due reset fires exactly once.
package reset

import (
	"math"
	"sync"
	"time"

	"shopd/internal/shop"
)

type state struct {
	mu   sync.Mutex
	next int64 // epoch millis; math.MaxInt64 when the policy never fires
}

// Scheduler owns all per-shop reset state.
type Scheduler struct {
	mu     sync.RWMutex
	states map[string]*state
}

func NewScheduler() *Scheduler {
	return &Scheduler{states: make(map[string]*state)}
}

func (s *Scheduler) state(def *shop.Definition, now time.Time) *state {
	s.mu.RLock()
	st, ok := s.states[def.ID]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.states[def.ID]; ok {
		return st
	}
	st = &state{next: nextReset(def, now)}
	s.states[def.ID] = st
	return st
}

// CheckAndAdvance reports whether a reset is due for the shop. On the first
// call for a shop it only schedules the initial next-reset and returns
// false. When due, it advances next-reset strictly past now and returns
// true exactly once for that occurrence.
func (s *Scheduler) CheckAndAdvance(def *shop.Definition, now time.Time) bool {
	s.mu.RLock()
	st, known := s.states[def.ID]
	s.mu.RUnlock()
	if !known {
		s.state(def, now)
		return false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if now.UnixMilli() < st.next {
		return false
	}
	st.next = nextReset(def, now)
	return true
}

// Remaining returns the time until the shop's next reset, or a negative
// duration when the policy never resets.
func (s *Scheduler) Remaining(def *shop.Definition, now time.Time) time.Duration {
	if def.ResetPolicy == shop.ResetNone {
		return -1
	}
	st := s.state(def, now)
	st.mu.Lock()
	next := st.next
	st.mu.Unlock()
	d := time.Duration(next-now.UnixMilli()) * time.Millisecond
	if d < 0 {
		d = 0
	}
	return d
}

// nextReset computes the next reset moment strictly after now, in the
// shop's configured timezone.
func nextReset(def *shop.Definition, now time.Time) int64 {
	switch def.ResetPolicy {
	case shop.ResetInterval:
		return now.UnixMilli() + def.ResetIntervalSeconds*1000
	case shop.ResetDaily:
		return nextDaily(def, now)
	case shop.ResetWeekly:
		return nextWeekly(def, now)
	case shop.ResetMonthly:
		return nextMonthly(def, now)
	default:
		return math.MaxInt64
	}
}

func nextDaily(def *shop.Definition, now time.Time) int64 {
	local := now.In(def.Location())
	base := time.Date(local.Year(), local.Month(), local.Day(),
		def.ResetHour, def.ResetMinute, 0, 0, def.Location())
	if !base.After(now) {
		base = base.AddDate(0, 0, 1)
	}
	return base.UnixMilli()
}

func nextWeekly(def *shop.Definition, now time.Time) int64 {
	local := now.In(def.Location())
	daysAhead := (int(def.ResetWeekday()) - int(local.Weekday()) + 7) % 7
	base := time.Date(local.Year(), local.Month(), local.Day()+daysAhead,
		def.ResetHour, def.ResetMinute, 0, 0, def.Location())
	if !base.After(now) {
		base = base.AddDate(0, 0, 7)
	}
	return base.UnixMilli()
}

func nextMonthly(def *shop.Definition, now time.Time) int64 {
	local := now.In(def.Location())
	day := clampDay(def.ResetDayOfMonth, local.Year(), local.Month())
	base := time.Date(local.Year(), local.Month(), day,
		def.ResetHour, def.ResetMinute, 0, 0, def.Location())
	if !base.After(now) {
		year, month := local.Year(), local.Month()+1
		if month > time.December {
			year, month = year+1, time.January
		}
		day = clampDay(def.ResetDayOfMonth, year, month)
		base = time.Date(year, month, day,
			def.ResetHour, def.ResetMinute, 0, 0, def.Location())
	}
	return base.UnixMilli()
}

// clampDay bounds a configured day-of-month to the month's actual length.
func clampDay(day, year int, month time.Month) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	if day < 1 {
		return 1
	}
	return day
}
