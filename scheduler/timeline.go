package scheduler

import (
	"context"
	"time"
)

// Align returns the first wall-clock boundary at or after t, where boundaries
// are multiples of step counted from local midnight. A t already on a
// boundary (no seconds, no sub-second part) is returned unchanged.
func Align(t time.Time, step time.Duration) time.Time {
	stepMin := max(1, int(step/time.Minute))
	minuteOfDay := t.Hour()*60 + t.Minute()
	if t.Second() == 0 && t.Nanosecond() == 0 && minuteOfDay%stepMin == 0 {
		return t
	}
	next := (minuteOfDay/stepMin + 1) * stepMin
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, next, 0, 0, t.Location())
}

// Sequence is an infinite fixed-step series of timestamps. It is a value:
// Next returns the current timestamp together with the advanced sequence, so
// a sequence can only be restarted by building a new one from a timestamp.
type Sequence struct {
	next time.Time
	step time.Duration
}

func NewSequence(start time.Time, step time.Duration) Sequence {
	return Sequence{next: start, step: step}
}

func (s Sequence) Next() (time.Time, Sequence) {
	return s.next, Sequence{next: s.next.Add(s.step), step: s.step}
}

// Clock abstracts wall time and suspension.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock uses the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
