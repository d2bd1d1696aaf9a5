package utils

import (
	"context"
	"time"
)

// DeltaTimer measures the time between consecutive calls of Next.
type DeltaTimer struct {
	time.Time
}

func (d *DeltaTimer) Next() time.Duration {
	// acquire timestamp exactly once to ensure we're not accumulating error
	now := time.Now()

	defer d.Set(now)
	if d.IsZero() {
		return 0
	}
	return now.Sub(d.Time)
}

func (d *DeltaTimer) Set(t time.Time) {
	d.Time = t
}

// FramePacer schedules work at a fixed framerate. Late frames are not
// caught up on: the schedule restarts from the late frame.
type FramePacer struct {
	interval time.Duration
	next     time.Time
}

func NewFramePacer(fps int) *FramePacer {
	if fps <= 0 {
		fps = 1
	}
	return &FramePacer{interval: time.Second / time.Duration(fps)}
}

func (p *FramePacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the next frame is due or ctx is done.
func (p *FramePacer) Wait(ctx context.Context) error {
	now := time.Now()
	if p.next.IsZero() || p.next.Before(now) {
		p.next = now
	}
	timer := time.NewTimer(p.next.Sub(now))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	p.next = p.next.Add(p.interval)
	return nil
}
