// Package stream drives a single long-lived push session: one frame per
// tick, written and flushed through a Sink, until the session context is
// cancelled.
package stream

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultInterval is the nominal spacing between frames.
const DefaultInterval = time.Second

// ErrTransport marks a write or flush that failed while the session was
// still live. Failures observed after cancellation are not reported.
var ErrTransport = errors.New("stream transport failure")

// Sink is the output side of a session. Every successful Write is followed
// by exactly one Flush.
type Sink interface {
	Write(p []byte) (int, error)
	Flush() error
}

// Loop emits timestamp frames at a fixed interval. A Loop holds no
// per-session state and may serve any number of sessions, each from its own
// goroutine.
type Loop struct {
	interval time.Duration
	now      func() time.Time
}

// New returns a Loop ticking every interval. A non-positive interval falls
// back to DefaultInterval.
func New(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{interval: interval, now: time.Now}
}

// SetNow replaces the clock. Used in tests only.
func (l *Loop) SetNow(fn func() time.Time) {
	l.now = fn
}

// Interval reports the tick spacing.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Run streams frames to sink until ctx is cancelled and returns the number
// of frames written and flushed. Cancellation, including a write or flush
// that fails because ctx was cancelled mid-call, returns a nil error. Any
// other sink failure ends the session with an error wrapping ErrTransport.
// The sink is not touched after Run returns.
func (l *Loop) Run(ctx context.Context, sink Sink) (int, error) {
	if ctx.Err() != nil {
		return 0, nil
	}

	// The wait is measured from the end of each flush, not on a fixed grid,
	// so a slow write never lets two frames go out back to back.
	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	frames := 0
	for {
		if ctx.Err() != nil {
			return frames, nil
		}

		ev := Event{Timestamp: l.now()}
		if _, err := sink.Write(ev.Frame()); err != nil {
			return frames, classify(ctx, "write", err)
		}
		if err := sink.Flush(); err != nil {
			return frames, classify(ctx, "flush", err)
		}
		frames++

		timer.Reset(l.interval)
		select {
		case <-ctx.Done():
			return frames, nil
		case <-timer.C:
		}
	}
}

// classify decides whether a sink failure is the session ending or a broken
// transport, based solely on the state of ctx at the point of failure.
func classify(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}
