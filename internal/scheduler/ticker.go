// Package scheduler owns the sampling cadence. A gocron job reads the
// clock on every interval and hands the instant to the run loop.
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sweeney/newyear-wave/internal/clock"
	"go.uber.org/zap"
)

// Ticker delivers sampled instants on C.
type Ticker struct {
	C <-chan time.Time

	c     chan time.Time
	sched *gocron.Scheduler
	log   *zap.Logger
}

// NewTicker starts a job that samples clk every interval. A tick is
// dropped, not queued, when the receiver has not consumed the previous one.
func NewTicker(clk clock.Clock, interval time.Duration, log *zap.Logger) (*Ticker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler: interval must be positive, got %v", interval)
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := make(chan time.Time, 1)
	t := &Ticker{
		C:     c,
		c:     c,
		sched: gocron.NewScheduler(time.UTC),
		log:   log,
	}

	_, err := t.sched.Every(interval).SingletonMode().Do(func() {
		select {
		case t.c <- clk.Now():
		default:
			t.log.Debug("tick dropped, loop busy")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: add sampling job: %w", err)
	}
	t.sched.StartAsync()
	return t, nil
}

// Stop halts sampling. No further instants are sent after Stop returns.
func (t *Ticker) Stop() {
	t.sched.Stop()
}
