// Package clock supplies the instants fed to the wave model. Besides the
// system clock it provides a frozen clock and an accelerated replay clock
// so the wave can be watched outside December 31.
package clock

import "time"

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock in UTC.
type Real struct{}

// Now returns time.Now in UTC.
func (Real) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant.
type Fixed struct {
	At time.Time
}

// Now returns f.At in UTC.
func (f Fixed) Now() time.Time {
	return f.At.UTC()
}

// Simulated replays time from Origin at Speed times the rate of Base,
// starting when the Simulated clock was created.
type Simulated struct {
	Origin time.Time
	Speed  float64
	Base   Clock
	start  time.Time
}

// NewSimulated returns a clock that reads origin now and then advances
// speed seconds per second of base.
func NewSimulated(base Clock, origin time.Time, speed float64) *Simulated {
	return &Simulated{
		Origin: origin.UTC(),
		Speed:  speed,
		Base:   base,
		start:  base.Now(),
	}
}

// Now returns the simulated instant, truncated to the millisecond.
func (s *Simulated) Now() time.Time {
	elapsed := s.Base.Now().Sub(s.start)
	scaled := time.Duration(float64(elapsed) * s.Speed)
	return s.Origin.Add(scaled).Truncate(time.Millisecond)
}

var (
	_ Clock = Real{}
	_ Clock = Fixed{}
	_ Clock = (*Simulated)(nil)
)
