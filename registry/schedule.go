package registry

import "time"

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already
	// fired or was stopped before.
	Stop() bool
}

// Scheduler arranges for fn to run once after d.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Timer
}

// TimeScheduler runs callbacks on time.AfterFunc goroutines.
type TimeScheduler struct{}

func (TimeScheduler) Schedule(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
