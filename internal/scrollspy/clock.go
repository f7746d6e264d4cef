package scrollspy

import "time"

// Timer is the subset of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. It exists so timeouts and animation frames
// can be driven deterministically in tests.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the wall clock.
type SystemClock struct{}

// AfterFunc wraps time.AfterFunc.
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
