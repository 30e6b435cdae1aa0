package menu

import "time"

// Timer is a pending idle timeout.
type Timer interface {
	Stop() bool
}

// Clock schedules idle timeouts. Tests swap in a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
