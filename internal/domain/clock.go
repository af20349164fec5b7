package domain

import "github.com/jonboulle/clockwork"

// clock stamps reports; tests and fixture generation freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock replaces the report time source. Pass nil to restore the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
