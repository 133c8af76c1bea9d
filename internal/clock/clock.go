// Package clock abstracts wall-clock access so lifecycle windows can be
// tested deterministically.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns a Clock backed by the real wall clock, always in UTC.
func System() Clock { return systemClock{} }
