// Package retention holds the soft-delete window policy. The two
// predicates partition the soft-deleted set: inside the window an entity
// can only be recovered, outside it can only be purged.
package retention

import "time"

// DefaultWindow is the recovery window applied when no policy override
// is configured.
const DefaultWindow = 30 * 24 * time.Hour

// Recoverable reports whether a soft-deleted entity may still be restored.
func Recoverable(deletedAt, now time.Time, window time.Duration) bool {
	if window <= 0 {
		window = DefaultWindow
	}
	return now.Sub(deletedAt) <= window
}

// Purgeable reports whether the recovery window has closed and the entity
// may be permanently removed. Mirror image of Recoverable.
func Purgeable(deletedAt, now time.Time, window time.Duration) bool {
	if window <= 0 {
		window = DefaultWindow
	}
	return now.Sub(deletedAt) > window
}
