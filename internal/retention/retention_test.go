package retention

import (
	"testing"
	"time"
)

func TestWindowPredicatesArePartition(t *testing.T) {
	deletedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour

	offsets := []time.Duration{
		0,
		time.Second,
		29 * 24 * time.Hour,
		30 * 24 * time.Hour,
		30*24*time.Hour + time.Second,
		31 * 24 * time.Hour,
		365 * 24 * time.Hour,
	}

	for _, offset := range offsets {
		now := deletedAt.Add(offset)
		recoverable := Recoverable(deletedAt, now, window)
		purgeable := Purgeable(deletedAt, now, window)
		if recoverable == purgeable {
			t.Fatalf("offset %v: predicates must be mutually exclusive and exhaustive (recoverable=%v purgeable=%v)", offset, recoverable, purgeable)
		}
	}
}

func TestRecoverableBoundary(t *testing.T) {
	deletedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour

	if !Recoverable(deletedAt, deletedAt.Add(29*24*time.Hour), window) {
		t.Fatal("29 days after deletion must be recoverable")
	}
	if !Recoverable(deletedAt, deletedAt.Add(window), window) {
		t.Fatal("exactly 30 days after deletion is still inside the window")
	}
	if Recoverable(deletedAt, deletedAt.Add(31*24*time.Hour), window) {
		t.Fatal("31 days after deletion must not be recoverable")
	}
}

func TestPurgeableBoundary(t *testing.T) {
	deletedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour

	if Purgeable(deletedAt, deletedAt.Add(window), window) {
		t.Fatal("exactly 30 days after deletion must not be purgeable")
	}
	if !Purgeable(deletedAt, deletedAt.Add(31*24*time.Hour), window) {
		t.Fatal("31 days after deletion must be purgeable")
	}
}

func TestZeroWindowFallsBackToDefault(t *testing.T) {
	deletedAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if !Recoverable(deletedAt, deletedAt.Add(29*24*time.Hour), 0) {
		t.Fatal("default window is 30 days")
	}
	if !Purgeable(deletedAt, deletedAt.Add(31*24*time.Hour), 0) {
		t.Fatal("default window is 30 days")
	}
}
