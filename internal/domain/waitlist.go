package domain

import (
	"sort"

	"github.com/google/uuid"
)

// NextWaitlistPosition appends to the tail.
func NextWaitlistPosition(waitlistCount int) int {
	return waitlistCount + 1
}

// PositionChange is one entry whose position must be rewritten.
type PositionChange struct {
	ID       uuid.UUID
	Position int
}

// Compact renumbers the remaining entries to 1..n in their current order
// and returns only the entries whose position moved. Callers pass the
// waitlist after removals; relative order is never changed.
func Compact(entries []WaitlistEntry) []PositionChange {
	sorted := make([]WaitlistEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
	})

	var changes []PositionChange
	for i, e := range sorted {
		want := i + 1
		if e.Position != want {
			changes = append(changes, PositionChange{ID: e.ID, Position: want})
		}
	}
	return changes
}

// PromotionPlan splits the waitlist head off for the seats that opened up.
// Each promoted entrant takes a single seat.
func PromotionPlan(entries []WaitlistEntry, freeSeats int) (promote, remain []WaitlistEntry) {
	sorted := make([]WaitlistEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	n := min(max(freeSeats, 0), len(sorted))
	return sorted[:n], sorted[n:]
}
