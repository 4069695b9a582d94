package engine

import (
	"math"
	"sort"
	"time"
)

// LotEntry is one registration as seen by lot assignment.
type LotEntry struct {
	RegistrationID string
	SquatOpener    *float64
	RegisteredAt   time.Time
}

type LotAssignment struct {
	RegistrationID string
	LotNumber      int
}

// OpenerKey is the lot ranking key. An undeclared opener ranks after every
// declared one.
func OpenerKey(opener *float64) float64 {
	if opener == nil {
		return math.Inf(1)
	}
	return *opener
}

// AssignLot returns the 1-based lot a new registrant would get when inserted
// into existing. Equal keys keep registration order, so the newcomer lands
// after every existing entry with the same key. No existing entry is changed.
func AssignLot(existing []LotEntry, opener *float64) int {
	key := OpenerKey(opener)
	lot := 1
	for _, e := range existing {
		if OpenerKey(e.SquatOpener) <= key {
			lot++
		}
	}
	return lot
}

// RecalculateLots ranks every entry by squat opener and returns dense lots
// 1..N. Ties are broken by registration time, then by input order.
func RecalculateLots(entries []LotEntry) []LotAssignment {
	sorted := make([]LotEntry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := OpenerKey(sorted[i].SquatOpener), OpenerKey(sorted[j].SquatOpener)
		if ki != kj {
			return ki < kj
		}
		return sorted[i].RegisteredAt.Before(sorted[j].RegisteredAt)
	})

	out := make([]LotAssignment, len(sorted))
	for i, e := range sorted {
		out[i] = LotAssignment{RegistrationID: e.RegistrationID, LotNumber: i + 1}
	}
	return out
}
