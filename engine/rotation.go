package engine

import (
	"fmt"
	"sort"

	"go-meet-control/models"
)

// moveToBack returns rotation with id moved to the tail. Unknown ids leave
// the order unchanged.
func moveToBack(rotation []string, id string) []string {
	out := make([]string, 0, len(rotation))
	found := false
	for _, r := range rotation {
		if r == id {
			found = true
			continue
		}
		out = append(out, r)
	}
	if found {
		out = append(out, id)
	}
	return out
}

// lotOrder sorts lifters by lot number; lifters without a lot go last in
// their given order.
func lotOrder(lifters []Lifter) []Lifter {
	out := append([]Lifter(nil), lifters...)
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := out[i].LotNumber, out[j].LotNumber
		if li == 0 || lj == 0 {
			return li != 0 && lj == 0
		}
		return li < lj
	})
	return out
}

func lifterIDs(lifters []Lifter) []string {
	ids := make([]string, len(lifters))
	for i, l := range lifters {
		ids[i] = l.AthleteID
	}
	return ids
}

// Replay rebuilds the control state from lot order and the ledger in
// creation order, so a reload lands on the same rotation, round, discipline
// and active lifter. Attempts of athletes no longer registered are skipped.
func Replay(lifters []Lifter, ledger []models.Attempt) (State, error) {
	s := NewState(lifters)
	for _, a := range ledger {
		if !s.hasLifter(a.AthleteID) {
			continue
		}
		if s.Phase == PhaseMeetComplete {
			return s, fmt.Errorf("%w: attempt %s recorded after the meet completed", models.ErrConflict, a.ID)
		}
		if a.Discipline != s.Discipline {
			s.enterDiscipline(a.Discipline)
		}
		if err := CheckAttempt(AttemptsOf(s.Ledger, a.AthleteID, a.Discipline), a); err != nil {
			return s, fmt.Errorf("replaying attempt %s: %w", a.ID, err)
		}
		_, s = commit(s, a)
	}
	return s, nil
}

// Record folds an attempt written outside the control panel into s. The
// lift counts as committed: the rotation, round and discipline move on as
// they do for a judged lift, and the clock is reset.
func Record(s State, a models.Attempt) ([]Event, State, error) {
	if s.Phase == PhaseMeetComplete {
		return nil, s, ErrMeetComplete
	}
	if !s.hasLifter(a.AthleteID) {
		return nil, s, ErrUnknownAthlete
	}
	if !a.Discipline.Valid() {
		return nil, s, ErrInvalidDiscipline
	}
	next := s.clone()
	var events []Event
	if a.Discipline != next.Discipline {
		events = append(events, Event{Type: EvtDisciplineChanged, Discipline: a.Discipline})
		next.enterDiscipline(a.Discipline)
	}
	if err := CheckAttempt(AttemptsOf(next.Ledger, a.AthleteID, a.Discipline), a); err != nil {
		return nil, s, err
	}
	committed, next := commit(next, a)
	return append(events, committed...), next, nil
}
