// Package engine holds the meet logic that needs no I/O: lot ordering,
// attempt checks and the turn-rotation state machine.
package engine

import (
	"errors"
	"fmt"

	"go-meet-control/models"
)

var (
	ErrUnsupportedCommand = errors.New("unsupported command")
	ErrMeetComplete       = fmt.Errorf("%w: all disciplines are complete", models.ErrValidation)
	ErrNoAthleteSelected  = fmt.Errorf("%w: no athlete selected", models.ErrValidation)
	ErrNoPendingAttempt   = fmt.Errorf("%w: no attempt is waiting for a weight", models.ErrValidation)
	ErrAttemptsExhausted  = fmt.Errorf("%w: athlete has no attempts left in this discipline", models.ErrValidation)
	ErrUnknownAthlete     = fmt.Errorf("%w: athlete is not registered in this competition", models.ErrNotFound)
)

// Phase is where the control panel is in the attempt cycle.
type Phase string

const (
	PhaseAwaitingSelection  Phase = "awaitingSelection"
	PhaseAttemptInProgress  Phase = "attemptInProgress"
	PhaseAwaitingNextWeight Phase = "awaitingNextWeight"
	PhaseMeetComplete       Phase = "meetComplete"
)

// Lifter is a registered athlete as the rotation sees it.
type Lifter struct {
	AthleteID string
	LotNumber int
	Openers   map[models.Discipline]float64
}

// PendingAttempt is an attempt 2 or 3 staged until the operator enters its weight.
type PendingAttempt struct {
	AthleteID     string            `json:"athleteId"`
	Discipline    models.Discipline `json:"discipline"`
	AttemptNumber int               `json:"attemptNumber"`
	Outcome       models.Outcome    `json:"outcome"`
}

// State is everything the transition function needs: lot order, live
// rotation, the staged attempt and a snapshot of the ledger.
type State struct {
	Phase      Phase             `json:"phase"`
	Discipline models.Discipline `json:"discipline"`
	Round      int               `json:"round"`
	Rotation   []string          `json:"rotation"`
	Active     string            `json:"activeAthleteId,omitempty"`
	Pending    *PendingAttempt   `json:"pending,omitempty"`
	Lifters    []Lifter          `json:"-"`
	Ledger     []models.Attempt  `json:"-"`
}

type CommandType string

const (
	CmdSelectAthlete CommandType = "SelectAthlete"
	CmdRecordResult  CommandType = "RecordResult"
	CmdSubmitWeight  CommandType = "SubmitWeight"
	CmdCancelPending CommandType = "CancelPending"
	CmdSetDiscipline CommandType = "SetDiscipline"
)

type Command struct {
	Type       CommandType
	AthleteID  string
	Outcome    models.Outcome
	Weight     float64
	Discipline models.Discipline
}

type EventType string

const (
	EvtAthleteSelected    EventType = "AthleteSelected"
	EvtWeightRequested    EventType = "WeightRequested"
	EvtPendingDiscarded   EventType = "PendingDiscarded"
	EvtAttemptCommitted   EventType = "AttemptCommitted"
	EvtRoundCompleted     EventType = "RoundCompleted"
	EvtDisciplineAdvanced EventType = "DisciplineAdvanced"
	EvtDisciplineChanged  EventType = "DisciplineChanged"
	EvtMeetCompleted      EventType = "MeetCompleted"
	EvtTimerReset         EventType = "TimerReset"
)

type Event struct {
	Type       EventType         `json:"type"`
	AthleteID  string            `json:"athleteId,omitempty"`
	Discipline models.Discipline `json:"discipline,omitempty"`
	Round      int               `json:"round,omitempty"`
	Attempt    *models.Attempt   `json:"attempt,omitempty"`
}

// NewState starts a meet at squat, round 1, rotation in lot order and nobody
// selected yet.
func NewState(lifters []Lifter) State {
	ordered := lotOrder(lifters)
	s := State{
		Phase:      PhaseAwaitingSelection,
		Discipline: models.Squat,
		Round:      1,
		Lifters:    ordered,
		Rotation:   lifterIDs(ordered),
	}
	return s
}

// Apply is the transition function of the control panel. It never mutates
// s; on error the returned state is s unchanged.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if s.Phase == PhaseMeetComplete && cmd.Type != CmdSetDiscipline {
		return nil, s, ErrMeetComplete
	}
	next := s.clone()

	switch cmd.Type {
	case CmdSelectAthlete:
		if !s.hasLifter(cmd.AthleteID) {
			return nil, s, ErrUnknownAthlete
		}
		var events []Event
		if next.Pending != nil {
			events = append(events, Event{Type: EvtPendingDiscarded, AthleteID: next.Pending.AthleteID})
			next.Pending = nil
		}
		next.Active = cmd.AthleteID
		next.Phase = PhaseAttemptInProgress
		events = append(events, Event{Type: EvtAthleteSelected, AthleteID: cmd.AthleteID, Discipline: next.Discipline})
		return events, next, nil

	case CmdRecordResult:
		if cmd.Outcome != models.OutcomeValid && cmd.Outcome != models.OutcomeInvalid {
			return nil, s, ErrInvalidOutcome
		}
		if s.Active == "" {
			return nil, s, ErrNoAthleteSelected
		}
		n := CountAttempts(s.Ledger, s.Active, s.Discipline) + 1
		if n > models.MaxAttempts {
			return nil, s, ErrAttemptsExhausted
		}
		if n == 1 {
			opener := models.Attempt{
				AthleteID:     s.Active,
				Discipline:    s.Discipline,
				AttemptNumber: 1,
				Weight:        s.openerOf(s.Active),
				Outcome:       cmd.Outcome,
			}
			if err := CheckAttempt(AttemptsOf(s.Ledger, s.Active, s.Discipline), opener); err != nil {
				return nil, s, err
			}
			events, committed := commit(next, opener)
			return events, committed, nil
		}
		next.Pending = &PendingAttempt{
			AthleteID:     s.Active,
			Discipline:    s.Discipline,
			AttemptNumber: n,
			Outcome:       cmd.Outcome,
		}
		next.Phase = PhaseAwaitingNextWeight
		return []Event{{Type: EvtWeightRequested, AthleteID: s.Active, Discipline: s.Discipline, Round: n}}, next, nil

	case CmdSubmitWeight:
		if s.Pending == nil {
			return nil, s, ErrNoPendingAttempt
		}
		outcome := cmd.Outcome
		if outcome == "" {
			outcome = s.Pending.Outcome
		}
		a := models.Attempt{
			AthleteID:     s.Pending.AthleteID,
			Discipline:    s.Pending.Discipline,
			AttemptNumber: s.Pending.AttemptNumber,
			Weight:        cmd.Weight,
			Outcome:       outcome,
		}
		if err := CheckAttempt(AttemptsOf(s.Ledger, a.AthleteID, a.Discipline), a); err != nil {
			return nil, s, err
		}
		events, committed := commit(next, a)
		return events, committed, nil

	case CmdCancelPending:
		if s.Pending == nil {
			return nil, s, nil
		}
		discarded := next.Pending.AthleteID
		next.Pending = nil
		next.Phase = PhaseAwaitingSelection
		if next.Active != "" {
			next.Phase = PhaseAttemptInProgress
		}
		return []Event{{Type: EvtPendingDiscarded, AthleteID: discarded}}, next, nil

	case CmdSetDiscipline:
		if !cmd.Discipline.Valid() {
			return nil, s, ErrInvalidDiscipline
		}
		events := []Event{{Type: EvtDisciplineChanged, Discipline: cmd.Discipline}, {Type: EvtTimerReset}}
		events = append(events, next.enterDiscipline(cmd.Discipline)...)
		return events, next, nil
	}

	return nil, s, fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd.Type)
}

// commit appends a to the ledger and runs the post-lift bookkeeping: the
// lifter goes to the back of the rotation, round completion is checked, the
// discipline advances after a complete third round, and the next lifter is
// selected.
func commit(s State, a models.Attempt) ([]Event, State) {
	s.Ledger = append(s.Ledger, a)
	committed := a
	events := []Event{
		{Type: EvtAttemptCommitted, AthleteID: a.AthleteID, Discipline: a.Discipline, Round: a.AttemptNumber, Attempt: &committed},
		{Type: EvtTimerReset},
	}
	s.Pending = nil
	s.Rotation = moveToBack(s.Rotation, a.AthleteID)

	if s.roundComplete(a.AttemptNumber) {
		events = append(events, Event{Type: EvtRoundCompleted, Discipline: s.Discipline, Round: a.AttemptNumber})
		if a.AttemptNumber < models.MaxAttempts {
			s.Round = a.AttemptNumber + 1
		} else {
			next, ok := s.Discipline.Next()
			if !ok {
				s.Phase = PhaseMeetComplete
				s.Active = ""
				return append(events, Event{Type: EvtMeetCompleted}), s
			}
			events = append(events, Event{Type: EvtDisciplineAdvanced, Discipline: next})
			return append(events, s.enterDiscipline(next)...), s
		}
	}
	return append(events, s.selectNext()...), s
}

// enterDiscipline resets rotation to lot order and selects the first lifter
// with attempts left.
func (s *State) enterDiscipline(d models.Discipline) []Event {
	s.Discipline = d
	s.Rotation = lifterIDs(s.Lifters)
	s.Pending = nil
	s.Round = s.lowestOpenRound()
	return s.selectNext()
}

// selectNext makes the first rotation entry with attempts left the active
// lifter. If that lifter is past the opener, their next attempt is staged so
// the operator is asked for its weight straight away.
func (s *State) selectNext() []Event {
	s.Active = ""
	for _, id := range s.Rotation {
		if CountAttempts(s.Ledger, id, s.Discipline) < models.MaxAttempts {
			s.Active = id
			break
		}
	}
	if s.Active == "" {
		s.Phase = PhaseAwaitingSelection
		return nil
	}

	events := []Event{{Type: EvtAthleteSelected, AthleteID: s.Active, Discipline: s.Discipline}}
	n := CountAttempts(s.Ledger, s.Active, s.Discipline) + 1
	if n == 1 {
		s.Phase = PhaseAttemptInProgress
		return events
	}
	s.Pending = &PendingAttempt{
		AthleteID:     s.Active,
		Discipline:    s.Discipline,
		AttemptNumber: n,
		Outcome:       models.OutcomePending,
	}
	s.Phase = PhaseAwaitingNextWeight
	return append(events, Event{Type: EvtWeightRequested, AthleteID: s.Active, Discipline: s.Discipline, Round: n})
}

// roundComplete reports whether every lifter has at least n attempts in the
// current discipline.
func (s *State) roundComplete(n int) bool {
	if len(s.Lifters) == 0 {
		return false
	}
	for _, l := range s.Lifters {
		if CountAttempts(s.Ledger, l.AthleteID, s.Discipline) < n {
			return false
		}
	}
	return true
}

// lowestOpenRound is the attempt number the slowest lifter is on.
func (s *State) lowestOpenRound() int {
	round := models.MaxAttempts
	for _, l := range s.Lifters {
		if c := CountAttempts(s.Ledger, l.AthleteID, s.Discipline) + 1; c < round {
			round = c
		}
	}
	if len(s.Lifters) == 0 {
		return 1
	}
	return round
}

// NextAttemptNumber returns the attempt the active lifter is on, or 0.
func (s State) NextAttemptNumber() int {
	if s.Active == "" {
		return 0
	}
	return CountAttempts(s.Ledger, s.Active, s.Discipline) + 1
}

// AttemptsLeft is how many attempts athleteID still has in the current
// discipline.
func (s State) AttemptsLeft(athleteID string) int {
	return models.MaxAttempts - CountAttempts(s.Ledger, athleteID, s.Discipline)
}

// DisciplineComplete reports whether every lifter has taken all attempts in d.
func (s State) DisciplineComplete(d models.Discipline) bool {
	if len(s.Lifters) == 0 {
		return false
	}
	for _, l := range s.Lifters {
		if CountAttempts(s.Ledger, l.AthleteID, d) < models.MaxAttempts {
			return false
		}
	}
	return true
}

func (s State) hasLifter(athleteID string) bool {
	for _, l := range s.Lifters {
		if l.AthleteID == athleteID {
			return true
		}
	}
	return false
}

func (s State) openerOf(athleteID string) float64 {
	for _, l := range s.Lifters {
		if l.AthleteID == athleteID {
			return l.Openers[s.Discipline]
		}
	}
	return 0
}

func (s State) clone() State {
	c := s
	c.Rotation = append([]string(nil), s.Rotation...)
	c.Ledger = append([]models.Attempt(nil), s.Ledger...)
	if s.Pending != nil {
		p := *s.Pending
		c.Pending = &p
	}
	return c
}
