//go:build unit
// +build unit

package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-meet-control/models"
)

// threeLifters registers squat openers {100, 80, 120}, which gives lots 2, 1, 3.
func threeLifters() []Lifter {
	return []Lifter{
		{AthleteID: "a100", LotNumber: 2, Openers: map[models.Discipline]float64{models.Squat: 100, models.Bench: 70, models.Deadlift: 140}},
		{AthleteID: "b80", LotNumber: 1, Openers: map[models.Discipline]float64{models.Squat: 80, models.Bench: 50, models.Deadlift: 110}},
		{AthleteID: "c120", LotNumber: 3, Openers: map[models.Discipline]float64{models.Squat: 120, models.Bench: 85, models.Deadlift: 170}},
	}
}

func mustApply(t *testing.T, s State, cmd Command) ([]Event, State) {
	t.Helper()
	events, next, err := Apply(s, cmd)
	require.NoError(t, err, "command %s", cmd.Type)
	return events, next
}

// step commits one attempt for whoever the machine expects next: openers are
// recorded directly, later attempts go up by 5kg.
func step(t *testing.T, s State) ([]Event, State) {
	t.Helper()
	switch s.Phase {
	case PhaseAttemptInProgress:
		return mustApply(t, s, Command{Type: CmdRecordResult, Outcome: models.OutcomeValid})
	case PhaseAwaitingNextWeight:
		prev := AttemptsOf(s.Ledger, s.Pending.AthleteID, s.Pending.Discipline)
		return mustApply(t, s, Command{Type: CmdSubmitWeight, Weight: prev[len(prev)-1].Weight + 5, Outcome: models.OutcomeValid})
	}
	require.FailNow(t, "no attempt to commit", "phase %s", s.Phase)
	return nil, s
}

func countEvents(events []Event, typ EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func started(t *testing.T, lifters []Lifter) State {
	t.Helper()
	s := NewState(lifters)
	_, s = mustApply(t, s, Command{Type: CmdSelectAthlete, AthleteID: s.Rotation[0]})
	return s
}

func TestNewState_LotOrder(t *testing.T) {
	s := NewState(threeLifters())

	assert.Equal(t, PhaseAwaitingSelection, s.Phase)
	assert.Equal(t, models.Squat, s.Discipline)
	assert.Equal(t, 1, s.Round)
	assert.Equal(t, []string{"b80", "a100", "c120"}, s.Rotation)
	assert.Empty(t, s.Active)
}

func TestApply_OpenerRotatesLifterToBack(t *testing.T) {
	s := started(t, threeLifters())
	require.Equal(t, "b80", s.Active)

	events, next := mustApply(t, s, Command{Type: CmdRecordResult, Outcome: models.OutcomeValid})

	require.Equal(t, 1, countEvents(events, EvtAttemptCommitted))
	committed := events[0].Attempt
	assert.Equal(t, "b80", committed.AthleteID)
	assert.Equal(t, 1, committed.AttemptNumber)
	assert.Equal(t, 80.0, committed.Weight, "opener weight comes from the declaration")
	assert.Equal(t, 1, countEvents(events, EvtTimerReset))

	assert.Equal(t, []string{"a100", "c120", "b80"}, next.Rotation)
	assert.Equal(t, "a100", next.Active)
	assert.Equal(t, PhaseAttemptInProgress, next.Phase)
	assert.Len(t, next.Ledger, 1)
	assert.Empty(t, s.Ledger, "input state must not change")
}

func TestApply_RecordResultRequiresSelection(t *testing.T) {
	s := NewState(threeLifters())

	events, next, err := Apply(s, Command{Type: CmdRecordResult, Outcome: models.OutcomeValid})

	assert.True(t, errors.Is(err, ErrNoAthleteSelected))
	assert.True(t, errors.Is(err, models.ErrValidation))
	assert.Nil(t, events)
	assert.Equal(t, s.Phase, next.Phase)
	assert.Empty(t, next.Ledger)
}

func TestApply_Errors(t *testing.T) {
	s := started(t, threeLifters())

	tests := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{"unknown athlete", Command{Type: CmdSelectAthlete, AthleteID: "ghost"}, ErrUnknownAthlete},
		{"pending outcome as result", Command{Type: CmdRecordResult, Outcome: models.OutcomePending}, ErrInvalidOutcome},
		{"weight without staged attempt", Command{Type: CmdSubmitWeight, Weight: 100}, ErrNoPendingAttempt},
		{"unknown discipline", Command{Type: CmdSetDiscipline, Discipline: "snatch"}, ErrInvalidDiscipline},
		{"unknown command", Command{Type: "Dance"}, ErrUnsupportedCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, next, err := Apply(s, tt.cmd)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, s.Active, next.Active)
		})
	}
}

func TestApply_OpenersCompleteStagesSecondAttempt(t *testing.T) {
	s := started(t, threeLifters())

	var events []Event
	for i := 0; i < 3; i++ {
		events, s = step(t, s)
	}

	assert.Equal(t, 1, countEvents(events, EvtRoundCompleted))
	assert.Equal(t, 2, s.Round)
	assert.Equal(t, []string{"b80", "a100", "c120"}, s.Rotation)
	assert.Equal(t, "b80", s.Active)
	assert.Equal(t, PhaseAwaitingNextWeight, s.Phase)
	require.NotNil(t, s.Pending)
	assert.Equal(t, PendingAttempt{AthleteID: "b80", Discipline: models.Squat, AttemptNumber: 2, Outcome: models.OutcomePending}, *s.Pending)
}

func TestApply_RecordResultOnStagedAttemptKeepsWaitingForWeight(t *testing.T) {
	s := started(t, threeLifters())
	for i := 0; i < 3; i++ {
		_, s = step(t, s)
	}

	events, s := mustApply(t, s, Command{Type: CmdRecordResult, Outcome: models.OutcomeInvalid})

	assert.Equal(t, 1, countEvents(events, EvtWeightRequested))
	assert.Equal(t, PhaseAwaitingNextWeight, s.Phase)
	assert.Equal(t, models.OutcomeInvalid, s.Pending.Outcome)

	events, s = mustApply(t, s, Command{Type: CmdSubmitWeight, Weight: 87.5})
	require.Equal(t, 1, countEvents(events, EvtAttemptCommitted))
	assert.Equal(t, models.OutcomeInvalid, events[0].Attempt.Outcome)
	assert.Equal(t, 87.5, events[0].Attempt.Weight)
}

func TestApply_WeightBelowPreviousIsRejected(t *testing.T) {
	lifters := []Lifter{{AthleteID: "ana", LotNumber: 1, Openers: map[models.Discipline]float64{models.Deadlift: 140}}}
	s := NewState(lifters)
	_, s = mustApply(t, s, Command{Type: CmdSetDiscipline, Discipline: models.Deadlift})
	_, s = mustApply(t, s, Command{Type: CmdRecordResult, Outcome: models.OutcomeValid})
	_, s = mustApply(t, s, Command{Type: CmdSubmitWeight, Weight: 150, Outcome: models.OutcomeValid})
	require.Equal(t, PhaseAwaitingNextWeight, s.Phase)
	require.Equal(t, 3, s.Pending.AttemptNumber)

	_, next, err := Apply(s, Command{Type: CmdSubmitWeight, Weight: 145, Outcome: models.OutcomeValid})

	assert.True(t, errors.Is(err, ErrWeightBelowPrevious))
	assert.Len(t, AttemptsOf(next.Ledger, "ana", models.Deadlift), 2, "ledger must be unchanged")
	require.NotNil(t, next.Pending, "staged attempt survives a rejected weight")
	assert.Equal(t, 3, next.Pending.AttemptNumber)
}

func TestApply_CancelPendingDiscardsStagedAttempt(t *testing.T) {
	s := started(t, threeLifters())
	for i := 0; i < 3; i++ {
		_, s = step(t, s)
	}
	require.NotNil(t, s.Pending)
	ledgerBefore := len(s.Ledger)

	events, s := mustApply(t, s, Command{Type: CmdCancelPending})

	assert.Equal(t, 1, countEvents(events, EvtPendingDiscarded))
	assert.Nil(t, s.Pending)
	assert.Equal(t, PhaseAttemptInProgress, s.Phase)
	assert.Len(t, s.Ledger, ledgerBefore)

	events, s = mustApply(t, s, Command{Type: CmdCancelPending})
	assert.Empty(t, events, "cancelling twice is a no-op")
}

func TestApply_SelectAthleteDropsStagedAttempt(t *testing.T) {
	s := started(t, threeLifters())
	for i := 0; i < 3; i++ {
		_, s = step(t, s)
	}

	events, s := mustApply(t, s, Command{Type: CmdSelectAthlete, AthleteID: "c120"})

	assert.Equal(t, 1, countEvents(events, EvtPendingDiscarded))
	assert.Equal(t, "c120", s.Active)
	assert.Nil(t, s.Pending)
	assert.Equal(t, PhaseAttemptInProgress, s.Phase)
}

func TestApply_RotationInvariant(t *testing.T) {
	s := started(t, threeLifters())

	for s.Phase != PhaseMeetComplete {
		discipline := s.Discipline
		events, next := step(t, s)
		lifted := events[0].Attempt.AthleteID

		if next.Discipline == discipline && next.Phase != PhaseMeetComplete {
			assert.Equal(t, lifted, next.Rotation[len(next.Rotation)-1], "lifter moves to the tail")
			assert.NotEqual(t, lifted, next.Active, "someone else lifts next")
		}
		s = next
	}
}

func TestApply_SquatCompletionAdvancesToBench(t *testing.T) {
	s := started(t, threeLifters())

	advances := 0
	var last []Event
	for s.Discipline == models.Squat {
		last, s = step(t, s)
		advances += countEvents(last, EvtDisciplineAdvanced)
	}

	assert.Equal(t, 1, advances)
	assert.Equal(t, 1, countEvents(last, EvtTimerReset))
	assert.Equal(t, models.Bench, s.Discipline)
	assert.Equal(t, 1, s.Round)
	assert.Equal(t, []string{"b80", "a100", "c120"}, s.Rotation, "rotation resets to lot order")
	assert.Equal(t, "b80", s.Active)
	assert.Equal(t, PhaseAttemptInProgress, s.Phase)
	for _, id := range []string{"a100", "b80", "c120"} {
		assert.Equal(t, 3, CountAttempts(s.Ledger, id, models.Squat))
	}
}

func TestApply_FullMeetVisitsEachDisciplineOnce(t *testing.T) {
	s := started(t, threeLifters())

	var advanced []models.Discipline
	completed := 0
	commits := 0
	for s.Phase != PhaseMeetComplete {
		var events []Event
		events, s = step(t, s)
		commits++
		for _, e := range events {
			switch e.Type {
			case EvtDisciplineAdvanced:
				advanced = append(advanced, e.Discipline)
			case EvtMeetCompleted:
				completed++
			}
		}
	}

	assert.Equal(t, []models.Discipline{models.Bench, models.Deadlift}, advanced)
	assert.Equal(t, 1, completed)
	assert.Equal(t, 27, commits)
	assert.Empty(t, s.Active)

	_, _, err := Apply(s, Command{Type: CmdRecordResult, Outcome: models.OutcomeValid})
	assert.True(t, errors.Is(err, ErrMeetComplete))
}

func TestApply_RoundCounterFollowsCompletedRounds(t *testing.T) {
	s := started(t, threeLifters())

	rounds := []int{}
	for i := 0; i < 9; i++ {
		_, s = step(t, s)
		rounds = append(rounds, s.Round)
	}

	assert.Equal(t, []int{1, 1, 2, 2, 2, 3, 3, 3, 1}, rounds)
}

func TestApply_SetDisciplineResetsRotation(t *testing.T) {
	s := started(t, threeLifters())
	_, s = step(t, s)
	require.Equal(t, []string{"a100", "c120", "b80"}, s.Rotation)

	events, s := mustApply(t, s, Command{Type: CmdSetDiscipline, Discipline: models.Bench})

	assert.Equal(t, 1, countEvents(events, EvtDisciplineChanged))
	assert.Equal(t, 1, countEvents(events, EvtTimerReset))
	assert.Equal(t, models.Bench, s.Discipline)
	assert.Equal(t, 1, s.Round)
	assert.Equal(t, []string{"b80", "a100", "c120"}, s.Rotation)
	assert.Equal(t, "b80", s.Active)
}

func TestApply_SingleLifterKeepsLifting(t *testing.T) {
	lifters := []Lifter{{AthleteID: "solo", LotNumber: 1, Openers: map[models.Discipline]float64{models.Squat: 90}}}
	s := started(t, lifters)

	_, s = step(t, s)

	assert.Equal(t, "solo", s.Active)
	assert.Equal(t, PhaseAwaitingNextWeight, s.Phase)
	assert.Equal(t, 2, s.Round)
}

func TestApply_MissingOpenerRecordsZero(t *testing.T) {
	lifters := []Lifter{{AthleteID: "nodecl", LotNumber: 1}}
	s := started(t, lifters)

	events, _ := mustApply(t, s, Command{Type: CmdRecordResult, Outcome: models.OutcomeInvalid})

	assert.Equal(t, 0.0, events[0].Attempt.Weight)
	assert.Equal(t, models.OutcomeInvalid, events[0].Attempt.Outcome)
}
