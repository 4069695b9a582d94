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

func TestMoveToBack(t *testing.T) {
	tests := []struct {
		name     string
		rotation []string
		id       string
		want     []string
	}{
		{"head", []string{"a", "b", "c"}, "a", []string{"b", "c", "a"}},
		{"middle", []string{"a", "b", "c"}, "b", []string{"a", "c", "b"}},
		{"already last", []string{"a", "b", "c"}, "c", []string{"a", "b", "c"}},
		{"unknown", []string{"a", "b"}, "z", []string{"a", "b"}},
		{"single", []string{"a"}, "a", []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, moveToBack(tt.rotation, tt.id))
		})
	}
}

func TestLotOrder_UnassignedLast(t *testing.T) {
	lifters := []Lifter{
		{AthleteID: "late", LotNumber: 0},
		{AthleteID: "third", LotNumber: 3},
		{AthleteID: "first", LotNumber: 1},
		{AthleteID: "later", LotNumber: 0},
	}

	got := lifterIDs(lotOrder(lifters))

	assert.Equal(t, []string{"first", "third", "late", "later"}, got)
	assert.Equal(t, "late", lifters[0].AthleteID, "input slice is not reordered")
}

func TestReplay_MatchesLiveState(t *testing.T) {
	for _, commits := range []int{1, 2, 3, 5, 9, 10, 17, 26, 27} {
		live := started(t, threeLifters())
		for i := 0; i < commits; i++ {
			_, live = step(t, live)
		}

		replayed, err := Replay(threeLifters(), live.Ledger)

		require.NoError(t, err, "after %d commits", commits)
		assert.Equal(t, live.Phase, replayed.Phase, "after %d commits", commits)
		assert.Equal(t, live.Discipline, replayed.Discipline, "after %d commits", commits)
		assert.Equal(t, live.Round, replayed.Round, "after %d commits", commits)
		assert.Equal(t, live.Rotation, replayed.Rotation, "after %d commits", commits)
		assert.Equal(t, live.Active, replayed.Active, "after %d commits", commits)
		assert.Equal(t, live.Pending, replayed.Pending, "after %d commits", commits)
	}
}

func TestReplay_EmptyLedger(t *testing.T) {
	s, err := Replay(threeLifters(), nil)

	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingSelection, s.Phase)
	assert.Equal(t, []string{"b80", "a100", "c120"}, s.Rotation)
}

func TestReplay_FollowsOperatorDisciplineJump(t *testing.T) {
	lifters := []Lifter{{AthleteID: "ana", LotNumber: 1, Openers: map[models.Discipline]float64{models.Deadlift: 140}}}
	ledger := []models.Attempt{attempt("ana", models.Deadlift, 1, 140)}

	s, err := Replay(lifters, ledger)

	require.NoError(t, err)
	assert.Equal(t, models.Deadlift, s.Discipline)
	assert.Equal(t, 2, s.Round)
	require.NotNil(t, s.Pending)
	assert.Equal(t, 2, s.Pending.AttemptNumber)
}

func TestReplay_SkipsDeregisteredAthletes(t *testing.T) {
	ledger := []models.Attempt{
		attempt("gone", models.Squat, 1, 95),
		attempt("b80", models.Squat, 1, 80),
	}

	s, err := Replay(threeLifters(), ledger)

	require.NoError(t, err)
	assert.Len(t, s.Ledger, 1)
	assert.Equal(t, []string{"a100", "c120", "b80"}, s.Rotation)
	assert.Equal(t, "a100", s.Active)
}

func TestReplay_RejectsCorruptLedger(t *testing.T) {
	ledger := []models.Attempt{
		attempt("b80", models.Squat, 1, 80),
		attempt("b80", models.Squat, 2, 90),
		attempt("b80", models.Squat, 3, 85),
	}

	_, err := Replay(threeLifters(), ledger)

	assert.True(t, errors.Is(err, ErrWeightBelowPrevious), "got %v", err)
}

func TestRecord_MatchesJudgedLift(t *testing.T) {
	s := started(t, threeLifters())
	_, judged := mustApply(t, s, Command{Type: CmdRecordResult, Outcome: models.OutcomeValid})

	events, recorded, err := Record(s, attempt("b80", models.Squat, 1, 80))

	require.NoError(t, err)
	assert.Equal(t, 1, countEvents(events, EvtAttemptCommitted))
	assert.Equal(t, 1, countEvents(events, EvtTimerReset))
	assert.Equal(t, judged.Rotation, recorded.Rotation)
	assert.Equal(t, judged.Active, recorded.Active)
	assert.Empty(t, s.Ledger, "input state must not change")
}

func TestRecord_OtherLifterAndDiscipline(t *testing.T) {
	s := started(t, threeLifters())

	events, next, err := Record(s, attempt("c120", models.Bench, 1, 85))

	require.NoError(t, err)
	assert.Equal(t, 1, countEvents(events, EvtDisciplineChanged))
	assert.Equal(t, models.Bench, next.Discipline)
	assert.Equal(t, []string{"b80", "a100", "c120"}, next.Rotation)
	assert.Equal(t, "b80", next.Active)
}

func TestRecord_Errors(t *testing.T) {
	s := started(t, threeLifters())

	_, _, err := Record(s, attempt("ghost", models.Squat, 1, 80))
	assert.True(t, errors.Is(err, ErrUnknownAthlete))

	_, same, err := Record(s, attempt("b80", models.Squat, 2, 90))
	assert.True(t, errors.Is(err, models.ErrValidation), "got %v", err)
	assert.Equal(t, s.Rotation, same.Rotation)
}

func TestDisciplineComplete(t *testing.T) {
	s := started(t, threeLifters())
	for i := 0; i < 9; i++ {
		_, s = step(t, s)
	}

	assert.True(t, s.DisciplineComplete(models.Squat))
	assert.False(t, s.DisciplineComplete(models.Bench))
	assert.Equal(t, models.Bench, s.Discipline)
	assert.Equal(t, 3, s.AttemptsLeft("b80"))
	assert.False(t, NewState(nil).DisciplineComplete(models.Squat))
}
