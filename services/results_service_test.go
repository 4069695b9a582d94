//go:build unit
// +build unit

package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"go-meet-control/models"
)

func attemptOf(athleteID string, d models.Discipline, n int, w float64, o models.Outcome) models.Attempt {
	return models.Attempt{AthleteID: athleteID, Discipline: d, AttemptNumber: n, Weight: w, Outcome: o}
}

func registration(athleteID, name string, bodyWeight float64, lot int, category string) models.Registration {
	l := lot
	r := models.Registration{
		AthleteID: athleteID,
		LotNumber: &l,
		Athlete:   &models.Athlete{ID: athleteID, Name: name, BodyWeight: bodyWeight},
	}
	if category != "" {
		r.Category = &models.WeightCategory{Name: category}
	}
	return r
}

func fullMeet(athleteID string, squat, bench, deadlift float64) []models.Attempt {
	var out []models.Attempt
	for d, w := range map[models.Discipline]float64{models.Squat: squat, models.Bench: bench, models.Deadlift: deadlift} {
		out = append(out,
			attemptOf(athleteID, d, 1, w-10, models.OutcomeValid),
			attemptOf(athleteID, d, 2, w, models.OutcomeValid),
			attemptOf(athleteID, d, 3, w+5, models.OutcomeInvalid),
		)
	}
	return out
}

func TestBuildStandings_BestLiftsAndTotal(t *testing.T) {
	regs := []models.Registration{registration("a", "Ana", 82, 1, "-83kg")}
	standings := BuildStandings(regs, fullMeet("a", 150, 100, 200))

	require.Len(t, standings, 1)
	row := standings[0].Rows[0]
	assert.Equal(t, 150.0, *row.Lifts[models.Squat].Best)
	assert.Equal(t, 100.0, *row.Lifts[models.Bench].Best)
	assert.Equal(t, 200.0, *row.Lifts[models.Deadlift].Best)
	require.NotNil(t, row.Total)
	assert.Equal(t, 450.0, *row.Total)
	assert.Equal(t, 1, row.Rank)
	assert.False(t, row.BombedOut)
}

func TestBuildStandings_Ranking(t *testing.T) {
	regs := []models.Registration{
		registration("a", "Ana", 82, 1, "-83kg"),
		registration("b", "Ben", 80, 2, "-83kg"),
		registration("c", "Cy", 80, 3, "-83kg"),
		registration("d", "Dee", 92, 4, "-93kg"),
	}
	var ledger []models.Attempt
	ledger = append(ledger, fullMeet("a", 150, 100, 200)...)
	ledger = append(ledger, fullMeet("b", 150, 100, 200)...) // same total, lighter
	ledger = append(ledger, fullMeet("c", 150, 100, 200)...) // same total and weight, later lot
	ledger = append(ledger, fullMeet("d", 100, 60, 120)...)

	standings := BuildStandings(regs, ledger)

	require.Len(t, standings, 2)
	assert.Equal(t, "-83kg", standings[0].Category)
	var names []string
	for _, r := range standings[0].Rows {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Ben", "Cy", "Ana"}, names)
	assert.Equal(t, 1, standings[1].Rows[0].Rank)
}

func TestBuildStandings_BombOut(t *testing.T) {
	regs := []models.Registration{
		registration("a", "Ana", 82, 1, ""),
		registration("b", "Ben", 80, 2, ""),
	}
	ledger := []models.Attempt{
		attemptOf("a", models.Squat, 1, 150, models.OutcomeInvalid),
		attemptOf("a", models.Squat, 2, 150, models.OutcomeInvalid),
		attemptOf("a", models.Squat, 3, 150, models.OutcomeInvalid),
		attemptOf("a", models.Bench, 1, 100, models.OutcomeValid),
		attemptOf("b", models.Squat, 1, 120, models.OutcomeValid),
	}

	standings := BuildStandings(regs, ledger)

	require.Len(t, standings, 1)
	assert.Equal(t, "Open", standings[0].Category)
	rows := standings[0].Rows
	assert.Equal(t, "Ben", rows[0].Name)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "Ana", rows[1].Name)
	assert.True(t, rows[1].BombedOut)
	assert.Nil(t, rows[1].Total)
	assert.Zero(t, rows[1].Rank)
}

func TestBuildStandings_PendingIsNotBombOut(t *testing.T) {
	regs := []models.Registration{registration("a", "Ana", 82, 1, "")}
	ledger := []models.Attempt{
		attemptOf("a", models.Squat, 1, 150, models.OutcomeInvalid),
		attemptOf("a", models.Squat, 2, 150, models.OutcomeInvalid),
		attemptOf("a", models.Squat, 3, 155, models.OutcomePending),
	}

	row := BuildStandings(regs, ledger)[0].Rows[0]

	assert.False(t, row.BombedOut)
	assert.Nil(t, row.Total)
}

func TestStandingsWorkbook(t *testing.T) {
	regs := []models.Registration{registration("a", "Ana", 82, 1, "-83kg")}
	data, err := StandingsWorkbook(BuildStandings(regs, fullMeet("a", 150, 100, 200)))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("-83kg")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Rank", rows[0][0])
	assert.Equal(t, "Ana", rows[1][1])
	assert.Equal(t, "-155", rows[1][7], "missed attempts are negative")
	assert.Equal(t, "450", rows[1][17])
}

func TestResultsService_LiveSnapshot(t *testing.T) {
	f := newFixture(t)
	_, ben, _ := f.threeRegistered(t)
	f.start(t)

	snap, err := f.results.Live(f.ctx, f.comp.ID)
	require.NoError(t, err)
	assert.Nil(t, snap.CurrentAthlete)
	assert.Equal(t, 60, snap.Timer.TimeLeft)

	_, err = f.meet.Select(f.ctx, f.comp.ID, ben.ID)
	require.NoError(t, err)
	require.NoError(t, f.results.SaveTimer(f.ctx, f.comp.ID, 42, true))

	snap, err = f.results.Live(f.ctx, f.comp.ID)
	require.NoError(t, err)
	require.NotNil(t, snap.CurrentAthlete)
	assert.Equal(t, "Ben", snap.CurrentAthlete.Name)
	assert.Equal(t, 80.0, *snap.CurrentAthlete.Opener)
	assert.Equal(t, 1, *snap.CurrentAthlete.LotNumber)
	assert.Equal(t, 42, snap.Timer.TimeLeft)
	assert.True(t, snap.Timer.Running)
	assert.Equal(t, models.StatusInProgress, snap.Status)
}

func TestResultsService_Board(t *testing.T) {
	f := newFixture(t)
	f.threeRegistered(t)

	board, err := f.results.Board(f.ctx, f.comp.ID)
	require.NoError(t, err)
	assert.Nil(t, board.Live, "no live state before the start")
	assert.Len(t, board.Registrations, 3)

	f.start(t)
	board, err = f.results.Board(f.ctx, f.comp.ID)
	require.NoError(t, err)
	assert.NotNil(t, board.Live)
}
