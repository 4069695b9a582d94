//go:build unit
// +build unit

package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-meet-control/engine"
	"go-meet-control/models"
)

func TestRecordAttempt_OpenerTakesDeclaredWeight(t *testing.T) {
	f := newFixture(t)
	ana := f.athlete(t, "Ana", 100, 70, 140)
	f.register(t, ana)

	a, err := f.ledger.RecordAttempt(f.ctx, AttemptInput{
		CompetitionID: f.comp.ID, AthleteID: ana.ID, Discipline: models.Squat,
		AttemptNumber: 1, Weight: 250, Outcome: models.OutcomeValid,
	})

	require.NoError(t, err)
	assert.Equal(t, 100.0, a.Weight)
	assert.NotEmpty(t, a.ID)
}

func TestRecordAttempt_Rules(t *testing.T) {
	f := newFixture(t)
	ana := f.athlete(t, "Ana", 100, 70, 140)
	f.register(t, ana)
	record := func(n int, w float64) error {
		_, err := f.ledger.RecordAttempt(f.ctx, AttemptInput{
			CompetitionID: f.comp.ID, AthleteID: ana.ID, Discipline: models.Squat,
			AttemptNumber: n, Weight: w, Outcome: models.OutcomeValid,
		})
		return err
	}

	assert.True(t, errors.Is(record(2, 105), engine.ErrAttemptOutOfOrder), "attempt 2 before attempt 1")
	require.NoError(t, record(1, 0))
	assert.True(t, errors.Is(record(1, 0), models.ErrConflict), "slot already filled")
	assert.True(t, errors.Is(record(2, 0), engine.ErrWeightRequired))
	assert.True(t, errors.Is(record(2, 95), engine.ErrWeightBelowPrevious))
	require.NoError(t, record(2, 100), "equal weight is allowed")
	assert.True(t, errors.Is(record(4, 120), engine.ErrAttemptOutOfRange))

	attempts, err := f.ledger.AttemptsFor(f.ctx, f.comp.ID, ana.ID, models.Squat)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, 100.0, attempts[0].Weight)
	assert.Equal(t, 100.0, attempts[1].Weight)
}

func TestRecordAttempt_UnknownRecords(t *testing.T) {
	f := newFixture(t)
	ana := f.athlete(t, "Ana", 100, 70, 140)
	in := AttemptInput{CompetitionID: f.comp.ID, AthleteID: ana.ID, Discipline: models.Squat, AttemptNumber: 1}

	_, err := f.ledger.RecordAttempt(f.ctx, in)
	assert.True(t, errors.Is(err, models.ErrNotFound), "not registered")

	in.AthleteID = "missing"
	_, err = f.ledger.RecordAttempt(f.ctx, in)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestRecordAttempt_InvalidDiscipline(t *testing.T) {
	f := newFixture(t)
	ana := f.athlete(t, "Ana", 100, 70, 140)
	f.register(t, ana)

	_, err := f.ledger.RecordAttempt(f.ctx, AttemptInput{
		CompetitionID: f.comp.ID, AthleteID: ana.ID, Discipline: "clean", AttemptNumber: 1,
	})

	assert.True(t, errors.Is(err, engine.ErrInvalidDiscipline))
}

func TestResolveOutcome_Once(t *testing.T) {
	f := newFixture(t)
	ana := f.athlete(t, "Ana", 100, 70, 140)
	f.register(t, ana)
	a, err := f.ledger.RecordAttempt(f.ctx, AttemptInput{
		CompetitionID: f.comp.ID, AthleteID: ana.ID, Discipline: models.Bench, AttemptNumber: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePending, a.Outcome)

	_, err = f.ledger.ResolveOutcome(f.ctx, a.ID, models.OutcomePending)
	assert.True(t, errors.Is(err, models.ErrValidation))

	resolved, err := f.ledger.ResolveOutcome(f.ctx, a.ID, models.OutcomeInvalid)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInvalid, resolved.Outcome)

	_, err = f.ledger.ResolveOutcome(f.ctx, a.ID, models.OutcomeValid)
	assert.True(t, errors.Is(err, models.ErrConflict))
}
