//go:build unit
// +build unit

package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go-meet-control/models"
)

func attempt(athleteID string, d models.Discipline, n int, weight float64) models.Attempt {
	return models.Attempt{AthleteID: athleteID, Discipline: d, AttemptNumber: n, Weight: weight, Outcome: models.OutcomeValid}
}

func TestCheckAttempt(t *testing.T) {
	deadlifts := []models.Attempt{
		attempt("ana", models.Deadlift, 1, 140),
		attempt("ana", models.Deadlift, 2, 150),
	}

	tests := []struct {
		name      string
		prior     []models.Attempt
		candidate models.Attempt
		wantErr   error
	}{
		{"opener on empty ledger", nil, attempt("ana", models.Squat, 1, 0), nil},
		{"third heavier than second", deadlifts, attempt("ana", models.Deadlift, 3, 155), nil},
		{"third equal to second", deadlifts, attempt("ana", models.Deadlift, 3, 150), nil},
		{"third lighter than second", deadlifts, attempt("ana", models.Deadlift, 3, 145), ErrWeightBelowPrevious},
		{"skips attempt two", deadlifts[:1], attempt("ana", models.Deadlift, 3, 160), ErrAttemptOutOfOrder},
		{"second before opener", nil, attempt("ana", models.Bench, 2, 60), ErrAttemptOutOfOrder},
		{"slot already filled", deadlifts, attempt("ana", models.Deadlift, 2, 152), ErrAttemptSlotTaken},
		{"fourth attempt", append(deadlifts, attempt("ana", models.Deadlift, 3, 160)), attempt("ana", models.Deadlift, 4, 165), ErrAttemptOutOfRange},
		{"zero weight after opener", deadlifts[:1], attempt("ana", models.Deadlift, 2, 0), ErrWeightRequired},
		{"unknown discipline", nil, attempt("ana", "snatch", 1, 0), ErrInvalidDiscipline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAttempt(tt.prior, tt.candidate)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestCheckAttempt_ErrorKinds(t *testing.T) {
	prior := []models.Attempt{attempt("ana", models.Deadlift, 1, 140), attempt("ana", models.Deadlift, 2, 150)}

	err := CheckAttempt(prior, attempt("ana", models.Deadlift, 3, 145))
	assert.True(t, errors.Is(err, models.ErrValidation))

	err = CheckAttempt(prior, attempt("ana", models.Deadlift, 2, 150))
	assert.True(t, errors.Is(err, models.ErrConflict))
}

func TestAttemptsOf_OrdersByNumber(t *testing.T) {
	ledger := []models.Attempt{
		attempt("ana", models.Squat, 2, 105),
		attempt("bo", models.Squat, 1, 90),
		attempt("ana", models.Squat, 1, 100),
		attempt("ana", models.Bench, 1, 60),
	}

	got := AttemptsOf(ledger, "ana", models.Squat)

	if assert.Len(t, got, 2) {
		assert.Equal(t, 1, got[0].AttemptNumber)
		assert.Equal(t, 2, got[1].AttemptNumber)
	}
	assert.Equal(t, 2, CountAttempts(ledger, "ana", models.Squat))
	assert.Equal(t, 0, CountAttempts(ledger, "bo", models.Deadlift))
}
