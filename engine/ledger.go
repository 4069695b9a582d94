package engine

import (
	"fmt"
	"sort"

	"go-meet-control/models"
)

var (
	ErrInvalidDiscipline   = fmt.Errorf("%w: unknown discipline", models.ErrValidation)
	ErrInvalidOutcome      = fmt.Errorf("%w: unknown outcome", models.ErrValidation)
	ErrAttemptOutOfRange   = fmt.Errorf("%w: attempt number must be between 1 and %d", models.ErrValidation, models.MaxAttempts)
	ErrAttemptOutOfOrder   = fmt.Errorf("%w: previous attempt has not been recorded", models.ErrValidation)
	ErrWeightRequired      = fmt.Errorf("%w: weight must be positive", models.ErrValidation)
	ErrWeightBelowPrevious = fmt.Errorf("%w: weight is below the previous attempt", models.ErrValidation)
	ErrAttemptSlotTaken    = fmt.Errorf("%w: attempt already recorded", models.ErrConflict)
)

// AttemptsOf returns the attempts of one athlete in one discipline ordered by
// attempt number.
func AttemptsOf(ledger []models.Attempt, athleteID string, d models.Discipline) []models.Attempt {
	var out []models.Attempt
	for _, a := range ledger {
		if a.AthleteID == athleteID && a.Discipline == d {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out
}

// CountAttempts is len(AttemptsOf(...)) without the allocation.
func CountAttempts(ledger []models.Attempt, athleteID string, d models.Discipline) int {
	n := 0
	for _, a := range ledger {
		if a.AthleteID == athleteID && a.Discipline == d {
			n++
		}
	}
	return n
}

// CheckAttempt validates candidate against prior, the athlete's attempts in
// the same discipline ordered by attempt number. Attempt numbers must be
// contiguous from 1, a slot may be filled once, and attempts after the opener
// may not go down in weight.
func CheckAttempt(prior []models.Attempt, candidate models.Attempt) error {
	if !candidate.Discipline.Valid() {
		return ErrInvalidDiscipline
	}
	if !candidate.Outcome.Valid() {
		return ErrInvalidOutcome
	}
	if candidate.AttemptNumber < 1 || candidate.AttemptNumber > models.MaxAttempts {
		return ErrAttemptOutOfRange
	}
	for _, p := range prior {
		if p.AttemptNumber == candidate.AttemptNumber {
			return ErrAttemptSlotTaken
		}
	}
	if candidate.AttemptNumber != len(prior)+1 {
		return ErrAttemptOutOfOrder
	}
	if candidate.AttemptNumber == 1 {
		return nil
	}
	if candidate.Weight <= 0 {
		return ErrWeightRequired
	}
	if last := prior[len(prior)-1]; candidate.Weight < last.Weight {
		return fmt.Errorf("%w: %.1f < %.1f", ErrWeightBelowPrevious, candidate.Weight, last.Weight)
	}
	return nil
}
