// File: services/ledger_service.go
package services

import (
	"context"
	"fmt"

	"go-meet-control/engine"
	"go-meet-control/logger"
	"go-meet-control/metrics"
	"go-meet-control/models"
	"go-meet-control/store"
)

// AttemptInput is the body of a direct ledger write.
type AttemptInput struct {
	CompetitionID string            `json:"competitionId"`
	AthleteID     string            `json:"athleteId"`
	Discipline    models.Discipline `json:"discipline"`
	AttemptNumber int               `json:"attemptNumber"`
	Weight        float64           `json:"weight"`
	Outcome       models.Outcome    `json:"outcome"`
}

type LedgerServiceInterface interface {
	RecordAttempt(ctx context.Context, in AttemptInput) (*models.Attempt, error)
	AttemptsFor(ctx context.Context, competitionID, athleteID string, d models.Discipline) ([]models.Attempt, error)
	Attempts(ctx context.Context, competitionID string) ([]models.Attempt, error)
	ResolveOutcome(ctx context.Context, attemptID string, outcome models.Outcome) (*models.Attempt, error)
}

// LedgerService is the only writer of attempts.
type LedgerService struct {
	store store.Store
}

var _ LedgerServiceInterface = (*LedgerService)(nil)

func NewLedgerService(s store.Store) *LedgerService {
	return &LedgerService{store: s}
}

// RecordAttempt validates and inserts one attempt. Attempt 1 always takes the
// athlete's declared opener; the weight in the input is ignored for it.
func (s *LedgerService) RecordAttempt(ctx context.Context, in AttemptInput) (*models.Attempt, error) {
	if in.Outcome == "" {
		in.Outcome = models.OutcomePending
	}
	athlete, err := s.store.GetAthlete(ctx, in.AthleteID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetCompetition(ctx, in.CompetitionID); err != nil {
		return nil, err
	}
	if _, err := s.store.FindRegistration(ctx, in.CompetitionID, in.AthleteID); err != nil {
		return nil, err
	}

	a := models.Attempt{
		CompetitionID: in.CompetitionID,
		AthleteID:     in.AthleteID,
		Discipline:    in.Discipline,
		AttemptNumber: in.AttemptNumber,
		Weight:        in.Weight,
		Outcome:       in.Outcome,
	}
	if a.AttemptNumber == 1 {
		a.Weight = athlete.OpenerWeight(a.Discipline)
	}
	if !a.Discipline.Valid() {
		return nil, engine.ErrInvalidDiscipline
	}

	prior, err := s.store.ListAttemptsFor(ctx, in.CompetitionID, in.AthleteID, in.Discipline)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckAttempt(prior, a); err != nil {
		return nil, err
	}
	return s.insert(ctx, a)
}

// insert writes a checked attempt. The store's unique slot index turns a
// concurrent duplicate into ErrConflict.
func (s *LedgerService) insert(ctx context.Context, a models.Attempt) (*models.Attempt, error) {
	if err := s.store.CreateAttempt(ctx, &a); err != nil {
		logger.Error.Printf("[RecordAttempt] insert failed athlete=%s %s #%d competition=%s: %v",
			a.AthleteID, a.Discipline, a.AttemptNumber, a.CompetitionID, err)
		return nil, err
	}
	metrics.AttemptsRecorded.WithLabelValues(string(a.Discipline), string(a.Outcome)).Inc()
	logger.Info.Printf("[RecordAttempt] athlete=%s %s #%d %.1fkg %s competition=%s",
		a.AthleteID, a.Discipline, a.AttemptNumber, a.Weight, a.Outcome, a.CompetitionID)
	return &a, nil
}

func (s *LedgerService) AttemptsFor(ctx context.Context, competitionID, athleteID string, d models.Discipline) ([]models.Attempt, error) {
	if !d.Valid() {
		return nil, engine.ErrInvalidDiscipline
	}
	return s.store.ListAttemptsFor(ctx, competitionID, athleteID, d)
}

func (s *LedgerService) Attempts(ctx context.Context, competitionID string) ([]models.Attempt, error) {
	return s.store.ListAttempts(ctx, competitionID)
}

// ResolveOutcome judges a pending attempt. A resolved attempt cannot change.
func (s *LedgerService) ResolveOutcome(ctx context.Context, attemptID string, outcome models.Outcome) (*models.Attempt, error) {
	if outcome != models.OutcomeValid && outcome != models.OutcomeInvalid {
		return nil, fmt.Errorf("%w: outcome must be valid or invalid", models.ErrValidation)
	}
	if err := s.store.ResolveAttemptOutcome(ctx, attemptID, outcome); err != nil {
		return nil, err
	}
	logger.Info.Printf("[ResolveOutcome] attempt=%s resolved %s", attemptID, outcome)
	return s.store.GetAttempt(ctx, attemptID)
}
