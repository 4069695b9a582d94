// File: services/athlete_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-meet-control/engine"
	"go-meet-control/logger"
	"go-meet-control/models"
	"go-meet-control/store"
)

var ErrAthleteCompeting = fmt.Errorf("%w: athlete is registered in a competition in progress", models.ErrConflict)

// AthleteInput is the body of an athlete create or update request.
type AthleteInput struct {
	Name           string        `json:"name"`
	Club           string        `json:"club"`
	Gender         models.Gender `json:"gender"`
	Age            int           `json:"age"`
	BodyWeight     float64       `json:"bodyWeight"`
	CategoryID     *string       `json:"categoryId,omitempty"`
	SquatOpener    *float64      `json:"squatOpener,omitempty"`
	BenchOpener    *float64      `json:"benchOpener,omitempty"`
	DeadliftOpener *float64      `json:"deadliftOpener,omitempty"`
}

// CategoryInput is the body of a weight category request.
type CategoryInput struct {
	Name      string        `json:"name"`
	Gender    models.Gender `json:"gender"`
	MinWeight *float64      `json:"minWeight,omitempty"`
	MaxWeight *float64      `json:"maxWeight,omitempty"`
}

type AthleteServiceInterface interface {
	Create(ctx context.Context, in AthleteInput) (*models.Athlete, error)
	Get(ctx context.Context, id string) (*models.Athlete, error)
	List(ctx context.Context) ([]models.Athlete, error)
	Update(ctx context.Context, id string, in AthleteInput) (*models.Athlete, error)
	Delete(ctx context.Context, id string) error
	CreateCategory(ctx context.Context, in CategoryInput) (*models.WeightCategory, error)
	ListCategories(ctx context.Context) ([]models.WeightCategory, error)
}

// AthleteService manages athletes and weight categories. Opener changes and
// deletions re-rank lots of the upcoming competitions the athlete is in.
type AthleteService struct {
	store store.Store
	lots  *RegistrationService
}

var _ AthleteServiceInterface = (*AthleteService)(nil)

func NewAthleteService(s store.Store, lots *RegistrationService) *AthleteService {
	return &AthleteService{store: s, lots: lots}
}

func (s *AthleteService) Create(ctx context.Context, in AthleteInput) (*models.Athlete, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	a := &models.Athlete{}
	applyAthleteInput(a, in)
	if err := s.store.CreateAthlete(ctx, a); err != nil {
		return nil, err
	}
	logger.Info.Printf("[Create] athlete=%s name=%q", a.ID, a.Name)
	return a, nil
}

func (s *AthleteService) Get(ctx context.Context, id string) (*models.Athlete, error) {
	return s.store.GetAthlete(ctx, id)
}

func (s *AthleteService) List(ctx context.Context) ([]models.Athlete, error) {
	return s.store.ListAthletes(ctx)
}

func (s *AthleteService) Update(ctx context.Context, id string, in AthleteInput) (*models.Athlete, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	a, err := s.store.GetAthlete(ctx, id)
	if err != nil {
		return nil, err
	}
	openerChanged := engine.OpenerKey(a.SquatOpener) != engine.OpenerKey(in.SquatOpener)
	applyAthleteInput(a, in)
	if err := s.store.UpdateAthlete(ctx, a); err != nil {
		return nil, err
	}
	if openerChanged {
		if err := s.relot(ctx, id); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Delete removes an athlete with their registrations and attempts. An
// athlete on the platform of a running competition cannot be removed.
func (s *AthleteService) Delete(ctx context.Context, id string) error {
	regs, err := s.store.ListRegistrationsByAthlete(ctx, id)
	if err != nil {
		return err
	}
	for _, r := range regs {
		c, err := s.store.GetCompetition(ctx, r.CompetitionID)
		if err != nil {
			return err
		}
		if c.Status == models.StatusInProgress {
			logger.Warn.Printf("[Delete] athlete=%s is lifting in competition=%s; delete refused", id, c.ID)
			return ErrAthleteCompeting
		}
	}
	if err := s.store.DeleteAthlete(ctx, id); err != nil {
		return err
	}
	logger.Info.Printf("[Delete] athlete=%s removed with %d registrations", id, len(regs))
	for _, r := range regs {
		if err := s.lots.RecalculateAllLots(ctx, r.CompetitionID); err != nil && !errors.Is(err, ErrLotsFrozen) {
			return err
		}
	}
	return nil
}

// relot re-ranks every upcoming competition the athlete is registered in.
func (s *AthleteService) relot(ctx context.Context, athleteID string) error {
	regs, err := s.store.ListRegistrationsByAthlete(ctx, athleteID)
	if err != nil {
		return err
	}
	for _, r := range regs {
		err := s.lots.RecalculateAllLots(ctx, r.CompetitionID)
		if errors.Is(err, ErrLotsFrozen) {
			logger.Warn.Printf("[relot] opener of athlete=%s changed after competition=%s started; lots unchanged", athleteID, r.CompetitionID)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *AthleteService) validate(ctx context.Context, in *AthleteInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Club = strings.TrimSpace(in.Club)
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", models.ErrValidation)
	case !in.Gender.Valid():
		return fmt.Errorf("%w: gender must be male or female", models.ErrValidation)
	case in.Age < 0:
		return fmt.Errorf("%w: age cannot be negative", models.ErrValidation)
	case in.BodyWeight < 0:
		return fmt.Errorf("%w: body weight cannot be negative", models.ErrValidation)
	}
	for name, w := range map[string]*float64{"squat": in.SquatOpener, "bench": in.BenchOpener, "deadlift": in.DeadliftOpener} {
		if w != nil && *w <= 0 {
			return fmt.Errorf("%w: %s opener must be positive", models.ErrValidation, name)
		}
	}
	if in.CategoryID != nil {
		if _, err := s.store.GetCategory(ctx, *in.CategoryID); err != nil {
			return err
		}
	}
	return nil
}

func applyAthleteInput(a *models.Athlete, in AthleteInput) {
	a.Name = in.Name
	a.Club = in.Club
	a.Gender = in.Gender
	a.Age = in.Age
	a.BodyWeight = in.BodyWeight
	a.CategoryID = in.CategoryID
	a.SquatOpener = in.SquatOpener
	a.BenchOpener = in.BenchOpener
	a.DeadliftOpener = in.DeadliftOpener
}

// ----------------------- categories ----------------------

func (s *AthleteService) CreateCategory(ctx context.Context, in CategoryInput) (*models.WeightCategory, error) {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return nil, fmt.Errorf("%w: category name is required", models.ErrValidation)
	case !in.Gender.Valid():
		return nil, fmt.Errorf("%w: gender must be male or female", models.ErrValidation)
	case in.MinWeight != nil && *in.MinWeight < 0:
		return nil, fmt.Errorf("%w: minimum weight cannot be negative", models.ErrValidation)
	case in.MinWeight != nil && in.MaxWeight != nil && *in.MinWeight >= *in.MaxWeight:
		return nil, fmt.Errorf("%w: minimum weight must be below maximum weight", models.ErrValidation)
	}
	c := &models.WeightCategory{Name: in.Name, Gender: in.Gender, MinWeight: in.MinWeight, MaxWeight: in.MaxWeight}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *AthleteService) ListCategories(ctx context.Context) ([]models.WeightCategory, error) {
	return s.store.ListCategories(ctx)
}
