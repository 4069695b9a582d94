// Package store persists meet records. GormStore backs production on
// postgres; MemoryStore keeps the same semantics in process for tests and
// single-laptop meets.
package store

import (
	"context"
	"fmt"

	"go-meet-control/models"
)

var (
	ErrAnotherCompetitionActive = fmt.Errorf("%w: another competition is already in progress", models.ErrConflict)
	ErrStatusChanged            = fmt.Errorf("%w: competition status changed concurrently", models.ErrConflict)
	ErrOutcomeResolved          = fmt.Errorf("%w: attempt outcome is already resolved", models.ErrConflict)
)

// AthleteRepository defines the interface for interacting with athlete data.
type AthleteRepository interface {
	CreateAthlete(ctx context.Context, athlete *models.Athlete) error
	GetAthlete(ctx context.Context, id string) (*models.Athlete, error)
	ListAthletes(ctx context.Context) ([]models.Athlete, error)
	UpdateAthlete(ctx context.Context, athlete *models.Athlete) error
	// DeleteAthlete also removes the athlete's registrations and attempts.
	DeleteAthlete(ctx context.Context, id string) error
}

// CategoryRepository defines the interface for interacting with weight categories.
type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *models.WeightCategory) error
	GetCategory(ctx context.Context, id string) (*models.WeightCategory, error)
	ListCategories(ctx context.Context) ([]models.WeightCategory, error)
}

// CompetitionRepository defines the interface for interacting with competitions.
type CompetitionRepository interface {
	CreateCompetition(ctx context.Context, competition *models.Competition) error
	GetCompetition(ctx context.Context, id string) (*models.Competition, error)
	// ListCompetitions returns competitions newest date first.
	ListCompetitions(ctx context.Context) ([]models.Competition, error)
	UpdateCompetition(ctx context.Context, competition *models.Competition) error
	// ActiveCompetition returns the competition in progress or ErrNotFound.
	ActiveCompetition(ctx context.Context) (*models.Competition, error)
	// StartCompetition moves an upcoming competition to in_progress and
	// creates its live state in one step. It fails with
	// ErrAnotherCompetitionActive when a different competition is running.
	StartCompetition(ctx context.Context, id string, live *models.LiveMeetState) error
	// SetCompetitionStatus is a compare-and-set on the status column.
	SetCompetitionStatus(ctx context.Context, id string, from, to models.CompetitionStatus) error
	// ResetCompetition deletes attempts, registrations and live state and
	// puts the competition back to upcoming.
	ResetCompetition(ctx context.Context, id string) error
}

// RegistrationRepository defines the interface for interacting with registrations.
type RegistrationRepository interface {
	// CreateRegistration fails with ErrConflict when the athlete is already registered.
	CreateRegistration(ctx context.Context, registration *models.Registration) error
	GetRegistration(ctx context.Context, id string) (*models.Registration, error)
	FindRegistration(ctx context.Context, competitionID, athleteID string) (*models.Registration, error)
	// ListRegistrations preloads athlete and category and orders by lot
	// (unassigned last), then registration time.
	ListRegistrations(ctx context.Context, competitionID string) ([]models.Registration, error)
	ListRegistrationsByAthlete(ctx context.Context, athleteID string) ([]models.Registration, error)
	DeleteRegistration(ctx context.Context, id string) error
	// UpdateLotNumbers rewrites the lot numbers of a competition in one transaction.
	UpdateLotNumbers(ctx context.Context, competitionID string, lots map[string]int) error
	// RegisterWithLots inserts registration and rewrites the competition's
	// lots from relot in one transaction. relot sees the registrations as
	// ListRegistrations returns them, the new one included. A competition
	// that is no longer upcoming is ErrStatusChanged.
	RegisterWithLots(ctx context.Context, registration *models.Registration, relot LotFunc) error
}

// LotFunc maps registration ids to lot numbers.
type LotFunc func(regs []models.Registration) map[string]int

// AttemptRepository defines the interface for interacting with the attempt ledger.
type AttemptRepository interface {
	// CreateAttempt fails with ErrConflict when the slot is already filled.
	CreateAttempt(ctx context.Context, attempt *models.Attempt) error
	GetAttempt(ctx context.Context, id string) (*models.Attempt, error)
	// ListAttempts returns the ledger of a competition in creation order.
	ListAttempts(ctx context.Context, competitionID string) ([]models.Attempt, error)
	// ListAttemptsFor returns one athlete's attempts in a discipline by attempt number.
	ListAttemptsFor(ctx context.Context, competitionID, athleteID string, discipline models.Discipline) ([]models.Attempt, error)
	// ResolveAttemptOutcome sets the outcome of a pending attempt. Anything
	// but pending is ErrOutcomeResolved.
	ResolveAttemptOutcome(ctx context.Context, id string, outcome models.Outcome) error
}

// LiveStateRepository defines the interface for the live meet state. The
// meet service writes progress and the timer writes its own columns.
type LiveStateRepository interface {
	GetLiveState(ctx context.Context, competitionID string) (*models.LiveMeetState, error)
	SaveProgress(ctx context.Context, competitionID string, discipline models.Discipline, round int, athleteID *string) error
	SaveTimer(ctx context.Context, competitionID string, seconds int, running bool) error
}

// Store is every repository plus lifecycle.
type Store interface {
	AthleteRepository
	CategoryRepository
	CompetitionRepository
	RegistrationRepository
	AttemptRepository
	LiveStateRepository
	Ping(ctx context.Context) error
	Close() error
}
