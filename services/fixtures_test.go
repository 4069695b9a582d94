//go:build unit
// +build unit

package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-meet-control/models"
	"go-meet-control/store"
	"go-meet-control/websocket"
)

func kg(w float64) *float64 { return &w }

// --- Mock implementations using testify/mock ---

type MockTimer struct {
	mock.Mock
}

func (m *MockTimer) Start(competitionID string) error { return m.Called(competitionID).Error(0) }
func (m *MockTimer) Pause(competitionID string) error { return m.Called(competitionID).Error(0) }
func (m *MockTimer) Reset(competitionID string) error { return m.Called(competitionID).Error(0) }
func (m *MockTimer) Remove(competitionID string)      { m.Called(competitionID) }

func (m *MockTimer) Snapshot(competitionID string) websocket.TimerSnapshot {
	return m.Called(competitionID).Get(0).(websocket.TimerSnapshot)
}

func (m *MockTimer) Restore(competitionID string, seconds int, running bool) {
	m.Called(competitionID, seconds, running)
}

// permissiveTimer accepts every call; tests assert on the ones they care about.
func permissiveTimer() *MockTimer {
	t := new(MockTimer)
	t.On("Start", mock.Anything).Return(nil).Maybe()
	t.On("Pause", mock.Anything).Return(nil).Maybe()
	t.On("Reset", mock.Anything).Return(nil).Maybe()
	t.On("Remove", mock.Anything).Maybe()
	t.On("Restore", mock.Anything, mock.Anything, mock.Anything).Maybe()
	t.On("Snapshot", mock.Anything).Return(websocket.TimerSnapshot{TimeLeft: 60}).Maybe()
	return t
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) BroadcastMessage(competitionID string, msg map[string]interface{}) {
	m.Called(competitionID, msg)
}

func permissiveNotifier() *MockNotifier {
	n := new(MockNotifier)
	n.On("BroadcastMessage", mock.Anything, mock.Anything).Maybe()
	return n
}

// actions lists the action field of every message sent to competitionID.
func (m *MockNotifier) actions(competitionID string) []string {
	var out []string
	for _, c := range m.Calls {
		if c.Method == "BroadcastMessage" && c.Arguments.String(0) == competitionID {
			out = append(out, fmt.Sprint(c.Arguments.Get(1).(map[string]interface{})["action"]))
		}
	}
	return out
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Store(ctx context.Context, key string, body []byte) error {
	return m.Called(ctx, key, body).Error(0)
}

// failingStore fails attempt inserts or progress writes on demand.
type failingStore struct {
	*store.MemoryStore
	failAttempts bool
	failProgress bool
}

func (f *failingStore) CreateAttempt(ctx context.Context, a *models.Attempt) error {
	if f.failAttempts {
		return fmt.Errorf("%w: connection refused", models.ErrPersistence)
	}
	return f.MemoryStore.CreateAttempt(ctx, a)
}

func (f *failingStore) SaveProgress(ctx context.Context, id string, d models.Discipline, round int, athleteID *string) error {
	if f.failProgress {
		return fmt.Errorf("%w: connection refused", models.ErrPersistence)
	}
	return f.MemoryStore.SaveProgress(ctx, id, d, round, athleteID)
}

// racingStore starts competition startOn while Register is looking up the
// athlete, after its own status check has passed.
type racingStore struct {
	*store.MemoryStore
	startOn string
}

func (r *racingStore) GetAthlete(ctx context.Context, id string) (*models.Athlete, error) {
	if r.startOn != "" {
		if err := r.SetCompetitionStatus(ctx, r.startOn, models.StatusUpcoming, models.StatusInProgress); err != nil {
			return nil, err
		}
		r.startOn = ""
	}
	return r.MemoryStore.GetAthlete(ctx, id)
}

// fixture wires every service over one store.
type fixture struct {
	ctx           context.Context
	store         store.Store
	athletes      *AthleteService
	registrations *RegistrationService
	ledger        *LedgerService
	results       *ResultsService
	meet          *MeetService
	competitions  *CompetitionService
	timer         *MockTimer
	notifier      *MockNotifier
	comp          *models.Competition
}

func newFixture(t *testing.T) *fixture {
	return newFixtureOn(t, store.NewMemoryStore())
}

func newFixtureOn(t *testing.T, s store.Store) *fixture {
	t.Helper()
	f := &fixture{ctx: context.Background(), store: s, timer: permissiveTimer(), notifier: permissiveNotifier()}
	f.registrations = NewRegistrationService(s)
	f.athletes = NewAthleteService(s, f.registrations)
	f.ledger = NewLedgerService(s)
	f.results = NewResultsService(s)
	f.meet = NewMeetService(s, f.ledger, f.timer, f.notifier, f.results)
	f.competitions = NewCompetitionService(s, f.meet, f.results, nil, f.notifier, 60)

	comp, err := f.competitions.Create(f.ctx, CompetitionInput{Name: "Spring Open", Date: "2024-04-20", Location: "Gym"})
	require.NoError(t, err)
	f.comp = comp
	return f
}

func (f *fixture) athlete(t *testing.T, name string, squat, bench, deadlift float64) *models.Athlete {
	t.Helper()
	a, err := f.athletes.Create(f.ctx, AthleteInput{
		Name:           name,
		Gender:         models.Male,
		BodyWeight:     82.5,
		SquatOpener:    kg(squat),
		BenchOpener:    kg(bench),
		DeadliftOpener: kg(deadlift),
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) register(t *testing.T, a *models.Athlete) *models.Registration {
	t.Helper()
	r, err := f.registrations.Register(f.ctx, f.comp.ID, RegistrationInput{AthleteID: a.ID})
	require.NoError(t, err)
	return r
}

// threeRegistered registers ana (squat 100), ben (80) and cy (120) so the
// lots are ben 1, ana 2, cy 3.
func (f *fixture) threeRegistered(t *testing.T) (ana, ben, cy *models.Athlete) {
	t.Helper()
	ana = f.athlete(t, "Ana", 100, 70, 140)
	ben = f.athlete(t, "Ben", 80, 50, 110)
	cy = f.athlete(t, "Cy", 120, 85, 170)
	f.register(t, ana)
	f.register(t, ben)
	f.register(t, cy)
	return ana, ben, cy
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	_, err := f.competitions.Start(f.ctx, f.comp.ID)
	require.NoError(t, err)
}

func (f *fixture) lots(t *testing.T) map[string]int {
	t.Helper()
	regs, err := f.store.ListRegistrations(f.ctx, f.comp.ID)
	require.NoError(t, err)
	out := make(map[string]int, len(regs))
	for _, r := range regs {
		require.NotNil(t, r.LotNumber)
		out[r.Athlete.Name] = *r.LotNumber
	}
	return out
}
