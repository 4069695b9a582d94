package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go-meet-control/models"
)

// MemoryStore implements Store in process. Records are held by value.
type MemoryStore struct {
	mu            sync.RWMutex
	athletes      map[string]models.Athlete
	categories    map[string]models.WeightCategory
	competitions  map[string]models.Competition
	registrations []models.Registration
	attempts      []models.Attempt
	live          map[string]models.LiveMeetState
	now           func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		athletes:     make(map[string]models.Athlete),
		categories:   make(map[string]models.WeightCategory),
		competitions: make(map[string]models.Competition),
		live:         make(map[string]models.LiveMeetState),
		now:          time.Now,
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) Close() error { return nil }

func notFound(what string) error { return fmt.Errorf("%w: %s", models.ErrNotFound, what) }

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// ------------------------ athletes -----------------------

func (m *MemoryStore) CreateAthlete(ctx context.Context, athlete *models.Athlete) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	athlete.ID = newID(athlete.ID)
	if _, ok := m.athletes[athlete.ID]; ok {
		return fmt.Errorf("%w: athlete already exists", models.ErrConflict)
	}
	now := m.now()
	athlete.CreatedAt, athlete.UpdatedAt = now, now
	m.athletes[athlete.ID] = *athlete
	return nil
}

func (m *MemoryStore) GetAthlete(ctx context.Context, id string) (*models.Athlete, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.athletes[id]
	if !ok {
		return nil, notFound("athlete")
	}
	return &a, nil
}

func (m *MemoryStore) ListAthletes(ctx context.Context) ([]models.Athlete, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Athlete, 0, len(m.athletes))
	for _, a := range m.athletes {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) UpdateAthlete(ctx context.Context, athlete *models.Athlete) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.athletes[athlete.ID]
	if !ok {
		return notFound("athlete")
	}
	athlete.CreatedAt = old.CreatedAt
	athlete.UpdatedAt = m.now()
	m.athletes[athlete.ID] = *athlete
	return nil
}

func (m *MemoryStore) DeleteAthlete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.athletes[id]; !ok {
		return notFound("athlete")
	}
	delete(m.athletes, id)
	m.registrations = filterRegistrations(m.registrations, func(r models.Registration) bool { return r.AthleteID != id })
	m.attempts = filterAttempts(m.attempts, func(a models.Attempt) bool { return a.AthleteID != id })
	return nil
}

// ----------------------- categories ----------------------

func (m *MemoryStore) CreateCategory(ctx context.Context, category *models.WeightCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	category.ID = newID(category.ID)
	if _, ok := m.categories[category.ID]; ok {
		return fmt.Errorf("%w: weight category already exists", models.ErrConflict)
	}
	category.CreatedAt = m.now()
	m.categories[category.ID] = *category
	return nil
}

func (m *MemoryStore) GetCategory(ctx context.Context, id string) (*models.WeightCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, notFound("weight category")
	}
	return &c, nil
}

func (m *MemoryStore) ListCategories(ctx context.Context) ([]models.WeightCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.WeightCategory, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Gender != out[j].Gender {
			return out[i].Gender < out[j].Gender
		}
		return maxWeight(out[i]) < maxWeight(out[j])
	})
	return out, nil
}

func maxWeight(c models.WeightCategory) float64 {
	if c.MaxWeight == nil {
		return 1e9
	}
	return *c.MaxWeight
}

// ---------------------- competitions ---------------------

func (m *MemoryStore) CreateCompetition(ctx context.Context, competition *models.Competition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	competition.ID = newID(competition.ID)
	if _, ok := m.competitions[competition.ID]; ok {
		return fmt.Errorf("%w: competition already exists", models.ErrConflict)
	}
	if competition.Status == "" {
		competition.Status = models.StatusUpcoming
	}
	now := m.now()
	competition.CreatedAt, competition.UpdatedAt = now, now
	m.competitions[competition.ID] = *competition
	return nil
}

func (m *MemoryStore) GetCompetition(ctx context.Context, id string) (*models.Competition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.competitions[id]
	if !ok {
		return nil, notFound("competition")
	}
	return &c, nil
}

func (m *MemoryStore) ListCompetitions(ctx context.Context) ([]models.Competition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Competition, 0, len(m.competitions))
	for _, c := range m.competitions {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *MemoryStore) UpdateCompetition(ctx context.Context, competition *models.Competition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.competitions[competition.ID]
	if !ok {
		return notFound("competition")
	}
	c.Name = competition.Name
	c.Date = competition.Date
	c.Location = competition.Location
	c.Description = competition.Description
	c.UpdatedAt = m.now()
	m.competitions[c.ID] = c
	*competition = c
	return nil
}

func (m *MemoryStore) ActiveCompetition(ctx context.Context) (*models.Competition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.competitions {
		if c.Status == models.StatusInProgress {
			return &c, nil
		}
	}
	return nil, notFound("active competition")
}

func (m *MemoryStore) StartCompetition(ctx context.Context, id string, live *models.LiveMeetState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.competitions[id]
	if !ok {
		return notFound("competition")
	}
	if !c.Status.CanTransition(models.StatusInProgress) {
		return fmt.Errorf("%w: cannot start a %s competition", models.ErrConflict, c.Status)
	}
	for _, other := range m.competitions {
		if other.ID != id && other.Status == models.StatusInProgress {
			return ErrAnotherCompetitionActive
		}
	}
	c.Status = models.StatusInProgress
	c.UpdatedAt = m.now()
	m.competitions[id] = c

	live.ID = newID(live.ID)
	live.CompetitionID = id
	live.CreatedAt, live.UpdatedAt = c.UpdatedAt, c.UpdatedAt
	m.live[id] = *live
	return nil
}

func (m *MemoryStore) SetCompetitionStatus(ctx context.Context, id string, from, to models.CompetitionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.competitions[id]
	if !ok {
		return notFound("competition")
	}
	if c.Status != from {
		return ErrStatusChanged
	}
	c.Status = to
	c.UpdatedAt = m.now()
	m.competitions[id] = c
	return nil
}

func (m *MemoryStore) ResetCompetition(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.competitions[id]
	if !ok {
		return notFound("competition")
	}
	m.attempts = filterAttempts(m.attempts, func(a models.Attempt) bool { return a.CompetitionID != id })
	m.registrations = filterRegistrations(m.registrations, func(r models.Registration) bool { return r.CompetitionID != id })
	delete(m.live, id)
	c.Status = models.StatusUpcoming
	c.UpdatedAt = m.now()
	m.competitions[id] = c
	return nil
}

// ---------------------- registrations --------------------

func (m *MemoryStore) CreateRegistration(ctx context.Context, registration *models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createRegistration(registration)
}

func (m *MemoryStore) RegisterWithLots(ctx context.Context, registration *models.Registration, relot LotFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.competitions[registration.CompetitionID]
	if !ok {
		return notFound("competition")
	}
	if c.Status != models.StatusUpcoming {
		return ErrStatusChanged
	}
	if err := m.createRegistration(registration); err != nil {
		return err
	}
	m.setLots(registration.CompetitionID, relot(m.listRegistrations(registration.CompetitionID)))
	return nil
}

func (m *MemoryStore) createRegistration(registration *models.Registration) error {
	for _, r := range m.registrations {
		if r.CompetitionID == registration.CompetitionID && r.AthleteID == registration.AthleteID {
			return fmt.Errorf("%w: registration already exists", models.ErrConflict)
		}
	}
	registration.ID = newID(registration.ID)
	if registration.RegisteredAt.IsZero() {
		registration.RegisteredAt = m.now()
	}
	stored := *registration
	stored.Athlete, stored.Category, stored.Competition = nil, nil, nil
	m.registrations = append(m.registrations, stored)
	return nil
}

func (m *MemoryStore) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.registrations {
		if r.ID == id {
			out := m.preload(r)
			return &out, nil
		}
	}
	return nil, notFound("registration")
}

func (m *MemoryStore) FindRegistration(ctx context.Context, competitionID, athleteID string) (*models.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.registrations {
		if r.CompetitionID == competitionID && r.AthleteID == athleteID {
			out := m.preload(r)
			return &out, nil
		}
	}
	return nil, notFound("registration")
}

func (m *MemoryStore) ListRegistrations(ctx context.Context, competitionID string) ([]models.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRegistrations(competitionID), nil
}

// listRegistrations is ListRegistrations for callers holding the lock.
func (m *MemoryStore) listRegistrations(competitionID string) []models.Registration {
	var out []models.Registration
	for _, r := range m.registrations {
		if r.CompetitionID == competitionID {
			out = append(out, m.preload(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := out[i].LotNumber, out[j].LotNumber
		switch {
		case li != nil && lj != nil && *li != *lj:
			return *li < *lj
		case li != nil && lj == nil:
			return true
		case li == nil && lj != nil:
			return false
		}
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out
}

func (m *MemoryStore) ListRegistrationsByAthlete(ctx context.Context, athleteID string) ([]models.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Registration
	for _, r := range m.registrations {
		if r.AthleteID == athleteID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteRegistration(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.registrations)
	m.registrations = filterRegistrations(m.registrations, func(r models.Registration) bool { return r.ID != id })
	if len(m.registrations) == before {
		return notFound("registration")
	}
	return nil
}

func (m *MemoryStore) UpdateLotNumbers(ctx context.Context, competitionID string, lots map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLots(competitionID, lots)
	return nil
}

func (m *MemoryStore) setLots(competitionID string, lots map[string]int) {
	for i := range m.registrations {
		r := &m.registrations[i]
		if r.CompetitionID != competitionID {
			continue
		}
		if lot, ok := lots[r.ID]; ok {
			l := lot
			r.LotNumber = &l
		}
	}
}

// preload attaches athlete and category copies. Callers hold the lock.
func (m *MemoryStore) preload(r models.Registration) models.Registration {
	if a, ok := m.athletes[r.AthleteID]; ok {
		r.Athlete = &a
	}
	if r.CategoryID != nil {
		if c, ok := m.categories[*r.CategoryID]; ok {
			r.Category = &c
		}
	}
	if r.LotNumber != nil {
		l := *r.LotNumber
		r.LotNumber = &l
	}
	return r
}

// ------------------------ attempts -----------------------

func (m *MemoryStore) CreateAttempt(ctx context.Context, attempt *models.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.CompetitionID == attempt.CompetitionID && a.AthleteID == attempt.AthleteID &&
			a.Discipline == attempt.Discipline && a.AttemptNumber == attempt.AttemptNumber {
			return fmt.Errorf("%w: attempt already exists", models.ErrConflict)
		}
	}
	attempt.ID = newID(attempt.ID)
	if attempt.Outcome == "" {
		attempt.Outcome = models.OutcomePending
	}
	attempt.CreatedAt = m.now()
	m.attempts = append(m.attempts, *attempt)
	return nil
}

func (m *MemoryStore) GetAttempt(ctx context.Context, id string) (*models.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.attempts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, notFound("attempt")
}

func (m *MemoryStore) ListAttempts(ctx context.Context, competitionID string) ([]models.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Attempt
	for _, a := range m.attempts {
		if a.CompetitionID == competitionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListAttemptsFor(ctx context.Context, competitionID, athleteID string, discipline models.Discipline) ([]models.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Attempt
	for _, a := range m.attempts {
		if a.CompetitionID == competitionID && a.AthleteID == athleteID && a.Discipline == discipline {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (m *MemoryStore) ResolveAttemptOutcome(ctx context.Context, id string, outcome models.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.attempts {
		if m.attempts[i].ID != id {
			continue
		}
		if m.attempts[i].Outcome != models.OutcomePending {
			return ErrOutcomeResolved
		}
		m.attempts[i].Outcome = outcome
		return nil
	}
	return notFound("attempt")
}

// ----------------------- live state ----------------------

func (m *MemoryStore) GetLiveState(ctx context.Context, competitionID string) (*models.LiveMeetState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.live[competitionID]
	if !ok {
		return nil, notFound("live state")
	}
	if st.CurrentAthleteID != nil {
		id := *st.CurrentAthleteID
		st.CurrentAthleteID = &id
	}
	return &st, nil
}

func (m *MemoryStore) SaveProgress(ctx context.Context, competitionID string, discipline models.Discipline, round int, athleteID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.live[competitionID]
	if !ok {
		return notFound("live state")
	}
	st.CurrentDiscipline = discipline
	st.CurrentRound = round
	st.CurrentAthleteID = nil
	if athleteID != nil {
		id := *athleteID
		st.CurrentAthleteID = &id
	}
	st.UpdatedAt = m.now()
	m.live[competitionID] = st
	return nil
}

func (m *MemoryStore) SaveTimer(ctx context.Context, competitionID string, seconds int, running bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.live[competitionID]
	if !ok {
		return notFound("live state")
	}
	st.TimerSeconds = seconds
	st.IsTimerRunning = running
	st.UpdatedAt = m.now()
	m.live[competitionID] = st
	return nil
}

func filterRegistrations(in []models.Registration, keep func(models.Registration) bool) []models.Registration {
	out := in[:0]
	for _, r := range in {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func filterAttempts(in []models.Attempt, keep func(models.Attempt) bool) []models.Attempt {
	out := in[:0]
	for _, a := range in {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}
