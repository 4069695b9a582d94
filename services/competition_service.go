// File: services/competition_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-meet-control/logger"
	"go-meet-control/models"
	"go-meet-control/store"
)

const dateLayout = "2006-01-02"

// CompetitionInput is the body of a competition create or update request.
// Date is either a calendar day or an RFC 3339 timestamp.
type CompetitionInput struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type CompetitionServiceInterface interface {
	Create(ctx context.Context, in CompetitionInput) (*models.Competition, error)
	Get(ctx context.Context, id string) (*models.Competition, error)
	List(ctx context.Context) ([]models.Competition, error)
	Update(ctx context.Context, id string, in CompetitionInput) (*models.Competition, error)
	Active(ctx context.Context) (*models.Competition, error)
	Start(ctx context.Context, id string) (*models.Competition, error)
	Finish(ctx context.Context, id string) (*models.Competition, error)
	Cancel(ctx context.Context, id string) (*models.Competition, error)
	Reset(ctx context.Context, id string) (*models.Competition, error)
}

// CompetitionService runs the competition lifecycle:
// upcoming -> in_progress -> finished, with cancel from either open state.
type CompetitionService struct {
	store        store.Store
	meet         *MeetService
	results      *ResultsService
	archive      ResultsArchive
	notifier     Notifier
	timerSeconds int
	now          func() time.Time
}

var _ CompetitionServiceInterface = (*CompetitionService)(nil)

// NewCompetitionService wires the lifecycle. archive may be nil when
// archival is not configured.
func NewCompetitionService(s store.Store, meet *MeetService, results *ResultsService, archive ResultsArchive, notifier Notifier, timerSeconds int) *CompetitionService {
	if timerSeconds <= 0 {
		timerSeconds = models.DefaultTimerSeconds
	}
	return &CompetitionService{
		store:        s,
		meet:         meet,
		results:      results,
		archive:      archive,
		notifier:     notifier,
		timerSeconds: timerSeconds,
		now:          time.Now,
	}
}

func (s *CompetitionService) Create(ctx context.Context, in CompetitionInput) (*models.Competition, error) {
	c := &models.Competition{}
	if err := applyCompetitionInput(c, in); err != nil {
		return nil, err
	}
	if err := s.store.CreateCompetition(ctx, c); err != nil {
		return nil, err
	}
	logger.Info.Printf("[Create] competition=%s name=%q date=%s", c.ID, c.Name, c.Date.Format(dateLayout))
	return c, nil
}

func (s *CompetitionService) Get(ctx context.Context, id string) (*models.Competition, error) {
	return s.store.GetCompetition(ctx, id)
}

func (s *CompetitionService) List(ctx context.Context) ([]models.Competition, error) {
	return s.store.ListCompetitions(ctx)
}

func (s *CompetitionService) Update(ctx context.Context, id string, in CompetitionInput) (*models.Competition, error) {
	c, err := s.store.GetCompetition(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyCompetitionInput(c, in); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCompetition(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CompetitionService) Active(ctx context.Context) (*models.Competition, error) {
	return s.store.ActiveCompetition(ctx)
}

// Start opens the competition and creates its live state. Only one
// competition may be in progress at a time.
func (s *CompetitionService) Start(ctx context.Context, id string) (*models.Competition, error) {
	live := models.NewLiveMeetState(id, s.timerSeconds)
	if err := s.store.StartCompetition(ctx, id, live); err != nil {
		logger.Warn.Printf("[Start] competition=%s not started: %v", id, err)
		return nil, err
	}
	logger.Info.Printf("[Start] competition=%s in progress", id)
	s.announce(id, models.StatusInProgress)
	return s.store.GetCompetition(ctx, id)
}

// Finish closes the competition and archives the final standings. An
// archive failure is logged; the competition stays finished.
func (s *CompetitionService) Finish(ctx context.Context, id string) (*models.Competition, error) {
	if err := s.transition(ctx, id, models.StatusFinished); err != nil {
		return nil, err
	}
	s.meet.Close(id)
	s.announce(id, models.StatusFinished)
	s.archiveStandings(ctx, id)
	return s.store.GetCompetition(ctx, id)
}

func (s *CompetitionService) Cancel(ctx context.Context, id string) (*models.Competition, error) {
	if err := s.transition(ctx, id, models.StatusCancelled); err != nil {
		return nil, err
	}
	s.meet.Close(id)
	s.announce(id, models.StatusCancelled)
	return s.store.GetCompetition(ctx, id)
}

// Reset wipes attempts, registrations and live state and reopens the
// competition as upcoming.
func (s *CompetitionService) Reset(ctx context.Context, id string) (*models.Competition, error) {
	if err := s.store.ResetCompetition(ctx, id); err != nil {
		return nil, err
	}
	s.meet.Close(id)
	logger.Warn.Printf("[Reset] competition=%s reset to upcoming", id)
	s.announce(id, models.StatusUpcoming)
	return s.store.GetCompetition(ctx, id)
}

func (s *CompetitionService) transition(ctx context.Context, id string, to models.CompetitionStatus) error {
	c, err := s.store.GetCompetition(ctx, id)
	if err != nil {
		return err
	}
	if !c.Status.CanTransition(to) {
		return fmt.Errorf("%w: cannot move a %s competition to %s", models.ErrConflict, c.Status, to)
	}
	if err := s.store.SetCompetitionStatus(ctx, id, c.Status, to); err != nil {
		return err
	}
	logger.Info.Printf("[transition] competition=%s %s -> %s", id, c.Status, to)
	return nil
}

func (s *CompetitionService) archiveStandings(ctx context.Context, id string) {
	if s.archive == nil {
		return
	}
	body, err := s.results.ExportStandings(ctx, id)
	if err != nil {
		logger.Error.Printf("[archiveStandings] Export failed competition=%s: %v", id, err)
		return
	}
	if err := s.archive.Store(ctx, standingsKey(id, s.now()), body); err != nil {
		logger.Error.Printf("[archiveStandings] Archive failed competition=%s: %v", id, err)
	}
}

func (s *CompetitionService) announce(id string, status models.CompetitionStatus) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastMessage(id, map[string]interface{}{
		"action": "competitionStatus",
		"status": status,
	})
}

func applyCompetitionInput(c *models.Competition, in CompetitionInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", models.ErrValidation)
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return err
	}
	c.Name = name
	c.Date = date
	c.Location = strings.TrimSpace(in.Location)
	c.Description = strings.TrimSpace(in.Description)
	return nil
}

func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", models.ErrValidation)
	}
	if d, err := time.Parse(dateLayout, v); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", models.ErrValidation, v)
	}
	return d, nil
}
