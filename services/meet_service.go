// File: services/meet_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go-meet-control/engine"
	"go-meet-control/logger"
	"go-meet-control/metrics"
	"go-meet-control/models"
	"go-meet-control/store"
	"go-meet-control/websocket"
)

var ErrNotInProgress = fmt.Errorf("%w: competition is not in progress", models.ErrConflict)

// Timer is the attempt clock as the meet service drives it.
type Timer interface {
	Start(competitionID string) error
	Pause(competitionID string) error
	Reset(competitionID string) error
	Snapshot(competitionID string) websocket.TimerSnapshot
	Restore(competitionID string, seconds int, running bool)
	Remove(competitionID string)
}

// Notifier pushes messages to a competition's observers.
type Notifier interface {
	BroadcastMessage(competitionID string, msg map[string]interface{})
}

// Snapshotter builds the observer view of a competition.
type Snapshotter interface {
	Snapshot(ctx context.Context, competitionID string) (interface{}, error)
}

// ControlView is what the operator console renders after every command.
type ControlView struct {
	CompetitionID string `json:"competitionId"`
	engine.State
	NextAttemptNumber int                     `json:"nextAttemptNumber"`
	Timer             websocket.TimerSnapshot `json:"timer"`
	Events            []engine.Event          `json:"events,omitempty"`
}

type MeetServiceInterface interface {
	Control(ctx context.Context, competitionID string) (*ControlView, error)
	Select(ctx context.Context, competitionID, athleteID string) (*ControlView, error)
	RecordResult(ctx context.Context, competitionID string, outcome models.Outcome) (*ControlView, error)
	SubmitWeight(ctx context.Context, competitionID string, weight float64, outcome models.Outcome) (*ControlView, error)
	CancelPending(ctx context.Context, competitionID string) (*ControlView, error)
	SetDiscipline(ctx context.Context, competitionID string, d models.Discipline) (*ControlView, error)
	RecordAttempt(ctx context.Context, in AttemptInput) (*models.Attempt, error)
	StartTimer(ctx context.Context, competitionID string) (websocket.TimerSnapshot, error)
	PauseTimer(ctx context.Context, competitionID string) (websocket.TimerSnapshot, error)
	ResetTimer(ctx context.Context, competitionID string) (websocket.TimerSnapshot, error)
	Invalidate(competitionID string)
	Close(competitionID string)
}

// MeetService runs the control panel of in-progress competitions. It is the
// single writer of the live progress columns; commands for all competitions
// are serialised on one lock.
type MeetService struct {
	store     store.Store
	ledger    *LedgerService
	timer     Timer
	notifier  Notifier
	snapshots Snapshotter

	mu       sync.Mutex
	sessions map[string]*engine.State
}

var _ MeetServiceInterface = (*MeetService)(nil)

func NewMeetService(s store.Store, ledger *LedgerService, timer Timer, notifier Notifier, snapshots Snapshotter) *MeetService {
	return &MeetService{
		store:     s,
		ledger:    ledger,
		timer:     timer,
		notifier:  notifier,
		snapshots: snapshots,
		sessions:  make(map[string]*engine.State),
	}
}

// Control returns the current control state, loading it on first use.
func (s *MeetService) Control(ctx context.Context, competitionID string) (*ControlView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.sessionLocked(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	return s.view(competitionID, *st, nil), nil
}

func (s *MeetService) Select(ctx context.Context, competitionID, athleteID string) (*ControlView, error) {
	return s.dispatch(ctx, competitionID, engine.Command{Type: engine.CmdSelectAthlete, AthleteID: athleteID})
}

func (s *MeetService) RecordResult(ctx context.Context, competitionID string, outcome models.Outcome) (*ControlView, error) {
	return s.dispatch(ctx, competitionID, engine.Command{Type: engine.CmdRecordResult, Outcome: outcome})
}

func (s *MeetService) SubmitWeight(ctx context.Context, competitionID string, weight float64, outcome models.Outcome) (*ControlView, error) {
	return s.dispatch(ctx, competitionID, engine.Command{Type: engine.CmdSubmitWeight, Weight: weight, Outcome: outcome})
}

func (s *MeetService) CancelPending(ctx context.Context, competitionID string) (*ControlView, error) {
	return s.dispatch(ctx, competitionID, engine.Command{Type: engine.CmdCancelPending})
}

func (s *MeetService) SetDiscipline(ctx context.Context, competitionID string, d models.Discipline) (*ControlView, error) {
	return s.dispatch(ctx, competitionID, engine.Command{Type: engine.CmdSetDiscipline, Discipline: d})
}

// dispatch applies cmd, persists what it produced and only then adopts the
// new state. A failed write leaves the previous state, including a staged
// attempt, in place for a retry.
func (s *MeetService) dispatch(ctx context.Context, competitionID string, cmd engine.Command) (*ControlView, error) {
	s.mu.Lock()
	st, err := s.sessionLocked(ctx, competitionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	events, next, err := engine.Apply(*st, cmd)
	if err != nil {
		s.mu.Unlock()
		logger.Debug.Printf("[dispatch] %s rejected competition=%s: %v", cmd.Type, competitionID, err)
		return nil, err
	}

	committed := false
	for i, e := range events {
		if e.Type != engine.EvtAttemptCommitted {
			continue
		}
		a := *e.Attempt
		a.CompetitionID = competitionID
		stored, err := s.ledger.insert(ctx, a)
		if err != nil {
			if errors.Is(err, models.ErrConflict) {
				// The ledger moved under us; replay on the next command.
				delete(s.sessions, competitionID)
			}
			s.mu.Unlock()
			return nil, asPersistence(err)
		}
		next.Ledger[len(next.Ledger)-1] = *stored
		events[i].Attempt = stored
		committed = true
	}

	if err := s.store.SaveProgress(ctx, competitionID, next.Discipline, next.Round, activeID(next)); err != nil {
		if !committed {
			s.mu.Unlock()
			return nil, asPersistence(err)
		}
		// The ledger is the source of truth; the next command rewrites progress.
		logger.Error.Printf("[dispatch] Saving progress failed after commit competition=%s: %v", competitionID, err)
	}
	*st = next
	s.mu.Unlock()

	s.react(competitionID, events)
	s.publish(ctx, competitionID)
	return s.view(competitionID, next, events), nil
}

// RecordAttempt writes an attempt from outside the control panel. While the
// competition runs the lift then moves the rotation, resets the clock and
// reaches observers exactly like a lift judged from the console.
func (s *MeetService) RecordAttempt(ctx context.Context, in AttemptInput) (*models.Attempt, error) {
	s.mu.Lock()
	st, err := s.sessionLocked(ctx, in.CompetitionID)
	if errors.Is(err, ErrNotInProgress) {
		s.mu.Unlock()
		return s.ledger.RecordAttempt(ctx, in)
	}
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	a, err := s.ledger.RecordAttempt(ctx, in)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	events, next, err := engine.Record(*st, *a)
	if err != nil {
		// The stored ledger is ahead of the session; replay on the next command.
		logger.Warn.Printf("[RecordAttempt] Session out of step competition=%s: %v", in.CompetitionID, err)
		delete(s.sessions, in.CompetitionID)
		s.mu.Unlock()
		s.react(in.CompetitionID, []engine.Event{{Type: engine.EvtTimerReset}})
		s.publish(ctx, in.CompetitionID)
		return a, nil
	}
	if err := s.store.SaveProgress(ctx, in.CompetitionID, next.Discipline, next.Round, activeID(next)); err != nil {
		logger.Error.Printf("[RecordAttempt] Saving progress failed after commit competition=%s: %v", in.CompetitionID, err)
	}
	*st = next
	s.mu.Unlock()

	s.react(in.CompetitionID, events)
	s.publish(ctx, in.CompetitionID)
	return a, nil
}

// react runs the side effects of committed events.
func (s *MeetService) react(competitionID string, events []engine.Event) {
	for _, e := range events {
		switch e.Type {
		case engine.EvtTimerReset:
			if err := s.timer.Reset(competitionID); err != nil {
				logger.Warn.Printf("[react] Timer reset failed competition=%s: %v", competitionID, err)
			}
		case engine.EvtDisciplineAdvanced:
			metrics.DisciplineAdvances.WithLabelValues(string(e.Discipline)).Inc()
			logger.Info.Printf("[react] Discipline advanced to %s competition=%s", e.Discipline, competitionID)
		case engine.EvtMeetCompleted:
			logger.Info.Printf("[react] All disciplines complete competition=%s", competitionID)
		}
	}
}

func (s *MeetService) StartTimer(ctx context.Context, competitionID string) (websocket.TimerSnapshot, error) {
	return s.timerAction(ctx, competitionID, s.timer.Start)
}

func (s *MeetService) PauseTimer(ctx context.Context, competitionID string) (websocket.TimerSnapshot, error) {
	return s.timerAction(ctx, competitionID, s.timer.Pause)
}

func (s *MeetService) ResetTimer(ctx context.Context, competitionID string) (websocket.TimerSnapshot, error) {
	return s.timerAction(ctx, competitionID, s.timer.Reset)
}

func (s *MeetService) timerAction(ctx context.Context, competitionID string, action func(string) error) (websocket.TimerSnapshot, error) {
	s.mu.Lock()
	_, err := s.sessionLocked(ctx, competitionID)
	s.mu.Unlock()
	if err != nil {
		return websocket.TimerSnapshot{}, err
	}
	if err := action(competitionID); err != nil {
		return websocket.TimerSnapshot{}, err
	}
	return s.timer.Snapshot(competitionID), nil
}

// Invalidate drops the cached control state; the next command replays it
// from the ledger.
func (s *MeetService) Invalidate(competitionID string) {
	s.mu.Lock()
	delete(s.sessions, competitionID)
	s.mu.Unlock()
}

// Close drops the control state and the clock of a competition that is no
// longer running.
func (s *MeetService) Close(competitionID string) {
	s.Invalidate(competitionID)
	s.timer.Remove(competitionID)
	logger.Info.Printf("[Close] Meet session closed competition=%s", competitionID)
}

// sessionLocked returns the cached state or rebuilds it: lot order from the
// registrations, rotation from the ledger, the operator's manual discipline
// and selection from the live state. Callers hold s.mu.
func (s *MeetService) sessionLocked(ctx context.Context, competitionID string) (*engine.State, error) {
	if st, ok := s.sessions[competitionID]; ok {
		return st, nil
	}
	comp, err := s.store.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	if comp.Status != models.StatusInProgress {
		return nil, ErrNotInProgress
	}
	regs, err := s.store.ListRegistrations(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	ledger, err := s.store.ListAttempts(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	st, err := engine.Replay(liftersFrom(regs), ledger)
	if err != nil {
		logger.Error.Printf("[sessionLocked] Ledger replay failed competition=%s: %v", competitionID, err)
		return nil, err
	}

	live, err := s.store.GetLiveState(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	st = resumeManual(st, live)
	s.timer.Restore(competitionID, live.TimerSeconds, live.IsTimerRunning)

	s.sessions[competitionID] = &st
	logger.Info.Printf("[sessionLocked] Replayed %d attempts competition=%s discipline=%s round=%d",
		len(ledger), competitionID, st.Discipline, st.Round)
	return &st, nil
}

// resumeManual re-applies a discipline jump or athlete selection the
// operator made that left no trace in the ledger. Saved progress can lag the
// ledger when a write failed after a commit: a saved discipline that is
// already complete, or a saved lifter who made the last recorded lift or has
// nothing left, is stale and the replayed state wins.
func resumeManual(st engine.State, live *models.LiveMeetState) engine.State {
	if st.Phase == engine.PhaseMeetComplete {
		return st
	}
	if d := live.CurrentDiscipline; d.Valid() && d != st.Discipline {
		if st.DisciplineComplete(d) {
			return st
		}
		if _, next, err := engine.Apply(st, engine.Command{Type: engine.CmdSetDiscipline, Discipline: d}); err == nil {
			st = next
		}
	}
	if live.CurrentAthleteID == nil || *live.CurrentAthleteID == st.Active {
		return st
	}
	id := *live.CurrentAthleteID
	if st.AttemptsLeft(id) <= 0 || liftedLast(st.Ledger, id) {
		return st
	}
	if _, next, err := engine.Apply(st, engine.Command{Type: engine.CmdSelectAthlete, AthleteID: id}); err == nil {
		st = next
	}
	return st
}

func liftedLast(ledger []models.Attempt, athleteID string) bool {
	return len(ledger) > 0 && ledger[len(ledger)-1].AthleteID == athleteID
}

func (s *MeetService) publish(ctx context.Context, competitionID string) {
	if s.notifier == nil || s.snapshots == nil {
		return
	}
	snap, err := s.snapshots.Snapshot(ctx, competitionID)
	if err != nil {
		logger.Warn.Printf("[publish] No snapshot for competition=%s: %v", competitionID, err)
		return
	}
	s.notifier.BroadcastMessage(competitionID, map[string]interface{}{
		"action": "stateUpdate",
		"state":  snap,
	})
}

func (s *MeetService) view(competitionID string, st engine.State, events []engine.Event) *ControlView {
	return &ControlView{
		CompetitionID:     competitionID,
		State:             st,
		NextAttemptNumber: st.NextAttemptNumber(),
		Timer:             s.timer.Snapshot(competitionID),
		Events:            events,
	}
}

// liftersFrom maps registrations in lot order to rotation entries.
func liftersFrom(regs []models.Registration) []engine.Lifter {
	lifters := make([]engine.Lifter, 0, len(regs))
	for _, r := range regs {
		l := engine.Lifter{AthleteID: r.AthleteID, Openers: make(map[models.Discipline]float64)}
		if r.LotNumber != nil {
			l.LotNumber = *r.LotNumber
		}
		if r.Athlete != nil {
			for _, d := range models.Disciplines {
				l.Openers[d] = r.Athlete.OpenerWeight(d)
			}
		}
		lifters = append(lifters, l)
	}
	return lifters
}

func activeID(st engine.State) *string {
	if st.Active == "" {
		return nil
	}
	id := st.Active
	return &id
}

// asPersistence keeps classified errors and marks anything else as a
// storage failure.
func asPersistence(err error) error {
	for _, kind := range []error{models.ErrValidation, models.ErrNotFound, models.ErrConflict, models.ErrPersistence} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", models.ErrPersistence, err)
}
