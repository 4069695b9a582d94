// Package websocket manages the per-competition attempt clock.
// File: websocket/timer_manager.go

package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go-meet-control/logger"
	"go-meet-control/metrics"
	"go-meet-control/models"
)

var (
	ErrTimerAtZero       = fmt.Errorf("%w: timer is at zero, reset it first", models.ErrValidation)
	ErrUnknownTimerEvent = fmt.Errorf("%w: unknown timer action", models.ErrValidation)
)

const persistTimeout = 5 * time.Second

// TimerSnapshot is what observers see of a clock.
type TimerSnapshot struct {
	TimeLeft int  `json:"timeLeft"`
	Running  bool `json:"running"`
}

// competitionTimer is the in-memory clock of one competition. id changes on
// every start, pause and reset so a stale countdown goroutine can tell it
// has been superseded.
type competitionTimer struct {
	seconds int
	running bool
	id      int
	cancel  context.CancelFunc
}

// TimerManager runs one countdown per competition.
type TimerManager struct {
	Provider       StateProvider // Persists timer columns
	Messenger      Messenger     // Handles message broadcasting
	TickerInterval time.Duration // Interval between ticks
	Duration       int           // Full clock length in seconds
	PersistEvery   int           // Persist on multiples of this many seconds

	mu     sync.Mutex
	timers map[string]*competitionTimer
}

// NewTimerManager builds a manager with the given clock length and
// persistence cadence; zero values fall back to 60s and every 5s.
func NewTimerManager(provider StateProvider, messenger Messenger, duration, persistEvery int, tick time.Duration) *TimerManager {
	return &TimerManager{
		Provider:       provider,
		Messenger:      messenger,
		TickerInterval: tick,
		Duration:       duration,
		PersistEvery:   persistEvery,
	}
}

// --------------------- timer action handler ---------------------

// HandleTimerAction dispatches "startTimer", "pauseTimer" and "resetTimer".
func (tm *TimerManager) HandleTimerAction(action, competitionID string) error {
	logger.Info.Printf("[HandleTimerAction] Received '%s' for competition=%s", action, competitionID)
	switch action {
	case "startTimer":
		return tm.Start(competitionID)
	case "pauseTimer":
		return tm.Pause(competitionID)
	case "resetTimer":
		return tm.Reset(competitionID)
	}
	return fmt.Errorf("%w: %s", ErrUnknownTimerEvent, action)
}

// -------------------- clock control --------------------

// Start runs the clock from its current value. Starting a running clock is a
// no-op; starting a clock at zero is an error.
func (tm *TimerManager) Start(competitionID string) error {
	tm.mu.Lock()
	t := tm.timerLocked(competitionID)
	if t.running {
		tm.mu.Unlock()
		return nil
	}
	if t.seconds <= 0 {
		tm.mu.Unlock()
		return ErrTimerAtZero
	}
	ctx := tm.armLocked(t)
	timerID, seconds := t.id, t.seconds
	tm.mu.Unlock()

	logger.Info.Printf("[Start] Timer started at %ds for competition=%s", seconds, competitionID)
	tm.persist(competitionID, seconds, true)
	tm.Messenger.BroadcastTimeUpdate(competitionID, seconds, true)
	go tm.run(ctx, competitionID, timerID)
	return nil
}

// Pause stops the clock and keeps its value.
func (tm *TimerManager) Pause(competitionID string) error {
	tm.mu.Lock()
	t := tm.timerLocked(competitionID)
	if !t.running {
		tm.mu.Unlock()
		return nil
	}
	tm.stopLocked(t)
	seconds := t.seconds
	tm.mu.Unlock()

	logger.Info.Printf("[Pause] Timer paused at %ds for competition=%s", seconds, competitionID)
	tm.persist(competitionID, seconds, false)
	tm.Messenger.BroadcastTimeUpdate(competitionID, seconds, false)
	return nil
}

// Reset stops the clock and restores the full duration.
func (tm *TimerManager) Reset(competitionID string) error {
	tm.mu.Lock()
	t := tm.timerLocked(competitionID)
	tm.stopLocked(t)
	t.seconds = tm.duration()
	seconds := t.seconds
	tm.mu.Unlock()

	logger.Debug.Printf("[Reset] Timer reset to %ds for competition=%s", seconds, competitionID)
	tm.persist(competitionID, seconds, false)
	tm.Messenger.BroadcastTimeUpdate(competitionID, seconds, false)
	return nil
}

// Snapshot returns the clock of a competition; unknown competitions read as
// a stopped full clock.
func (tm *TimerManager) Snapshot(competitionID string) TimerSnapshot {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if t, ok := tm.timers[competitionID]; ok {
		return TimerSnapshot{TimeLeft: t.seconds, Running: t.running}
	}
	return TimerSnapshot{TimeLeft: tm.duration()}
}

// Restore seeds a clock from the persisted live state after a restart. A
// clock already held in memory wins.
func (tm *TimerManager) Restore(competitionID string, seconds int, running bool) {
	tm.mu.Lock()
	if tm.timers == nil {
		tm.timers = make(map[string]*competitionTimer)
	}
	if _, ok := tm.timers[competitionID]; ok {
		tm.mu.Unlock()
		return
	}
	t := &competitionTimer{seconds: seconds}
	tm.timers[competitionID] = t
	if !running || seconds <= 0 {
		tm.mu.Unlock()
		return
	}
	ctx := tm.armLocked(t)
	timerID := t.id
	tm.mu.Unlock()

	logger.Info.Printf("[Restore] Resuming timer at %ds for competition=%s", seconds, competitionID)
	go tm.run(ctx, competitionID, timerID)
}

// Remove stops and forgets a competition's clock.
func (tm *TimerManager) Remove(competitionID string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if t, ok := tm.timers[competitionID]; ok {
		tm.stopLocked(t)
		delete(tm.timers, competitionID)
	}
}

// -------------------- countdown --------------------

func (tm *TimerManager) run(ctx context.Context, competitionID string, timerID int) {
	ticker := time.NewTicker(tm.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !tm.tick(competitionID, timerID) {
				return
			}
		}
	}
}

// tick advances the clock by one second and reports whether the countdown
// should continue.
func (tm *TimerManager) tick(competitionID string, timerID int) bool {
	tm.mu.Lock()
	t, ok := tm.timers[competitionID]
	if !ok || t.id != timerID || !t.running {
		tm.mu.Unlock()
		return false
	}
	t.seconds--
	expired := t.seconds <= 0
	if expired {
		t.seconds = 0
		tm.stopLocked(t)
	}
	seconds := t.seconds
	tm.mu.Unlock()

	tm.Messenger.BroadcastTimeUpdate(competitionID, seconds, !expired)
	if expired {
		tm.expire(competitionID)
		return false
	}
	if seconds%tm.persistEvery() == 0 {
		tm.persist(competitionID, seconds, true)
	}
	return true
}

// expire runs once per countdown; no attempt is recorded.
func (tm *TimerManager) expire(competitionID string) {
	logger.Info.Printf("[expire] Timer reached 0 for competition=%s", competitionID)
	tm.persist(competitionID, 0, false)
	msg, _ := json.Marshal(map[string]string{"action": "timerExpired", "competitionId": competitionID})
	tm.Messenger.BroadcastRaw(competitionID, msg)
	metrics.TimerExpirations.Inc()
	PublishTimerExpired(competitionID)
}

// -------------------- timer management utilities --------------------

// timerLocked returns the clock of a competition, creating a full stopped
// one on first use. Callers hold tm.mu.
func (tm *TimerManager) timerLocked(competitionID string) *competitionTimer {
	if tm.timers == nil {
		tm.timers = make(map[string]*competitionTimer)
	}
	t, ok := tm.timers[competitionID]
	if !ok {
		t = &competitionTimer{seconds: tm.duration()}
		tm.timers[competitionID] = t
	}
	return t
}

// armLocked marks t running under a fresh id and returns the context its
// countdown goroutine watches. Callers hold tm.mu.
func (tm *TimerManager) armLocked(t *competitionTimer) context.Context {
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.id++
	t.running = true
	return ctx
}

// stopLocked halts t and invalidates its countdown. Callers hold tm.mu.
func (tm *TimerManager) stopLocked(t *competitionTimer) {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.id++
	t.running = false
}

func (tm *TimerManager) persist(competitionID string, seconds int, running bool) {
	if tm.Provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := tm.Provider.SaveTimer(ctx, competitionID, seconds, running); err != nil {
		logger.Error.Printf("[persist] Saving timer failed for competition=%s: %v", competitionID, err)
	}
}

// interval returns the ticker interval (defaults to 1 second if unset).
func (tm *TimerManager) interval() time.Duration {
	if tm.TickerInterval > 0 {
		return tm.TickerInterval
	}
	return 1 * time.Second
}

func (tm *TimerManager) duration() int {
	if tm.Duration > 0 {
		return tm.Duration
	}
	return models.DefaultTimerSeconds
}

func (tm *TimerManager) persistEvery() int {
	if tm.PersistEvery > 0 {
		return tm.PersistEvery
	}
	return 5
}
