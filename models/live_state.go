// File: models/live_state.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultTimerSeconds is the attempt clock length when none is configured.
const DefaultTimerSeconds = 60

// LiveMeetState is the single shared record of an in-progress competition.
// The meet service owns discipline, round and athlete; the timer owns the
// timer columns.
type LiveMeetState struct {
	ID                string     `gorm:"type:uuid;primary_key" json:"id"`
	CompetitionID     string     `gorm:"type:uuid;not null;uniqueIndex" json:"competitionId"`
	CurrentDiscipline Discipline `gorm:"column:current_lift_type;type:varchar(10);not null;default:'squat'" json:"currentDiscipline"`
	CurrentRound      int        `gorm:"not null;default:1" json:"currentRound"`
	CurrentAthleteID  *string    `gorm:"type:uuid" json:"currentAthleteId,omitempty"`
	TimerSeconds      int        `gorm:"not null;default:60" json:"timerSeconds"`
	IsTimerRunning    bool       `gorm:"not null;default:false" json:"isTimerRunning"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (s *LiveMeetState) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// NewLiveMeetState returns the state a competition starts with: squat,
// round 1, nobody on the platform and a stopped full-length clock.
func NewLiveMeetState(competitionID string, timerSeconds int) *LiveMeetState {
	if timerSeconds <= 0 {
		timerSeconds = DefaultTimerSeconds
	}
	return &LiveMeetState{
		CompetitionID:     competitionID,
		CurrentDiscipline: Squat,
		CurrentRound:      1,
		TimerSeconds:      timerSeconds,
		IsTimerRunning:    false,
	}
}
