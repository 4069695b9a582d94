// File: models/attempt.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxAttempts is the number of attempts each athlete gets per discipline.
const MaxAttempts = 3

// ------------------------ attempt model -----------------------

// Attempt is one lift in the ledger. A slot (competition, athlete,
// discipline, attempt number) holds at most one attempt.
type Attempt struct {
	ID            string     `gorm:"type:uuid;primary_key" json:"id"`
	CompetitionID string     `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_slot;index" json:"competitionId"`
	AthleteID     string     `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_slot" json:"athleteId"`
	Discipline    Discipline `gorm:"column:lift_type;type:varchar(10);not null;uniqueIndex:idx_attempt_slot" json:"discipline"`
	AttemptNumber int        `gorm:"not null;uniqueIndex:idx_attempt_slot" json:"attemptNumber"`
	Weight        float64    `gorm:"not null" json:"weight"`
	Outcome       Outcome    `gorm:"column:result;type:varchar(10);not null;default:'pending'" json:"outcome"`
	CreatedAt     time.Time  `gorm:"index" json:"createdAt"`
}

func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
