// File: models/competition.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ------------------------ competition model -----------------------

// Competition is a powerlifting meet.
type Competition struct {
	ID          string            `gorm:"type:uuid;primary_key" json:"id"`
	Name        string            `gorm:"type:varchar(120);not null" json:"name"`
	Date        time.Time         `gorm:"not null" json:"date"`
	Location    string            `gorm:"type:varchar(120);not null;default:''" json:"location"`
	Description string            `gorm:"type:text" json:"description,omitempty"`
	Status      CompetitionStatus `gorm:"type:varchar(20);not null;default:'upcoming';index" json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func (c *Competition) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusUpcoming
	}
	return nil
}

// ----------------------- registration model -----------------------

// Registration binds an athlete to a competition and carries the lot number.
type Registration struct {
	ID            string          `gorm:"type:uuid;primary_key" json:"id"`
	CompetitionID string          `gorm:"type:uuid;not null;uniqueIndex:idx_registration_athlete" json:"competitionId"`
	AthleteID     string          `gorm:"type:uuid;not null;uniqueIndex:idx_registration_athlete" json:"athleteId"`
	CategoryID    *string         `gorm:"type:uuid" json:"categoryId,omitempty"`
	LotNumber     *int            `json:"lotNumber,omitempty"`
	WeighInWeight *float64        `json:"weighInWeight,omitempty"`
	RegisteredAt  time.Time       `gorm:"autoCreateTime" json:"registeredAt"`
	Athlete       *Athlete        `gorm:"foreignKey:AthleteID;constraint:OnDelete:CASCADE" json:"athlete,omitempty"`
	Category      *WeightCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Competition   *Competition    `gorm:"foreignKey:CompetitionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
