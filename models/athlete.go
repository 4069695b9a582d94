// File: models/athlete.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ----------------------- athlete model -----------------------

// Athlete is a lifter with declared opening weights for each discipline.
type Athlete struct {
	ID             string    `gorm:"type:uuid;primary_key" json:"id"`
	Name           string    `gorm:"type:varchar(120);not null" json:"name"`
	Club           string    `gorm:"type:varchar(120);not null;default:''" json:"club"`
	Gender         Gender    `gorm:"type:varchar(10);not null" json:"gender"`
	Age            int       `gorm:"not null;default:0" json:"age"`
	BodyWeight     float64   `gorm:"not null;default:0" json:"bodyWeight"`
	CategoryID     *string   `gorm:"type:uuid" json:"categoryId,omitempty"`
	SquatOpener    *float64  `json:"squatOpener,omitempty"`
	BenchOpener    *float64  `json:"benchOpener,omitempty"`
	DeadliftOpener *float64  `json:"deadliftOpener,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// BeforeCreate assigns an id when the caller did not.
func (a *Athlete) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Opener returns the declared opener for d, or nil when none was declared.
func (a *Athlete) Opener(d Discipline) *float64 {
	switch d {
	case Squat:
		return a.SquatOpener
	case Bench:
		return a.BenchOpener
	case Deadlift:
		return a.DeadliftOpener
	}
	return nil
}

// OpenerWeight is Opener with an undeclared opener read as 0.
func (a *Athlete) OpenerWeight(d Discipline) float64 {
	if w := a.Opener(d); w != nil {
		return *w
	}
	return 0
}

// -------------------- weight category model --------------------

// WeightCategory is a body-weight class within a gender.
type WeightCategory struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"type:varchar(60);not null" json:"name"`
	Gender    Gender    `gorm:"type:varchar(10);not null" json:"gender"`
	MinWeight *float64  `json:"minWeight,omitempty"`
	MaxWeight *float64  `json:"maxWeight,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *WeightCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
