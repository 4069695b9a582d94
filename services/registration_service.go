// Package services holds the application services behind the HTTP handlers.
// File: services/registration_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"go-meet-control/engine"
	"go-meet-control/logger"
	"go-meet-control/models"
	"go-meet-control/store"
)

var ErrLotsFrozen = fmt.Errorf("%w: registrations and lots are frozen once the competition starts", models.ErrConflict)

// RegistrationInput is the body of a registration request.
type RegistrationInput struct {
	AthleteID     string   `json:"athleteId"`
	CategoryID    *string  `json:"categoryId,omitempty"`
	WeighInWeight *float64 `json:"weighInWeight,omitempty"`
}

type RegistrationServiceInterface interface {
	Register(ctx context.Context, competitionID string, in RegistrationInput) (*models.Registration, error)
	Delete(ctx context.Context, registrationID string) error
	AssignLot(ctx context.Context, competitionID string, opener *float64) (int, error)
	RecalculateAllLots(ctx context.Context, competitionID string) error
}

// RegistrationService registers athletes and keeps lot numbers dense.
type RegistrationService struct {
	store store.Store
}

var _ RegistrationServiceInterface = (*RegistrationService)(nil)

func NewRegistrationService(s store.Store) *RegistrationService {
	return &RegistrationService{store: s}
}

// Register adds an athlete to an upcoming competition and re-ranks lots in
// the same transaction.
func (s *RegistrationService) Register(ctx context.Context, competitionID string, in RegistrationInput) (*models.Registration, error) {
	if in.AthleteID == "" {
		return nil, fmt.Errorf("%w: athleteId is required", models.ErrValidation)
	}
	if in.WeighInWeight != nil && *in.WeighInWeight <= 0 {
		return nil, fmt.Errorf("%w: weigh-in weight must be positive", models.ErrValidation)
	}
	if err := s.requireUpcoming(ctx, competitionID); err != nil {
		return nil, err
	}
	athlete, err := s.store.GetAthlete(ctx, in.AthleteID)
	if err != nil {
		return nil, err
	}
	categoryID := in.CategoryID
	if categoryID == nil {
		categoryID = athlete.CategoryID
	}
	if categoryID != nil {
		if _, err := s.store.GetCategory(ctx, *categoryID); err != nil {
			return nil, err
		}
	}

	lot, err := s.AssignLot(ctx, competitionID, athlete.SquatOpener)
	if err != nil {
		return nil, err
	}
	reg := &models.Registration{
		CompetitionID: competitionID,
		AthleteID:     athlete.ID,
		CategoryID:    categoryID,
		LotNumber:     &lot,
		WeighInWeight: in.WeighInWeight,
	}
	if err := s.store.RegisterWithLots(ctx, reg, lotNumbers); err != nil {
		if errors.Is(err, store.ErrStatusChanged) {
			return nil, ErrLotsFrozen
		}
		return nil, err
	}
	logger.Info.Printf("[Register] athlete=%s registered competition=%s provisional lot=%d", athlete.ID, competitionID, lot)
	return s.store.GetRegistration(ctx, reg.ID)
}

// Delete removes a registration from an upcoming competition and re-ranks lots.
func (s *RegistrationService) Delete(ctx context.Context, registrationID string) error {
	reg, err := s.store.GetRegistration(ctx, registrationID)
	if err != nil {
		return err
	}
	if err := s.requireUpcoming(ctx, reg.CompetitionID); err != nil {
		return err
	}
	if err := s.store.DeleteRegistration(ctx, registrationID); err != nil {
		return err
	}
	logger.Info.Printf("[Delete] registration=%s removed competition=%s", registrationID, reg.CompetitionID)
	return s.RecalculateAllLots(ctx, reg.CompetitionID)
}

// AssignLot returns the lot a registrant with opener would get now. It does
// not write anything.
func (s *RegistrationService) AssignLot(ctx context.Context, competitionID string, opener *float64) (int, error) {
	regs, err := s.store.ListRegistrations(ctx, competitionID)
	if err != nil {
		return 0, err
	}
	return engine.AssignLot(lotEntries(regs), opener), nil
}

// RecalculateAllLots rewrites every lot of an upcoming competition from the
// current squat openers.
func (s *RegistrationService) RecalculateAllLots(ctx context.Context, competitionID string) error {
	if err := s.requireUpcoming(ctx, competitionID); err != nil {
		return err
	}
	regs, err := s.store.ListRegistrations(ctx, competitionID)
	if err != nil {
		return err
	}
	lots := lotNumbers(regs)
	if err := s.store.UpdateLotNumbers(ctx, competitionID, lots); err != nil {
		return err
	}
	logger.Debug.Printf("[RecalculateAllLots] %d lots rewritten competition=%s", len(lots), competitionID)
	return nil
}

func (s *RegistrationService) requireUpcoming(ctx context.Context, competitionID string) error {
	c, err := s.store.GetCompetition(ctx, competitionID)
	if err != nil {
		return err
	}
	if c.Status != models.StatusUpcoming {
		return ErrLotsFrozen
	}
	return nil
}

// lotNumbers ranks regs from their squat openers.
func lotNumbers(regs []models.Registration) map[string]int {
	lots := make(map[string]int, len(regs))
	for _, a := range engine.RecalculateLots(lotEntries(regs)) {
		lots[a.RegistrationID] = a.LotNumber
	}
	return lots
}

// lotEntries keeps the store's lot order so equal keys registered in the
// same instant keep their previous ranking.
func lotEntries(regs []models.Registration) []engine.LotEntry {
	entries := make([]engine.LotEntry, 0, len(regs))
	for _, r := range regs {
		var opener *float64
		if r.Athlete != nil {
			opener = r.Athlete.SquatOpener
		}
		entries = append(entries, engine.LotEntry{
			RegistrationID: r.ID,
			SquatOpener:    opener,
			RegisteredAt:   r.RegisteredAt,
		})
	}
	return entries
}
