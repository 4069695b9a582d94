package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-meet-control/logger"
	"go-meet-control/metrics"
	"go-meet-control/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// singleActiveIndex backs the one-meet-in-progress rule at the database level.
const singleActiveIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_single_active_competition
	ON competitions ((status)) WHERE status = 'in_progress'`

// GormStore implements Store on postgres through gorm.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// OpenGorm connects to postgres and migrates the schema.
func OpenGorm(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(logger.Warn, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", models.ErrPersistence, err)
	}
	s := &GormStore{db: db}
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	logger.Info.Println("[OpenGorm] database connected and migrated")
	return s, nil
}

// NewGormStore wraps an open connection without migrating.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Migrate() error {
	err := s.db.AutoMigrate(
		&models.WeightCategory{},
		&models.Athlete{},
		&models.Competition{},
		&models.Registration{},
		&models.Attempt{},
		&models.LiveMeetState{},
	)
	if err != nil {
		return fmt.Errorf("%w: migrate: %v", models.ErrPersistence, err)
	}
	if err := s.db.Exec(singleActiveIndex).Error; err != nil {
		return fmt.Errorf("%w: single active index: %v", models.ErrPersistence, err)
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return translate(err, "database")
	}
	return translate(sqlDB.PingContext(ctx), "database")
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto the shared error kinds. Errors that
// already carry a kind pass through.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrPersistence):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", models.ErrNotFound, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s already exists", models.ErrConflict, what)
	}
	return fmt.Errorf("%w: %s: %v", models.ErrPersistence, what, err)
}

// ------------------------ athletes -----------------------

func (s *GormStore) CreateAthlete(ctx context.Context, athlete *models.Athlete) error {
	defer metrics.RecordDBOperation("create", "athletes", time.Now())
	return translate(s.db.WithContext(ctx).Create(athlete).Error, "athlete")
}

func (s *GormStore) GetAthlete(ctx context.Context, id string) (*models.Athlete, error) {
	defer metrics.RecordDBOperation("get", "athletes", time.Now())
	var a models.Athlete
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err, "athlete")
	}
	return &a, nil
}

func (s *GormStore) ListAthletes(ctx context.Context) ([]models.Athlete, error) {
	defer metrics.RecordDBOperation("list", "athletes", time.Now())
	var out []models.Athlete
	err := s.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, translate(err, "athletes")
}

func (s *GormStore) UpdateAthlete(ctx context.Context, athlete *models.Athlete) error {
	defer metrics.RecordDBOperation("update", "athletes", time.Now())
	res := s.db.WithContext(ctx).Model(&models.Athlete{}).Where("id = ?", athlete.ID).
		Select("name", "club", "gender", "age", "body_weight", "category_id",
			"squat_opener", "bench_opener", "deadlift_opener").
		Updates(athlete)
	if res.Error != nil {
		return translate(res.Error, "athlete")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: athlete", models.ErrNotFound)
	}
	return nil
}

func (s *GormStore) DeleteAthlete(ctx context.Context, id string) error {
	defer metrics.RecordDBOperation("delete", "athletes", time.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("athlete_id = ?", id).Delete(&models.Attempt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("athlete_id = ?", id).Delete(&models.Registration{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Athlete{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err, "athlete")
}

// ----------------------- categories ----------------------

func (s *GormStore) CreateCategory(ctx context.Context, category *models.WeightCategory) error {
	defer metrics.RecordDBOperation("create", "weight_categories", time.Now())
	return translate(s.db.WithContext(ctx).Create(category).Error, "weight category")
}

func (s *GormStore) GetCategory(ctx context.Context, id string) (*models.WeightCategory, error) {
	defer metrics.RecordDBOperation("get", "weight_categories", time.Now())
	var c models.WeightCategory
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err, "weight category")
	}
	return &c, nil
}

func (s *GormStore) ListCategories(ctx context.Context) ([]models.WeightCategory, error) {
	defer metrics.RecordDBOperation("list", "weight_categories", time.Now())
	var out []models.WeightCategory
	err := s.db.WithContext(ctx).Order("gender ASC").Order("max_weight ASC NULLS LAST").Find(&out).Error
	return out, translate(err, "weight categories")
}

// ---------------------- competitions ---------------------

func (s *GormStore) CreateCompetition(ctx context.Context, competition *models.Competition) error {
	defer metrics.RecordDBOperation("create", "competitions", time.Now())
	return translate(s.db.WithContext(ctx).Create(competition).Error, "competition")
}

func (s *GormStore) GetCompetition(ctx context.Context, id string) (*models.Competition, error) {
	defer metrics.RecordDBOperation("get", "competitions", time.Now())
	var c models.Competition
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err, "competition")
	}
	return &c, nil
}

func (s *GormStore) ListCompetitions(ctx context.Context) ([]models.Competition, error) {
	defer metrics.RecordDBOperation("list", "competitions", time.Now())
	var out []models.Competition
	err := s.db.WithContext(ctx).Order("date DESC").Find(&out).Error
	return out, translate(err, "competitions")
}

func (s *GormStore) UpdateCompetition(ctx context.Context, competition *models.Competition) error {
	defer metrics.RecordDBOperation("update", "competitions", time.Now())
	res := s.db.WithContext(ctx).Model(&models.Competition{}).Where("id = ?", competition.ID).
		Select("name", "date", "location", "description").
		Updates(competition)
	if res.Error != nil {
		return translate(res.Error, "competition")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: competition", models.ErrNotFound)
	}
	return nil
}

func (s *GormStore) ActiveCompetition(ctx context.Context) (*models.Competition, error) {
	defer metrics.RecordDBOperation("get", "competitions", time.Now())
	var c models.Competition
	err := s.db.WithContext(ctx).Where("status = ?", models.StatusInProgress).First(&c).Error
	if err != nil {
		return nil, translate(err, "active competition")
	}
	return &c, nil
}

func (s *GormStore) StartCompetition(ctx context.Context, id string, live *models.LiveMeetState) error {
	defer metrics.RecordDBOperation("start", "competitions", time.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Competition
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", id).Error; err != nil {
			return err
		}
		if !c.Status.CanTransition(models.StatusInProgress) {
			return fmt.Errorf("%w: cannot start a %s competition", models.ErrConflict, c.Status)
		}
		var running int64
		if err := tx.Model(&models.Competition{}).
			Where("status = ? AND id <> ?", models.StatusInProgress, id).
			Count(&running).Error; err != nil {
			return err
		}
		if running > 0 {
			return ErrAnotherCompetitionActive
		}
		if err := tx.Model(&models.Competition{}).Where("id = ?", id).
			Update("status", models.StatusInProgress).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAnotherCompetitionActive
			}
			return err
		}
		if err := tx.Where("competition_id = ?", id).Delete(&models.LiveMeetState{}).Error; err != nil {
			return err
		}
		return tx.Create(live).Error
	})
	return translate(err, "competition")
}

func (s *GormStore) SetCompetitionStatus(ctx context.Context, id string, from, to models.CompetitionStatus) error {
	defer metrics.RecordDBOperation("update", "competitions", time.Now())
	res := s.db.WithContext(ctx).Model(&models.Competition{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return translate(res.Error, "competition")
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetCompetition(ctx, id); err != nil {
			return err
		}
		return ErrStatusChanged
	}
	return nil
}

func (s *GormStore) ResetCompetition(ctx context.Context, id string) error {
	defer metrics.RecordDBOperation("reset", "competitions", time.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Competition
		if err := tx.First(&c, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("competition_id = ?", id).Delete(&models.Attempt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("competition_id = ?", id).Delete(&models.Registration{}).Error; err != nil {
			return err
		}
		if err := tx.Where("competition_id = ?", id).Delete(&models.LiveMeetState{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Competition{}).Where("id = ?", id).
			Update("status", models.StatusUpcoming).Error
	})
	return translate(err, "competition")
}

// ---------------------- registrations --------------------

func (s *GormStore) CreateRegistration(ctx context.Context, registration *models.Registration) error {
	defer metrics.RecordDBOperation("create", "registrations", time.Now())
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(registration).Error, "registration")
}

func (s *GormStore) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	defer metrics.RecordDBOperation("get", "registrations", time.Now())
	var r models.Registration
	err := s.db.WithContext(ctx).Preload("Athlete").Preload("Category").First(&r, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "registration")
	}
	return &r, nil
}

func (s *GormStore) FindRegistration(ctx context.Context, competitionID, athleteID string) (*models.Registration, error) {
	defer metrics.RecordDBOperation("get", "registrations", time.Now())
	var r models.Registration
	err := s.db.WithContext(ctx).Preload("Athlete").Preload("Category").
		Where("competition_id = ? AND athlete_id = ?", competitionID, athleteID).
		First(&r).Error
	if err != nil {
		return nil, translate(err, "registration")
	}
	return &r, nil
}

func (s *GormStore) ListRegistrations(ctx context.Context, competitionID string) ([]models.Registration, error) {
	defer metrics.RecordDBOperation("list", "registrations", time.Now())
	var out []models.Registration
	err := s.db.WithContext(ctx).Preload("Athlete").Preload("Category").
		Where("competition_id = ?", competitionID).
		Order("lot_number ASC NULLS LAST").Order("registered_at ASC").
		Find(&out).Error
	return out, translate(err, "registrations")
}

func (s *GormStore) ListRegistrationsByAthlete(ctx context.Context, athleteID string) ([]models.Registration, error) {
	defer metrics.RecordDBOperation("list", "registrations", time.Now())
	var out []models.Registration
	err := s.db.WithContext(ctx).Where("athlete_id = ?", athleteID).Order("registered_at ASC").Find(&out).Error
	return out, translate(err, "registrations")
}

func (s *GormStore) DeleteRegistration(ctx context.Context, id string) error {
	defer metrics.RecordDBOperation("delete", "registrations", time.Now())
	res := s.db.WithContext(ctx).Delete(&models.Registration{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "registration")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: registration", models.ErrNotFound)
	}
	return nil
}

func (s *GormStore) UpdateLotNumbers(ctx context.Context, competitionID string, lots map[string]int) error {
	defer metrics.RecordDBOperation("update", "registrations", time.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, lot := range lots {
			err := tx.Model(&models.Registration{}).
				Where("id = ? AND competition_id = ?", id, competitionID).
				Update("lot_number", lot).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err, "lot numbers")
}

func (s *GormStore) RegisterWithLots(ctx context.Context, registration *models.Registration, relot LotFunc) error {
	defer metrics.RecordDBOperation("register", "registrations", time.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Competition
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", registration.CompetitionID).Error; err != nil {
			return err
		}
		if c.Status != models.StatusUpcoming {
			return ErrStatusChanged
		}
		if err := tx.Omit(clause.Associations).Create(registration).Error; err != nil {
			return err
		}
		var regs []models.Registration
		if err := tx.Preload("Athlete").Preload("Category").
			Where("competition_id = ?", registration.CompetitionID).
			Order("lot_number ASC NULLS LAST").Order("registered_at ASC").
			Find(&regs).Error; err != nil {
			return err
		}
		for id, lot := range relot(regs) {
			if err := tx.Model(&models.Registration{}).Where("id = ?", id).
				Update("lot_number", lot).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err, "registration")
}

// ------------------------ attempts -----------------------

func (s *GormStore) CreateAttempt(ctx context.Context, attempt *models.Attempt) error {
	defer metrics.RecordDBOperation("create", "attempts", time.Now())
	return translate(s.db.WithContext(ctx).Create(attempt).Error, "attempt")
}

func (s *GormStore) GetAttempt(ctx context.Context, id string) (*models.Attempt, error) {
	defer metrics.RecordDBOperation("get", "attempts", time.Now())
	var a models.Attempt
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err, "attempt")
	}
	return &a, nil
}

func (s *GormStore) ListAttempts(ctx context.Context, competitionID string) ([]models.Attempt, error) {
	defer metrics.RecordDBOperation("list", "attempts", time.Now())
	var out []models.Attempt
	err := s.db.WithContext(ctx).Where("competition_id = ?", competitionID).
		Order("created_at ASC").Order("attempt_number ASC").
		Find(&out).Error
	return out, translate(err, "attempts")
}

func (s *GormStore) ListAttemptsFor(ctx context.Context, competitionID, athleteID string, discipline models.Discipline) ([]models.Attempt, error) {
	defer metrics.RecordDBOperation("list", "attempts", time.Now())
	var out []models.Attempt
	err := s.db.WithContext(ctx).
		Where("competition_id = ? AND athlete_id = ? AND lift_type = ?", competitionID, athleteID, discipline).
		Order("attempt_number ASC").
		Find(&out).Error
	return out, translate(err, "attempts")
}

func (s *GormStore) ResolveAttemptOutcome(ctx context.Context, id string, outcome models.Outcome) error {
	defer metrics.RecordDBOperation("update", "attempts", time.Now())
	res := s.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("id = ? AND result = ?", id, models.OutcomePending).
		Update("result", outcome)
	if res.Error != nil {
		return translate(res.Error, "attempt")
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetAttempt(ctx, id); err != nil {
			return err
		}
		return ErrOutcomeResolved
	}
	return nil
}

// ----------------------- live state ----------------------

func (s *GormStore) GetLiveState(ctx context.Context, competitionID string) (*models.LiveMeetState, error) {
	defer metrics.RecordDBOperation("get", "live_meet_states", time.Now())
	var st models.LiveMeetState
	if err := s.db.WithContext(ctx).First(&st, "competition_id = ?", competitionID).Error; err != nil {
		return nil, translate(err, "live state")
	}
	return &st, nil
}

func (s *GormStore) SaveProgress(ctx context.Context, competitionID string, discipline models.Discipline, round int, athleteID *string) error {
	defer metrics.RecordDBOperation("update", "live_meet_states", time.Now())
	return s.updateLive(ctx, competitionID, map[string]interface{}{
		"current_lift_type":  discipline,
		"current_round":      round,
		"current_athlete_id": athleteID,
	})
}

func (s *GormStore) SaveTimer(ctx context.Context, competitionID string, seconds int, running bool) error {
	defer metrics.RecordDBOperation("update", "live_meet_states", time.Now())
	return s.updateLive(ctx, competitionID, map[string]interface{}{
		"timer_seconds":    seconds,
		"is_timer_running": running,
	})
}

func (s *GormStore) updateLive(ctx context.Context, competitionID string, values map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.LiveMeetState{}).
		Where("competition_id = ?", competitionID).
		Updates(values)
	if res.Error != nil {
		return translate(res.Error, "live state")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: live state", models.ErrNotFound)
	}
	return nil
}
