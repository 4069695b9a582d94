// File: services/results_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"go-meet-control/engine"
	"go-meet-control/logger"
	"go-meet-control/models"
	"go-meet-control/store"
	"go-meet-control/websocket"
)

// LiveAthlete is the lifter on the platform as observers see them.
type LiveAthlete struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Club      string           `json:"club"`
	LotNumber *int             `json:"lotNumber,omitempty"`
	Category  string           `json:"category,omitempty"`
	Opener    *float64         `json:"opener,omitempty"`
	Attempts  []models.Attempt `json:"attempts"`
}

// LiveSnapshot is the persisted live state of a competition, the payload of
// every stateUpdate push.
type LiveSnapshot struct {
	CompetitionID   string                   `json:"competitionId"`
	CompetitionName string                   `json:"competitionName"`
	Status          models.CompetitionStatus `json:"status"`
	Discipline      models.Discipline        `json:"currentDiscipline"`
	Round           int                      `json:"currentRound"`
	CurrentAthlete  *LiveAthlete             `json:"currentAthlete,omitempty"`
	Timer           websocket.TimerSnapshot  `json:"timer"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

// Board is everything a scoreboard needs in one read.
type Board struct {
	Competition   *models.Competition   `json:"competition"`
	Live          *LiveSnapshot         `json:"live,omitempty"`
	Registrations []models.Registration `json:"registrations"`
	Attempts      []models.Attempt      `json:"attempts"`
}

// DisciplineResult is one discipline of a standings row.
type DisciplineResult struct {
	Attempts []models.Attempt `json:"attempts"`
	Best     *float64         `json:"best,omitempty"`
}

// StandingRow is one athlete in the standings. Rank is 0 for athletes
// without a total.
type StandingRow struct {
	Rank       int                                    `json:"rank,omitempty"`
	AthleteID  string                                 `json:"athleteId"`
	Name       string                                 `json:"name"`
	Club       string                                 `json:"club"`
	Gender     models.Gender                          `json:"gender"`
	BodyWeight float64                                `json:"bodyWeight"`
	LotNumber  *int                                   `json:"lotNumber,omitempty"`
	Lifts      map[models.Discipline]DisciplineResult `json:"lifts"`
	Total      *float64                               `json:"total,omitempty"`
	BombedOut  bool                                   `json:"bombedOut"`
}

// CategoryStandings is the ranked table of one weight category.
type CategoryStandings struct {
	Category string        `json:"category"`
	Rows     []StandingRow `json:"rows"`
}

type ResultsServiceInterface interface {
	Registrations(ctx context.Context, competitionID string) ([]models.Registration, error)
	Live(ctx context.Context, competitionID string) (*LiveSnapshot, error)
	Board(ctx context.Context, competitionID string) (*Board, error)
	Standings(ctx context.Context, competitionID string) ([]CategoryStandings, error)
	ExportStandings(ctx context.Context, competitionID string) ([]byte, error)
}

// ResultsService is the read side of a competition. It also serves as the
// websocket StateProvider: snapshots for observers and the timer columns.
type ResultsService struct {
	store store.Store
}

var (
	_ ResultsServiceInterface = (*ResultsService)(nil)
	_ websocket.StateProvider = (*ResultsService)(nil)
)

func NewResultsService(s store.Store) *ResultsService {
	return &ResultsService{store: s}
}

func (s *ResultsService) Registrations(ctx context.Context, competitionID string) ([]models.Registration, error) {
	if _, err := s.store.GetCompetition(ctx, competitionID); err != nil {
		return nil, err
	}
	return s.store.ListRegistrations(ctx, competitionID)
}

// Live reads the persisted live state; it is what an observer gets on
// connect and on every resync.
func (s *ResultsService) Live(ctx context.Context, competitionID string) (*LiveSnapshot, error) {
	comp, err := s.store.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	live, err := s.store.GetLiveState(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	snap := &LiveSnapshot{
		CompetitionID:   comp.ID,
		CompetitionName: comp.Name,
		Status:          comp.Status,
		Discipline:      live.CurrentDiscipline,
		Round:           live.CurrentRound,
		Timer:           websocket.TimerSnapshot{TimeLeft: live.TimerSeconds, Running: live.IsTimerRunning},
		UpdatedAt:       live.UpdatedAt,
	}
	if live.CurrentAthleteID == nil {
		return snap, nil
	}
	reg, err := s.store.FindRegistration(ctx, competitionID, *live.CurrentAthleteID)
	if err != nil {
		logger.Warn.Printf("[Live] Current athlete=%s not registered competition=%s: %v", *live.CurrentAthleteID, competitionID, err)
		return snap, nil
	}
	attempts, err := s.store.ListAttemptsFor(ctx, competitionID, reg.AthleteID, live.CurrentDiscipline)
	if err != nil {
		return nil, err
	}
	current := &LiveAthlete{ID: reg.AthleteID, LotNumber: reg.LotNumber, Attempts: attempts}
	if reg.Athlete != nil {
		current.Name = reg.Athlete.Name
		current.Club = reg.Athlete.Club
		current.Opener = reg.Athlete.Opener(live.CurrentDiscipline)
	}
	if reg.Category != nil {
		current.Category = reg.Category.Name
	}
	snap.CurrentAthlete = current
	return snap, nil
}

// Snapshot implements websocket.StateProvider.
func (s *ResultsService) Snapshot(ctx context.Context, competitionID string) (interface{}, error) {
	return s.Live(ctx, competitionID)
}

// SaveTimer implements websocket.StateProvider.
func (s *ResultsService) SaveTimer(ctx context.Context, competitionID string, seconds int, running bool) error {
	return s.store.SaveTimer(ctx, competitionID, seconds, running)
}

func (s *ResultsService) Board(ctx context.Context, competitionID string) (*Board, error) {
	comp, err := s.store.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	regs, err := s.store.ListRegistrations(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.store.ListAttempts(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	board := &Board{Competition: comp, Registrations: regs, Attempts: attempts}
	if comp.Status == models.StatusInProgress {
		if board.Live, err = s.Live(ctx, competitionID); err != nil {
			return nil, err
		}
	}
	return board, nil
}

// Standings ranks athletes per category by raw total, then lighter body
// weight, then lot number.
func (s *ResultsService) Standings(ctx context.Context, competitionID string) ([]CategoryStandings, error) {
	if _, err := s.store.GetCompetition(ctx, competitionID); err != nil {
		return nil, err
	}
	regs, err := s.store.ListRegistrations(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	ledger, err := s.store.ListAttempts(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	return BuildStandings(regs, ledger), nil
}

// BuildStandings computes the standings from registrations and the ledger.
func BuildStandings(regs []models.Registration, ledger []models.Attempt) []CategoryStandings {
	byCategory := make(map[string][]StandingRow)
	var order []string
	for _, r := range regs {
		row := standingRow(r, ledger)
		category := "Open"
		if r.Category != nil {
			category = r.Category.Name
		}
		if _, ok := byCategory[category]; !ok {
			order = append(order, category)
		}
		byCategory[category] = append(byCategory[category], row)
	}
	sort.Strings(order)

	out := make([]CategoryStandings, 0, len(order))
	for _, category := range order {
		rows := byCategory[category]
		sort.SliceStable(rows, func(i, j int) bool { return ranksBefore(rows[i], rows[j]) })
		rank := 0
		for i := range rows {
			if rows[i].Total != nil {
				rank++
				rows[i].Rank = rank
			}
		}
		out = append(out, CategoryStandings{Category: category, Rows: rows})
	}
	return out
}

func standingRow(r models.Registration, ledger []models.Attempt) StandingRow {
	row := StandingRow{
		AthleteID: r.AthleteID,
		LotNumber: r.LotNumber,
		Lifts:     make(map[models.Discipline]DisciplineResult, len(models.Disciplines)),
	}
	if r.Athlete != nil {
		row.Name = r.Athlete.Name
		row.Club = r.Athlete.Club
		row.Gender = r.Athlete.Gender
		row.BodyWeight = r.Athlete.BodyWeight
	}
	if r.WeighInWeight != nil {
		row.BodyWeight = *r.WeighInWeight
	}

	var total float64
	counted := false
	for _, d := range models.Disciplines {
		attempts := engine.AttemptsOf(ledger, r.AthleteID, d)
		result := DisciplineResult{Attempts: attempts}
		for _, a := range attempts {
			if a.Outcome == models.OutcomeValid && (result.Best == nil || a.Weight > *result.Best) {
				w := a.Weight
				result.Best = &w
			}
		}
		if result.Best != nil {
			total += *result.Best
			counted = true
		} else if len(attempts) == models.MaxAttempts && allJudged(attempts) {
			row.BombedOut = true
		}
		row.Lifts[d] = result
	}
	if counted && !row.BombedOut {
		row.Total = &total
	}
	return row
}

func allJudged(attempts []models.Attempt) bool {
	for _, a := range attempts {
		if a.Outcome == models.OutcomePending {
			return false
		}
	}
	return true
}

func ranksBefore(a, b StandingRow) bool {
	if (a.Total == nil) != (b.Total == nil) {
		return a.Total != nil
	}
	if a.Total != nil && *a.Total != *b.Total {
		return *a.Total > *b.Total
	}
	if a.BodyWeight != b.BodyWeight {
		return a.BodyWeight < b.BodyWeight
	}
	return lotValue(a.LotNumber) < lotValue(b.LotNumber)
}

func lotValue(lot *int) int {
	if lot == nil || *lot == 0 {
		return int(^uint(0) >> 1)
	}
	return *lot
}

// -------------------- export --------------------

var standingsHeader = []interface{}{
	"Rank", "Name", "Club", "Body weight", "Lot",
	"Squat 1", "Squat 2", "Squat 3", "Best squat",
	"Bench 1", "Bench 2", "Bench 3", "Best bench",
	"Deadlift 1", "Deadlift 2", "Deadlift 3", "Best deadlift",
	"Total",
}

// ExportStandings renders the standings as an XLSX workbook, one sheet per
// category.
func (s *ResultsService) ExportStandings(ctx context.Context, competitionID string) ([]byte, error) {
	standings, err := s.Standings(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	return StandingsWorkbook(standings)
}

// StandingsWorkbook writes standings to an XLSX document.
func StandingsWorkbook(standings []CategoryStandings) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	first := "Standings"
	if len(standings) > 0 {
		first = sheetName(standings[0].Category)
	}
	if err := f.SetSheetName("Sheet1", first); err != nil {
		return nil, err
	}
	for i, cat := range standings {
		sheet := sheetName(cat.Category)
		if i > 0 {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, err
			}
		}
		if err := f.SetSheetRow(sheet, "A1", &standingsHeader); err != nil {
			return nil, err
		}
		for r, row := range cat.Rows {
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			values := standingValues(row)
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: writing standings workbook: %v", models.ErrPersistence, err)
	}
	return buf.Bytes(), nil
}

func standingValues(row StandingRow) []interface{} {
	values := []interface{}{"", row.Name, row.Club, row.BodyWeight, ""}
	if row.Rank > 0 {
		values[0] = row.Rank
	} else if row.BombedOut {
		values[0] = "DQ"
	}
	if row.LotNumber != nil {
		values[4] = *row.LotNumber
	}
	for _, d := range models.Disciplines {
		result := row.Lifts[d]
		slots := make([]interface{}, models.MaxAttempts)
		for i := range slots {
			slots[i] = ""
		}
		for _, a := range result.Attempts {
			if a.AttemptNumber < 1 || a.AttemptNumber > models.MaxAttempts {
				continue
			}
			w := a.Weight
			if a.Outcome == models.OutcomeInvalid {
				w = -w
			}
			slots[a.AttemptNumber-1] = w
		}
		values = append(values, slots...)
		if result.Best != nil {
			values = append(values, *result.Best)
		} else {
			values = append(values, "")
		}
	}
	if row.Total != nil {
		values = append(values, *row.Total)
	} else {
		values = append(values, "")
	}
	return values
}

// sheetName trims a category to the 31 characters a sheet name allows.
func sheetName(category string) string {
	if category == "" {
		return "Open"
	}
	if len(category) > 31 {
		return category[:31]
	}
	return category
}
