// File: services/roster_import.go
package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"go-meet-control/logger"
	"go-meet-control/models"
	"go-meet-control/store"
)

// ImportReport summarises a roster import.
type ImportReport struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// RosterImporter creates athletes and registrations from an XLSX roster.
type RosterImporter struct {
	store         store.Store
	athletes      *AthleteService
	registrations *RegistrationService
}

func NewRosterImporter(s store.Store, athletes *AthleteService, registrations *RegistrationService) *RosterImporter {
	return &RosterImporter{store: s, athletes: athletes, registrations: registrations}
}

type rosterColumns struct {
	name, club, gender, age, bodyWeight, category, squat, bench, deadlift int
}

// ImportRoster reads every sheet of the workbook. A sheet without a name
// column is ignored; a row that fails validation is skipped and reported.
func (ri *RosterImporter) ImportRoster(ctx context.Context, competitionID string, r io.Reader) (*ImportReport, error) {
	if err := ri.registrations.requireUpcoming(ctx, competitionID); err != nil {
		return nil, err
	}
	xlsx, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse XLSX file: %v", models.ErrValidation, err)
	}
	defer xlsx.Close()

	categories, err := ri.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	categoryByName := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryByName[strings.ToLower(c.Name)] = c.ID
	}

	report := &ImportReport{}
	for _, sheet := range xlsx.GetSheetList() {
		rows, err := xlsx.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read sheet %q: %v", models.ErrValidation, sheet, err)
		}
		if len(rows) < 2 {
			continue
		}
		cols := findRosterColumns(rows[0])
		if cols.name == -1 {
			logger.Debug.Printf("[ImportRoster] Sheet %q has no name column, skipping", sheet)
			continue
		}
		for i := 1; i < len(rows); i++ {
			row := rows[i]
			if cell(row, cols.name) == "" {
				continue
			}
			in, err := athleteFromRow(row, cols, categoryByName)
			if err == nil {
				err = ri.importOne(ctx, competitionID, in)
			}
			if err != nil {
				report.Skipped++
				report.Errors = append(report.Errors, fmt.Sprintf("%s row %d: %v", sheet, i+1, err))
				continue
			}
			report.Created++
		}
	}
	logger.Info.Printf("[ImportRoster] competition=%s created=%d skipped=%d", competitionID, report.Created, report.Skipped)
	return report, nil
}

func (ri *RosterImporter) importOne(ctx context.Context, competitionID string, in AthleteInput) error {
	a, err := ri.athletes.Create(ctx, in)
	if err != nil {
		return err
	}
	_, err = ri.registrations.Register(ctx, competitionID, RegistrationInput{AthleteID: a.ID, CategoryID: a.CategoryID})
	return err
}

func findRosterColumns(header []string) rosterColumns {
	cols := rosterColumns{-1, -1, -1, -1, -1, -1, -1, -1, -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name", "athlete", "nombre", "atleta":
			cols.name = i
		case "club", "team", "equipo":
			cols.club = i
		case "gender", "sex", "género", "genero", "sexo":
			cols.gender = i
		case "age", "edad":
			cols.age = i
		case "body weight", "bodyweight", "peso corporal", "peso":
			cols.bodyWeight = i
		case "category", "weight class", "categoría", "categoria":
			cols.category = i
		case "squat", "squat opener", "sentadilla":
			cols.squat = i
		case "bench", "bench press", "bench opener", "press banca", "banca":
			cols.bench = i
		case "deadlift", "deadlift opener", "peso muerto":
			cols.deadlift = i
		}
	}
	return cols
}

func athleteFromRow(row []string, cols rosterColumns, categoryByName map[string]string) (AthleteInput, error) {
	in := AthleteInput{
		Name: cell(row, cols.name),
		Club: cell(row, cols.club),
	}
	gender, err := parseGender(cell(row, cols.gender))
	if err != nil {
		return in, err
	}
	in.Gender = gender
	if v := cell(row, cols.age); v != "" {
		if in.Age, err = strconv.Atoi(v); err != nil {
			return in, fmt.Errorf("%w: age %q is not a number", models.ErrValidation, v)
		}
	}
	if v := cell(row, cols.bodyWeight); v != "" {
		if in.BodyWeight, err = parseWeight(v); err != nil {
			return in, err
		}
	}
	if v := cell(row, cols.category); v != "" {
		id, ok := categoryByName[strings.ToLower(v)]
		if !ok {
			return in, fmt.Errorf("%w: unknown category %q", models.ErrValidation, v)
		}
		in.CategoryID = &id
	}
	for _, opener := range []struct {
		col int
		dst **float64
	}{{cols.squat, &in.SquatOpener}, {cols.bench, &in.BenchOpener}, {cols.deadlift, &in.DeadliftOpener}} {
		v := cell(row, opener.col)
		if v == "" {
			continue
		}
		w, err := parseWeight(v)
		if err != nil {
			return in, err
		}
		*opener.dst = &w
	}
	return in, nil
}

func parseGender(v string) (models.Gender, error) {
	switch strings.ToLower(v) {
	case "m", "male", "man", "masculino", "hombre":
		return models.Male, nil
	case "f", "female", "woman", "femenino", "mujer":
		return models.Female, nil
	}
	return "", fmt.Errorf("%w: unknown gender %q", models.ErrValidation, v)
}

// parseWeight accepts both decimal points and decimal commas.
func parseWeight(v string) (float64, error) {
	w, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: weight %q is not a number", models.ErrValidation, v)
	}
	return w, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
