// Package models defines data structures used across the application.
// File: models/enums.go
package models

// ----------------------- disciplines -----------------------

// Discipline is one of the three competition lifts.
type Discipline string

const (
	Squat    Discipline = "squat"
	Bench    Discipline = "bench"
	Deadlift Discipline = "deadlift"
)

// Disciplines is the fixed order in which a meet is contested.
var Disciplines = []Discipline{Squat, Bench, Deadlift}

// Valid reports whether d is a known discipline.
func (d Discipline) Valid() bool {
	switch d {
	case Squat, Bench, Deadlift:
		return true
	}
	return false
}

// Next returns the discipline contested after d. Deadlift has no successor.
func (d Discipline) Next() (Discipline, bool) {
	for i, x := range Disciplines {
		if x == d && i+1 < len(Disciplines) {
			return Disciplines[i+1], true
		}
	}
	return "", false
}

// ------------------------ outcomes -------------------------

// Outcome is the judged result of an attempt.
type Outcome string

const (
	OutcomeValid   Outcome = "valid"
	OutcomeInvalid Outcome = "invalid"
	OutcomePending Outcome = "pending"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeValid, OutcomeInvalid, OutcomePending:
		return true
	}
	return false
}

// ------------------- competition status --------------------

// CompetitionStatus tracks where a competition is in its lifecycle.
type CompetitionStatus string

const (
	StatusUpcoming   CompetitionStatus = "upcoming"
	StatusInProgress CompetitionStatus = "in_progress"
	StatusFinished   CompetitionStatus = "finished"
	StatusCancelled  CompetitionStatus = "cancelled"
)

var statusTransitions = map[CompetitionStatus][]CompetitionStatus{
	StatusUpcoming:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusFinished, StatusCancelled},
}

// CanTransition reports whether a competition may move from s to next.
func (s CompetitionStatus) CanTransition(next CompetitionStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// -------------------------- gender -------------------------

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

func (g Gender) Valid() bool {
	return g == Male || g == Female
}
