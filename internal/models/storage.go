package models

import "time"

// TrainingSetRow is one row of the training_sets table: a set flattened
// together with the session it belongs to.
type TrainingSetRow struct {
	SessionID       string
	SessionTitle    string
	SessionStart    time.Time
	SessionDuration *float64
	Source          string
	SetIndex        int
	Exercise        string
	Equipment       string
	IsWarmup        bool
	Reps            *int
	WeightKg        *float64
	RPE             *float64
	ToFailure       bool
	RestSec         *int
}

// SessionRows flattens a session into table rows, preserving set order.
func SessionRows(s TrainingSession) []TrainingSetRow {
	rows := make([]TrainingSetRow, 0, len(s.Sets))
	for i, set := range s.Sets {
		rows = append(rows, TrainingSetRow{
			SessionID:       s.ID,
			SessionTitle:    s.Title,
			SessionStart:    s.Start,
			SessionDuration: s.DurationSec,
			Source:          s.Source,
			SetIndex:        i + 1,
			Exercise:        set.Exercise,
			Reps:            set.Reps,
			WeightKg:        set.WeightKg,
			RPE:             set.RPE,
			ToFailure:       set.ToFailure,
			RestSec:         set.RestSec,
		})
	}
	return rows
}

// SessionsFromRows groups rows ordered by (session start, set index) back
// into sessions. Warmup rows are skipped.
func SessionsFromRows(rows []TrainingSetRow) []TrainingSession {
	var sessions []TrainingSession
	index := map[string]int{}
	for _, r := range rows {
		i, ok := index[r.SessionID]
		if !ok {
			sessions = append(sessions, TrainingSession{
				ID:          r.SessionID,
				Start:       r.SessionStart,
				Title:       r.SessionTitle,
				DurationSec: r.SessionDuration,
				Source:      r.Source,
			})
			i = len(sessions) - 1
			index[r.SessionID] = i
		}
		if r.IsWarmup {
			continue
		}
		sessions[i].Sets = append(sessions[i].Sets, ExerciseSet{
			Exercise:  r.Exercise,
			Reps:      r.Reps,
			WeightKg:  r.WeightKg,
			RPE:       r.RPE,
			ToFailure: r.ToFailure,
			RestSec:   r.RestSec,
		})
	}
	return sessions
}
