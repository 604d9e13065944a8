package alpha

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/claude/fitfusion/internal/models"
	"github.com/google/uuid"
)

// Session is one workout block of an Alpha Progression export.
type Session struct {
	Name      string
	Date      time.Time
	Duration  string // as exported, e.g. "1:02 hr"
	Exercises []Exercise
}

// Exercise is a numbered exercise header with its sets.
type Exercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []Set
}

// Set is one row of the set table or a warmup from the header.
type Set struct {
	Number           int
	WeightKg         float64
	IsBodyweightPlus bool
	Reps             int
	RIR              float64
	IsWarmup         bool
}

var alphaNamespace = uuid.MustParse("5a0d3c1e-8e7b-4c4e-a7a9-2c6f7e1b9d40")

// SessionID derives a stable id from the session's name and start.
func (s Session) SessionID() string {
	return "alpha-" + uuid.NewSHA1(alphaNamespace, []byte(s.Name+"|"+s.Date.Format(time.RFC3339))).String()
}

var (
	hoursMinutesRe = regexp.MustCompile(`^(\d+):(\d{2})\s*(?:hr|h)$`)
	minutesRe      = regexp.MustCompile(`^(\d+)\s*min$`)
)

// DurationSeconds parses "1:02 hr" or "45 min". Unknown formats yield nil.
func (s Session) DurationSeconds() *float64 {
	d := strings.TrimSpace(s.Duration)
	var secs float64
	if m := hoursMinutesRe.FindStringSubmatch(d); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		secs = float64(h*3600 + mins*60)
	} else if m := minutesRe.FindStringSubmatch(d); m != nil {
		mins, _ := strconv.Atoi(m[1])
		secs = float64(mins * 60)
	} else {
		return nil
	}
	return &secs
}

// rpeFromRIR maps reps in reserve onto the 0–10 RPE scale.
func rpeFromRIR(rir float64) float64 {
	return max(0, min(10, 10-rir))
}

// Rows flattens the session into storage rows, warmups included and marked.
// Set indices run across the whole session in export order.
func (s Session) Rows() []models.TrainingSetRow {
	id := s.SessionID()
	dur := s.DurationSeconds()
	var rows []models.TrainingSetRow
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			reps := set.Reps
			weight := set.WeightKg
			row := models.TrainingSetRow{
				SessionID:       id,
				SessionTitle:    s.Name,
				SessionStart:    s.Date,
				SessionDuration: dur,
				Source:          "alpha",
				SetIndex:        len(rows) + 1,
				Exercise:        ex.Name,
				Equipment:       ex.Equipment,
				IsWarmup:        set.IsWarmup,
				Reps:            &reps,
				WeightKg:        &weight,
			}
			if !set.IsWarmup {
				rpe := rpeFromRIR(set.RIR)
				row.RPE = &rpe
				row.ToFailure = set.RIR <= 0
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// ToSession converts the export block into a training session, warmups
// dropped.
func (s Session) ToSession() (models.TrainingSession, error) {
	if s.Date.IsZero() {
		return models.TrainingSession{}, fmt.Errorf("%w: alpha session %q has no date", models.ErrMalformedInput, s.Name)
	}
	sessions := models.SessionsFromRows(s.Rows())
	if len(sessions) == 0 {
		return models.TrainingSession{
			ID:          s.SessionID(),
			Start:       s.Date,
			Title:       s.Name,
			DurationSec: s.DurationSeconds(),
			Source:      "alpha",
		}, nil
	}
	return sessions[0], nil
}
