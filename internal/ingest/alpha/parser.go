package alpha

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Line shapes of an export. Fields are ';'-separated and header fields are
// quoted; values use ',' as the decimal separator.
var (
	// "Legs · Day 2";"2026-02-19 4:54 h";"1:02 hr"
	sessionLine = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d{1,2}:\d{2})\s+h";"(.+)"$`)

	// "1. Hack Squats · Machine · 8 reps · 2 dropsets";"WU1 · 37,5 kg · 9 reps<br>..."
	exerciseLine = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// 1;102,5;6;0,5
	setLine = regexp.MustCompile(`^(\d+);([^;]+);(\d+);([^;]+)$`)

	warmupItem = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)
)

const columnsLine = "#;KG;REPS;RIR"

var (
	errOrphanExercise = errors.New("exercise outside a session")
	errOrphanSet      = errors.New("set row outside an exercise")
)

// Parse reads an Alpha Progression CSV export and returns its sessions in
// file order. Blank lines end a session; notes and other unrecognized lines
// are skipped.
func Parse(r io.Reader) ([]Session, error) {
	var p parser
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if n == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if err := p.feed(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	p.endSession()
	return p.sessions, nil
}

type parser struct {
	sessions []Session
	session  *Session
	exercise *Exercise
}

func (p *parser) feed(line string) error {
	if line == "" {
		p.endSession()
		return nil
	}
	if line == columnsLine {
		return nil
	}
	if m := sessionLine.FindStringSubmatch(line); m != nil {
		return p.startSession(m[1], m[2], m[3])
	}
	if m := exerciseLine.FindStringSubmatch(line); m != nil {
		return p.startExercise(m)
	}
	if m := setLine.FindStringSubmatch(line); m != nil {
		return p.addSet(m)
	}
	return nil
}

func (p *parser) startSession(name, date, duration string) error {
	p.endSession()
	start, err := parseSessionDate(date)
	if err != nil {
		return err
	}
	p.session = &Session{Name: name, Date: start, Duration: duration}
	return nil
}

func (p *parser) startExercise(m []string) error {
	if p.session == nil {
		return errOrphanExercise
	}
	p.endExercise()
	num, _ := strconv.Atoi(m[1])
	target, _ := strconv.Atoi(m[4])
	p.exercise = &Exercise{
		Number:     num,
		Name:       strings.TrimSpace(m[2]),
		Equipment:  strings.TrimSpace(m[3]),
		TargetReps: target,
		Sets:       parseWarmups(m[6]),
	}
	return nil
}

func (p *parser) addSet(m []string) error {
	if p.exercise == nil {
		return errOrphanSet
	}
	num, _ := strconv.Atoi(m[1])
	reps, _ := strconv.Atoi(m[3])
	weight, plus := parseWeight(m[2])
	p.exercise.Sets = append(p.exercise.Sets, Set{
		Number:           num,
		WeightKg:         weight,
		IsBodyweightPlus: plus,
		Reps:             reps,
		RIR:              parseDecimal(m[4]),
	})
	return nil
}

func (p *parser) endExercise() {
	if p.session != nil && p.exercise != nil {
		p.session.Exercises = append(p.session.Exercises, *p.exercise)
	}
	p.exercise = nil
}

func (p *parser) endSession() {
	p.endExercise()
	if p.session != nil {
		p.sessions = append(p.sessions, *p.session)
	}
	p.session = nil
}

// parseSessionDate accepts hours with or without a leading zero.
func parseSessionDate(s string) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	if t, err := time.Parse("2006-01-02 15:04", s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02 3:04", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("session date %q: %w", s, err)
	}
	return t, nil
}

// parseWarmups reads the "WU1 · 37,5 kg · 9 reps<br>WU2 · ..." header field.
func parseWarmups(s string) []Set {
	var sets []Set
	for _, item := range strings.Split(s, "<br>") {
		m := warmupItem.FindStringSubmatch(item)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		reps, _ := strconv.Atoi(m[3])
		weight, plus := parseWeight(m[2])
		sets = append(sets, Set{
			Number:           num,
			WeightKg:         weight,
			IsBodyweightPlus: plus,
			Reps:             reps,
			IsWarmup:         true,
		})
	}
	return sets
}

// parseWeight reads "102,5" or the bodyweight-plus form "+35".
func parseWeight(s string) (kg float64, bodyweightPlus bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		return parseDecimal(rest), true
	}
	return parseDecimal(s), false
}

// parseDecimal reads a comma-decimal number. Garbage reads as 0.
func parseDecimal(s string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	return f
}
