package models

// MuscleGroup is the coarse body-part bucket an exercise trains.
type MuscleGroup string

const (
	MuscleLegs      MuscleGroup = "legs"
	MuscleCalves    MuscleGroup = "calves"
	MuscleChest     MuscleGroup = "chest"
	MuscleBack      MuscleGroup = "back"
	MuscleShoulders MuscleGroup = "shoulders"
	MuscleArms      MuscleGroup = "arms"
	MuscleCore      MuscleGroup = "core"
	MuscleOther     MuscleGroup = "other"
)

// Valid reports whether g is a known group.
func (g MuscleGroup) Valid() bool {
	switch g {
	case MuscleLegs, MuscleCalves, MuscleChest, MuscleBack, MuscleShoulders, MuscleArms, MuscleCore, MuscleOther:
		return true
	}
	return false
}

// MuscleOverride pins an exercise to a group regardless of keyword rules.
type MuscleOverride struct {
	Exercise string      `json:"exercise"`
	Group    MuscleGroup `json:"group"`
}
