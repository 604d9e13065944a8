package analytics

import (
	"sort"
	"strings"
	"unicode"

	"github.com/claude/fitfusion/internal/models"
)

type muscleRule struct {
	keyword string
	group   models.MuscleGroup
}

var muscleKeywords = map[models.MuscleGroup][]string{
	models.MuscleLegs: {
		"squat", "leg press", "lunge", "leg extension", "leg curl", "hack squat",
		"bulgarian split", "goblet squat", "hip thrust", "step up",
	},
	models.MuscleCalves: {"calf raise", "standing calf", "seated calf", "calf"},
	models.MuscleChest: {
		"bench press", "chest press", "push up", "pushup", "dips", "chest fly",
		"pec deck", "fly", "flies",
	},
	models.MuscleBack: {
		"pull up", "pullup", "chin up", "row", "lat pulldown", "pulldown", "deadlift",
		"rdl", "romanian deadlift", "shrug", "face pull", "hyperextension",
	},
	models.MuscleShoulders: {
		"shoulder press", "military press", "overhead press", "lateral raise",
		"front raise", "rear delt", "upright row",
	},
	models.MuscleArms: {
		"bicep curl", "curl", "tricep", "hammer curl", "preacher curl",
		"skull crusher", "pushdown", "overhead extension",
	},
	models.MuscleCore: {
		"plank", "crunch", "sit up", "ab", "abs", "leg raise", "russian twist", "side bend",
	},
}

// A bench angle only marks a chest movement when paired with a press or fly,
// so "incline curl" stays an arms exercise.
var (
	benchAngles   = []string{"incline", "decline"}
	chestPatterns = []string{"press", "fly", "flies"}
)

// muscleRules is ordered longest keyword first so the most specific rule wins.
var muscleRules = buildMuscleRules()

func buildMuscleRules() []muscleRule {
	var rules []muscleRule
	for g, kws := range muscleKeywords {
		for _, kw := range kws {
			rules = append(rules, muscleRule{keyword: kw, group: g})
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].keyword) != len(rules[j].keyword) {
			return len(rules[i].keyword) > len(rules[j].keyword)
		}
		return rules[i].keyword < rules[j].keyword
	})
	return rules
}

// FoldGroup merges groups that are reported together. Calves count as legs.
func FoldGroup(g models.MuscleGroup) models.MuscleGroup {
	if g == models.MuscleCalves {
		return models.MuscleLegs
	}
	if !g.Valid() {
		return models.MuscleOther
	}
	return g
}

// ClassifyMuscleGroup resolves an exercise to its muscle group. Overrides,
// keyed by models.ExerciseKey, take precedence over keyword rules.
func ClassifyMuscleGroup(name string, overrides map[string]models.MuscleGroup) models.MuscleGroup {
	key := models.ExerciseKey(name)
	if g, ok := overrides[key]; ok {
		return FoldGroup(g)
	}
	for _, r := range muscleRules {
		if containsWord(key, r.keyword) {
			return FoldGroup(r.group)
		}
	}
	if containsAnyWord(key, benchAngles) && containsAnyWord(key, chestPatterns) {
		return models.MuscleChest
	}
	return models.MuscleOther
}

func containsAnyWord(s string, kws []string) bool {
	for _, kw := range kws {
		if containsWord(s, kw) {
			return true
		}
	}
	return false
}

// containsWord reports whether kw occurs in s starting at a word boundary,
// so "ab" matches "ab wheel" but not "cable fly".
func containsWord(s, kw string) bool {
	for from := 0; from <= len(s)-len(kw); {
		i := strings.Index(s[from:], kw)
		if i < 0 {
			return false
		}
		i += from
		if i == 0 || !unicode.IsLetter(rune(s[i-1])) {
			return true
		}
		from = i + 1
	}
	return false
}
