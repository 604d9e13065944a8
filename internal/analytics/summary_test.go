package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/claude/fitfusion/internal/models"
)

// TestMuscleDistributionSumsToHundred verifies the percentages add up within
// rounding tolerance.
func TestMuscleDistributionSumsToHundred(t *testing.T) {
	workouts := []models.MergedWorkout{
		merged(testNow, 0,
			set("Squat", 100, 5),
			set("Bench Press", 70, 8),
			set("Barbell Row", 60, 10),
			set("Standing Calf Raise", 40, 15),
			set("Hammer Curl", 14, 12),
		),
	}
	dist := MuscleDistribution(workouts, nil)
	if _, ok := dist[models.MuscleCalves]; ok {
		t.Error("calves reported separately from legs")
	}

	var total float64
	for _, share := range dist {
		total += share.VolumePct
	}
	if math.Abs(total-100) > 0.5 {
		t.Errorf("volume percentages sum to %v, want 100", total)
	}
	// Squat 500 + calf raise 600.
	if got := dist[models.MuscleLegs].VolumeKg; got != 1100 {
		t.Errorf("legs volume = %v, want 1100", got)
	}
	if got := dist[models.MuscleLegs].Sets; got != 2 {
		t.Errorf("legs sets = %d, want 2", got)
	}
}

// TestTopExercisesTies verifies the top-N ranking breaks ties alphabetically
// and counts each exercise once per session.
func TestTopExercisesTies(t *testing.T) {
	workouts := []models.MergedWorkout{
		merged(testNow, 0, set("Squat", 100, 5), set("Squat", 100, 5), set("Row", 60, 8)),
		merged(testNow.Add(-day), 0, set("Squat", 100, 5), set("Bench Press", 60, 8)),
		merged(testNow.Add(-2*day), 0, set("Deadlift", 140, 3), set("Curl", 12, 10), set("Dips", 0, 10)),
	}
	got := TopExercises(workouts, 5)
	want := []string{"Squat", "Bench Press", "Curl", "Deadlift", "Dips"}
	if len(got) != len(want) {
		t.Fatalf("got %d exercises, want %d: %v", len(got), len(want), got)
	}
	for i, name := range want {
		if got[i].Exercise != name {
			t.Errorf("rank %d = %s, want %s", i+1, got[i].Exercise, name)
		}
	}
	if got[0].Sessions != 2 {
		t.Errorf("Squat sessions = %d, want 2", got[0].Sessions)
	}
}

// TestConsistencyScoreSaturates verifies that meeting the weekly target every
// week scores 100 and extra sessions never push it higher.
func TestConsistencyScoreSaturates(t *testing.T) {
	var workouts []models.MergedWorkout
	for week := 0; week < 4; week++ {
		for d := 1; d <= 3; d++ {
			workouts = append(workouts, merged(testNow.Add(-day*time.Duration(week*7+d)), 1000))
		}
	}
	if got := ConsistencyScore(workouts, testNow, 28, 3); got != 100 {
		t.Errorf("ConsistencyScore = %v, want 100", got)
	}

	extra := append(workouts, merged(testNow.Add(-4*day), 1000), merged(testNow.Add(-5*day), 1000))
	if got := ConsistencyScore(extra, testNow, 28, 3); got != 100 {
		t.Errorf("ConsistencyScore with extra sessions = %v, want 100", got)
	}

	if got := ConsistencyScore(nil, testNow, 28, 3); got != 0 {
		t.Errorf("ConsistencyScore(nil) = %v, want 0", got)
	}
}

// TestConsistencyScorePartial verifies a single session per week scores a
// third of the target.
func TestConsistencyScorePartial(t *testing.T) {
	workouts := []models.MergedWorkout{
		merged(testNow.Add(-1*day), 1000),
		merged(testNow.Add(-8*day), 1000),
	}
	if got := ConsistencyScore(workouts, testNow, 14, 3); got != 33.3 {
		t.Errorf("ConsistencyScore = %v, want 33.3", got)
	}
}

func TestWindowStats(t *testing.T) {
	a := merged(testNow, 1000, set("Squat", 100, 5), set("Squat", 100, 5))
	a.Sets[1].ToFailure = true
	a.FailureSets = 1
	a.EffortScore = 80
	a.AvgHeartRate = floatp(140)
	a.Calories = floatp(300)
	b := merged(testNow.Add(-day), 500, set("Row", 50, 10))
	b.EffortScore = 60

	st := Window([]models.MergedWorkout{a, b})
	if st.Workouts != 2 || st.TotalVolumeKg != 1500 || st.AvgVolumeKg != 750 {
		t.Errorf("volume stats = %+v", st)
	}
	if st.AvgEffort != 70 {
		t.Errorf("AvgEffort = %v, want 70", st.AvgEffort)
	}
	if st.AvgHeartRate == nil || *st.AvgHeartRate != 140 {
		t.Errorf("AvgHeartRate = %v, want 140 over matched workouts only", st.AvgHeartRate)
	}
	if st.CaloriesBurned != 300 {
		t.Errorf("CaloriesBurned = %v, want 300", st.CaloriesBurned)
	}
	if st.FailureRatePct != 33.3 {
		t.Errorf("FailureRatePct = %v, want 33.3", st.FailureRatePct)
	}

	empty := Window(nil)
	if empty.Workouts != 0 || empty.AvgHeartRate != nil {
		t.Errorf("empty window = %+v", empty)
	}
}

// TestRecentPRsNewestFirst verifies only PRs inside the window are listed,
// newest first.
func TestRecentPRsNewestFirst(t *testing.T) {
	trends := map[string]models.ExerciseTrend{
		"Squat": {
			PRWeightKg: 120, PRWeightDate: testNow.Add(-2 * day),
			PRVolumeKg: 600, PRVolumeDate: testNow.Add(-40 * day),
		},
		"Bench Press": {
			PRWeightKg: 90, PRWeightDate: testNow.Add(-10 * day),
			PRVolumeKg: 720, PRVolumeDate: testNow.Add(-10 * day),
		},
	}
	prs := RecentPRs(trends, testNow.Add(-30*day))
	if len(prs) != 3 {
		t.Fatalf("got %d PRs, want 3: %v", len(prs), prs)
	}
	if prs[0].Exercise != "Squat" || prs[0].Type != models.PRWeight {
		t.Errorf("first PR = %+v, want Squat weight", prs[0])
	}
	for i := 1; i < len(prs); i++ {
		if prs[i].Date.After(prs[i-1].Date) {
			t.Errorf("PRs not newest first at %d", i)
		}
	}
}

func TestBiometricTotals(t *testing.T) {
	stream := models.BiometricStream{Samples: []models.BiometricSample{
		{Time: testNow, Kind: models.KindSteps, Value: 1000},
		{Time: testNow, Kind: models.KindSteps, Value: 2500},
		{Time: testNow, Kind: models.KindDistance, Value: 1500},
		{Time: testNow, Kind: models.KindDistance, Value: 500},
		{Time: testNow, Kind: models.KindCalories, Value: 120.44},
		{Time: testNow, Kind: models.KindHeartRate, Value: 99},
	}}
	got := Totals(stream)
	if got.Steps != 3500 || got.DistanceKm != 2 || got.Calories != 120.4 {
		t.Errorf("Totals = %+v, want 3500 steps, 2 km, 120.4 kcal", got)
	}
}

// TestSummarizeCounts verifies unique and total exercise counts.
func TestSummarizeCounts(t *testing.T) {
	workouts := []models.MergedWorkout{
		merged(testNow, 1000, set("Squat", 100, 5), set("squat", 100, 5)),
		merged(testNow.Add(-60*day), 500, set("Row", 50, 10)),
	}
	s := Summarize(SummaryInput{Workouts: workouts, Now: testNow, DaysRequested: 90}, DefaultParams())
	if s.UniqueExercises != 2 || s.TotalExercisesLogged != 3 {
		t.Errorf("unique/total = %d/%d, want 2/3", s.UniqueExercises, s.TotalExercisesLogged)
	}
	if s.Last30Days.Workouts != 1 || s.Overall.Workouts != 2 {
		t.Errorf("last30/overall workouts = %d/%d, want 1/2", s.Last30Days.Workouts, s.Overall.Workouts)
	}
}

// TestSummarizeRecentPRsFromTrends verifies the summary lists PRs from the
// trends it is given.
func TestSummarizeRecentPRsFromTrends(t *testing.T) {
	trends := map[string]models.ExerciseTrend{
		"Squat": {PRWeightKg: 120, PRWeightDate: testNow.Add(-2 * day)},
	}
	s := Summarize(SummaryInput{Trends: trends, Now: testNow, DaysRequested: 30}, DefaultParams())
	if len(s.RecentPRs) != 1 {
		t.Fatalf("got %d PRs, want 1: %v", len(s.RecentPRs), s.RecentPRs)
	}
	if pr := s.RecentPRs[0]; pr.Exercise != "Squat" || pr.Value != 120 {
		t.Errorf("PR = %+v, want Squat 120", pr)
	}
}
