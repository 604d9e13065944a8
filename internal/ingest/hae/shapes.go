package hae

import "github.com/claude/fitfusion/internal/models"

// MetricShape describes the data point structure for a metric.
type MetricShape int

const (
	ShapeQty       MetricShape = iota // Standard: {"qty": N}
	ShapeMinAvgMax                    // Heart rate: {"Min": N, "Avg": N, "Max": N}
)

// DetectMetricShape returns the expected data point shape for a metric name.
func DetectMetricShape(name string) MetricShape {
	if name == "heart_rate" {
		return ShapeMinAvgMax
	}
	return ShapeQty
}

// metricKinds maps the HAE metric names FitFusion keeps to sample kinds.
var metricKinds = map[string]models.SampleKind{
	"heart_rate":               models.KindHeartRate,
	"step_count":               models.KindSteps,
	"active_energy":            models.KindCalories,
	"walking_running_distance": models.KindDistance,
}

// KindFor reports the sample kind for an HAE metric name.
func KindFor(name string) (models.SampleKind, bool) {
	k, ok := metricKinds[name]
	return k, ok
}

// toMeters converts a distance in the given HAE unit. Unknown units are
// taken as meters.
func toMeters(v float64, units string) float64 {
	switch units {
	case "km":
		return v * 1000
	case "mi":
		return v * 1609.344
	case "yd":
		return v * 0.9144
	case "ft":
		return v * 0.3048
	default:
		return v
	}
}

// toKcal converts energy to kilocalories. HAE reports either kcal or kJ.
func toKcal(v float64, units string) float64 {
	if units == "kJ" {
		return v / 4.184
	}
	return v
}

// normalize converts a metric value into the unit FitFusion stores for kind.
func normalize(kind models.SampleKind, v float64, units string) float64 {
	switch kind {
	case models.KindDistance:
		return toMeters(v, units)
	case models.KindCalories:
		return toKcal(v, units)
	default:
		return v
	}
}
