package config

import (
	"time"

	"github.com/claude/fitfusion/internal/analytics"
)

// Params overlays the configured coefficients on p. Zero values keep p's.
func (a AnalyticsConfig) Params(p analytics.Params) analytics.Params {
	setDuration := func(dst *time.Duration, minutes int) {
		if minutes > 0 {
			*dst = time.Duration(minutes) * time.Minute
		}
	}
	setFloat := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}

	setDuration(&p.DefaultSessionDuration, a.DefaultSessionMinutes)
	setDuration(&p.MatchRadius, a.MatchRadiusMinutes)
	setDuration(&p.ExactThreshold, a.ExactMinutes)
	setDuration(&p.CloseThreshold, a.CloseMinutes)
	setFloat(&p.MaxHeartRate, a.MaxHeartRate)
	setFloat(&p.EffortRPEWeight, a.EffortRPEWeight)
	setFloat(&p.EffortHRWeight, a.EffortHRWeight)
	setFloat(&p.EffortFailureWeight, a.EffortFailureWeight)
	setFloat(&p.SmoothingAlpha, a.SmoothingAlpha)
	setFloat(&p.TrendEpsilon, a.TrendEpsilon)
	setFloat(&p.TargetSessionsPerWeek, a.TargetSessionsPerWeek)
	if a.SlopeWindow > 0 {
		p.SlopeWindow = a.SlopeWindow
	}
	if a.ForecastHorizon > 0 {
		p.ForecastHorizon = a.ForecastHorizon
	}
	return p
}
