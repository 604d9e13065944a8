package mcp

import (
	"context"
	"errors"

	"github.com/claude/fitfusion/internal/fusion"
	"github.com/claude/fitfusion/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var daysParam = mcp.WithNumber("days", mcp.Description("Days of history to analyze. Defaults to 90."))

var toolGetWorkoutAnalytics = mcp.NewTool("get_workout_analytics",
	mcp.WithDescription("Full analytics for the range: every training session fused with heart rate, calories and distance from the matching workout window, plus trends, forecast, summary and metadata."),
	daysParam,
	mcp.WithBoolean("refresh", mcp.Description("Bypass the cache and recompute from the sources.")),
)

var toolGetExerciseTrend = mcp.NewTool("get_exercise_trend",
	mcp.WithDescription("Progression of one exercise: latest and PR weight and volume, estimated 1RM, 30-day and lifetime weight trend, frequency, average RPE and failure rate."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name, matched case-insensitively (e.g. 'Bench Press (Barbell)')")),
	daysParam,
)

var toolGetVolumeForecast = mcp.NewTool("get_volume_forecast",
	mcp.WithDescription("Short-horizon volume forecast: next projected sessions with confidence, trend direction and slope, expected workouts and volume over the next 30 days."),
	daysParam,
)

var toolGetTrainingSummary = mcp.NewTool("get_training_summary",
	mcp.WithDescription("Windowed rollups (last 7 days, last 30 days, overall): workouts, volume, effort, heart rate, calories, failure rate, top exercises, recent PRs and consistency score."),
	daysParam,
)

var toolGetMuscleDistribution = mcp.NewTool("get_muscle_distribution",
	mcp.WithDescription("Share of training volume and set count per muscle group over the last 30 days."),
	daysParam,
)

// --- Tool handlers ---

func (h *handlers) workouts(ctx context.Context, req mcp.CallToolRequest, tool string) (*models.Response, *mcp.CallToolResult) {
	resp, err := h.ds.Workouts(ctx, req.GetInt("days", 0), req.GetBool("refresh", false))
	if err != nil {
		h.log.Error("mcp "+tool, "error", err)
		return nil, mcp.NewToolResultError("analytics unavailable: " + err.Error())
	}
	return resp, nil
}

func (h *handlers) getWorkoutAnalytics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, errResult := h.workouts(ctx, req, "get_workout_analytics")
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(resp), nil
}

func (h *handlers) getExerciseTrend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil || exercise == "" {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	trend, err := h.ds.ExerciseTrend(ctx, exercise, req.GetInt("days", 0))
	if errors.Is(err, fusion.ErrUnknownExercise) {
		return mcp.NewToolResultError("no logged sets for exercise " + exercise), nil
	}
	if err != nil {
		h.log.Error("mcp get_exercise_trend", "error", err)
		return mcp.NewToolResultError("analytics unavailable: " + err.Error()), nil
	}
	return jsonResult(trend), nil
}

func (h *handlers) getVolumeForecast(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, errResult := h.workouts(ctx, req, "get_volume_forecast")
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(map[string]any{
		"forecast": resp.Forecast,
		"meta":     resp.Meta,
	}), nil
}

func (h *handlers) getTrainingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, errResult := h.workouts(ctx, req, "get_training_summary")
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(map[string]any{
		"summary": resp.Summary,
		"meta":    resp.Meta,
	}), nil
}

func (h *handlers) getMuscleDistribution(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, errResult := h.workouts(ctx, req, "get_muscle_distribution")
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(resp.Summary.MuscleDistribution), nil
}

func jsonResult(v any) *mcp.CallToolResult {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed")
	}
	return result
}
