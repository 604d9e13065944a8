package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("FitFusion", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("FitFusion fuses strength-training logs with heart rate, calories and workout windows. "+
			"Query fused workouts, per-exercise trends and PRs, volume forecasts, windowed training summaries and muscle distribution."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetWorkoutAnalytics, Handler: h.getWorkoutAnalytics},
		server.ServerTool{Tool: toolGetExerciseTrend, Handler: h.getExerciseTrend},
		server.ServerTool{Tool: toolGetVolumeForecast, Handler: h.getVolumeForecast},
		server.ServerTool{Tool: toolGetTrainingSummary, Handler: h.getTrainingSummary},
		server.ServerTool{Tool: toolGetMuscleDistribution, Handler: h.getMuscleDistribution},
	)

	s.AddResources(
		server.ServerResource{Resource: resSummary, Handler: h.summary},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resSummary = mcp.NewResource(
	"fitfusion://summary",
	"Training Summary",
	mcp.WithResourceDescription("Last 7 and 30 days of training, recent PRs and the volume forecast"),
	mcp.WithMIMEType("application/json"),
)
