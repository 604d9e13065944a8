package mcp

import (
	"context"

	"github.com/claude/fitfusion/internal/fusion"
	"github.com/claude/fitfusion/internal/models"
)

// DataSource abstracts the analytics layer for MCP tools. Both
// *fusion.Service (in-process) and HTTPClient (remote via REST API) satisfy
// this interface.
type DataSource interface {
	Workouts(ctx context.Context, days int, refresh bool) (*models.Response, error)
	ExerciseTrend(ctx context.Context, name string, days int) (models.ExerciseTrend, error)
}

// Compile-time check: *fusion.Service satisfies DataSource.
var _ DataSource = (*fusion.Service)(nil)
