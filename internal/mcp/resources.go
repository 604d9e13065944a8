package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// summaryDays is the range behind the summary resource.
const summaryDays = 90

func (h *handlers) summary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	resp, err := h.ds.Workouts(ctx, summaryDays, false)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(map[string]any{
		"last_7_days":  resp.Summary.Last7Days,
		"last_30_days": resp.Summary.Last30Days,
		"recent_prs":   resp.Summary.RecentPRs,
		"consistency":  resp.Summary.ConsistencyScore,
		"forecast":     resp.Forecast,
		"computed_at":  resp.Meta.ComputedAt,
		"stale":        resp.Meta.Stale,
	})
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
