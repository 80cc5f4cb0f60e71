package rootnative

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rootmcp/rootmcp/internal/rootenv"
	"github.com/rootmcp/rootmcp/internal/tools"
)

// StatusTool reports ROOT availability and execution history counts.
type StatusTool struct {
	deps Deps
}

// NewStatusTool creates the root_status tool.
func NewStatusTool(deps Deps) *StatusTool {
	return &StatusTool{deps: deps}
}

func (t *StatusTool) Name() string { return "root_status" }

func (t *StatusTool) Description() string {
	return "Report whether the Python interpreter and PyROOT are available " +
		"on this server, the detected ROOT version, and aggregate execution " +
		"counts when history is enabled."
}

func (t *StatusTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"refresh": map[string]any{
				"type":        "boolean",
				"description": "Re-probe the environment instead of returning the cached result.",
			},
		},
	}
}

func (t *StatusTool) Validate(_ map[string]any) error { return nil }

func (t *StatusTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	if refresh, _ := params["refresh"].(bool); refresh {
		t.deps.Probe.Refresh()
	}
	status := t.deps.Probe.Status(ctx)

	doc := struct {
		rootenv.Status
		Executions map[string]int64 `json:"executions,omitempty"`
	}{Status: status}

	if t.deps.Store != nil {
		counts, err := t.deps.Store.CountByStatus(ctx)
		if err != nil {
			t.deps.Logger.WarnContext(ctx, "failed to aggregate execution history",
				slog.String("error", err.Error()))
		} else {
			doc.Executions = counts
		}
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding status: %w", err)
	}
	return &tools.Result{Output: string(payload), Success: true}, nil
}
