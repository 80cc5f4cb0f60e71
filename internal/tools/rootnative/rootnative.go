// Package rootnative exposes sandboxed ROOT/PyROOT execution as MCP tools.
// Free-form code goes through static validation; generated analysis scripts
// skip it because their structure is fixed by the templates.
package rootnative

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rootmcp/rootmcp/internal/executor"
	"github.com/rootmcp/rootmcp/internal/rootenv"
	"github.com/rootmcp/rootmcp/internal/storage"
	"github.com/rootmcp/rootmcp/internal/tools"
)

// Runner executes a prepared request on behalf of a named tool.
// Satisfied by observability.InstrumentedExecutor.
type Runner interface {
	Run(ctx context.Context, tool string, req executor.Request) *executor.Result
}

// Deps carries the shared collaborators of all rootnative tools.
// Store may be nil (history disabled).
type Deps struct {
	Runner Runner
	Probe  *rootenv.Probe
	Store  storage.Store
	Logger *slog.Logger
}

// Register adds all rootnative tools to the registry.
func Register(reg *tools.Registry, deps Deps) {
	reg.Register(NewCodeTool(deps))
	reg.Register(NewMacroTool(deps))
	reg.Register(NewHistogramTool(deps))
	reg.Register(NewSnapshotTool(deps))
	reg.Register(NewPlotTool(deps))
	reg.Register(NewFitTool(deps))
	reg.Register(NewWriteTool(deps))
	reg.Register(NewStatusTool(deps))
}

// response is the JSON document returned to the MCP client.
type response struct {
	Status               string   `json:"status"`
	Stdout               string   `json:"stdout"`
	Stderr               string   `json:"stderr,omitempty"`
	ReturnValue          any      `json:"return_value,omitempty"`
	OutputFiles          []string `json:"output_files,omitempty"`
	ExecutionTimeSeconds float64  `json:"execution_time_seconds"`
	Error                string   `json:"error,omitempty"`
	Traceback            string   `json:"traceback,omitempty"`
	ValidationErrors     []string `json:"validation_errors,omitempty"`
	Warnings             []string `json:"warnings,omitempty"`
}

// run executes the request, records history, and formats the tool result.
func (d Deps) run(ctx context.Context, tool string, req executor.Request) (*tools.Result, error) {
	result := d.Runner.Run(ctx, tool, req)
	d.record(ctx, tool, req, result)

	resp := response{
		Status:               result.Status,
		Stdout:               result.Stdout,
		Stderr:               result.Stderr,
		ReturnValue:          result.ReturnValue,
		OutputFiles:          result.OutputFiles,
		ExecutionTimeSeconds: result.ExecutionTimeSeconds,
		Error:                result.Error,
		Traceback:            result.Traceback,
	}
	if result.Validation != nil {
		resp.ValidationErrors = result.Validation.Errors
		resp.Warnings = result.Validation.Warnings
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding tool response: %w", err)
	}
	return &tools.Result{
		Output:  string(payload),
		Success: result.Status == executor.StatusSuccess,
	}, nil
}

// record persists the execution outcome. Best-effort: a history failure
// never fails the tool call.
func (d Deps) record(ctx context.Context, tool string, req executor.Request, result *executor.Result) {
	if d.Store == nil {
		return
	}
	err := d.Store.RecordExecution(ctx, &storage.ExecutionRecord{
		Tool:            tool,
		Status:          result.Status,
		DurationSeconds: result.ExecutionTimeSeconds,
		CodeLength:      len(req.Code),
		Workspace:       result.Workspace,
		Error:           result.Error,
	})
	if err != nil {
		d.Logger.WarnContext(ctx, "failed to record execution history",
			slog.String("tool", tool), slog.String("error", err.Error()))
	}
}

// --- Parameter extraction helpers ---
// MCP arguments arrive as map[string]any decoded from JSON, so numbers are
// float64 and arrays are []any.

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func floatParam(params map[string]any, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}

func stringSliceParam(params map[string]any, key string) []string {
	raw, ok := params[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func timeoutParam(params map[string]any) time.Duration {
	secs := floatParam(params, "timeout_seconds", 0)
	if secs <= 0 {
		return 0 // executor default applies
	}
	return time.Duration(secs * float64(time.Second))
}

func requireString(params map[string]any, key string) error {
	v, ok := params[key]
	if !ok {
		return fmt.Errorf("missing required parameter: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("parameter %s must be a string", key)
	}
	if s == "" {
		return fmt.Errorf("parameter %s must not be empty", key)
	}
	return nil
}
