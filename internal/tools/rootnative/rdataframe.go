package rootnative

import (
	"context"
	"fmt"

	"github.com/rootmcp/rootmcp/internal/executor"
	"github.com/rootmcp/rootmcp/internal/templates"
	"github.com/rootmcp/rootmcp/internal/tools"
)

// HistogramTool computes a binned 1D aggregation over a tree branch.
type HistogramTool struct {
	deps Deps
}

// NewHistogramTool creates the run_rdataframe tool.
func NewHistogramTool(deps Deps) *HistogramTool {
	return &HistogramTool{deps: deps}
}

func (t *HistogramTool) Name() string { return "run_rdataframe" }

func (t *HistogramTool) Description() string {
	return "Histogram a branch of a ROOT tree using RDataFrame. Returns entry " +
		"count, mean, standard deviation, under/overflow, per-bin contents " +
		"and errors, and bin edges. Supports an optional selection cut and " +
		"weight column, and can save the histogram as an image."
}

func (t *HistogramTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the ROOT file to read.",
			},
			"tree_name": map[string]any{
				"type":        "string",
				"description": "Name of the TTree inside the file.",
			},
			"branch": map[string]any{
				"type":        "string",
				"description": "Branch or defined column to histogram.",
			},
			"bins": map[string]any{
				"type":        "integer",
				"description": "Number of bins. Default 100.",
			},
			"range_min": map[string]any{
				"type":        "number",
				"description": "Lower histogram edge.",
			},
			"range_max": map[string]any{
				"type":        "number",
				"description": "Upper histogram edge.",
			},
			"selection": map[string]any{
				"type":        "string",
				"description": "Optional RDataFrame Filter expression in C++ syntax, e.g. 'pt > 10'.",
			},
			"weight": map[string]any{
				"type":        "string",
				"description": "Optional weight column.",
			},
			"output_path": map[string]any{
				"type":        "string",
				"description": "Optional image path to save the histogram plot.",
			},
			"timeout_seconds": map[string]any{
				"type":        "number",
				"description": "Wall-clock budget for this execution.",
			},
		},
		"required": []string{"file_path", "tree_name", "branch", "range_min", "range_max"},
	}
}

func (t *HistogramTool) Validate(params map[string]any) error {
	for _, key := range []string{"file_path", "tree_name", "branch"} {
		if err := requireString(params, key); err != nil {
			return err
		}
	}
	if floatParam(params, "range_max", 0) <= floatParam(params, "range_min", 0) {
		return fmt.Errorf("range_max must be greater than range_min")
	}
	if bins := intParam(params, "bins", 100); bins <= 0 {
		return fmt.Errorf("bins must be positive")
	}
	return nil
}

func (t *HistogramTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	code := templates.RDataFrameHistogram(templates.HistogramParams{
		FilePath:   stringParam(params, "file_path"),
		TreeName:   stringParam(params, "tree_name"),
		Branch:     stringParam(params, "branch"),
		Bins:       intParam(params, "bins", 100),
		RangeMin:   floatParam(params, "range_min", 0),
		RangeMax:   floatParam(params, "range_max", 0),
		Selection:  stringParam(params, "selection"),
		Weight:     stringParam(params, "weight"),
		OutputPath: stringParam(params, "output_path"),
	})
	return t.deps.run(ctx, t.Name(), executor.Request{
		Code:           code,
		InputFiles:     []string{stringParam(params, "file_path")},
		Timeout:        timeoutParam(params),
		SkipValidation: true,
	})
}

// SnapshotTool writes a filtered branch subset to a new ROOT file.
type SnapshotTool struct {
	deps Deps
}

// NewSnapshotTool creates the run_rdataframe_snapshot tool.
func NewSnapshotTool(deps Deps) *SnapshotTool {
	return &SnapshotTool{deps: deps}
}

func (t *SnapshotTool) Name() string { return "run_rdataframe_snapshot" }

func (t *SnapshotTool) Description() string {
	return "Skim a ROOT tree with RDataFrame: apply an optional selection, " +
		"keep only the named branches, and write the result to a new file. " +
		"The written file is read back to verify the round trip."
}

func (t *SnapshotTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the ROOT file to read.",
			},
			"tree_name": map[string]any{
				"type":        "string",
				"description": "Name of the TTree inside the file.",
			},
			"branches": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Branches to keep in the output.",
			},
			"output_path": map[string]any{
				"type":        "string",
				"description": "Path of the ROOT file to write.",
			},
			"output_tree_name": map[string]any{
				"type":        "string",
				"description": "Tree name in the output file. Defaults to tree_name.",
			},
			"selection": map[string]any{
				"type":        "string",
				"description": "Optional RDataFrame Filter expression in C++ syntax.",
			},
			"timeout_seconds": map[string]any{
				"type":        "number",
				"description": "Wall-clock budget for this execution.",
			},
		},
		"required": []string{"file_path", "tree_name", "branches", "output_path"},
	}
}

func (t *SnapshotTool) Validate(params map[string]any) error {
	for _, key := range []string{"file_path", "tree_name", "output_path"} {
		if err := requireString(params, key); err != nil {
			return err
		}
	}
	if len(stringSliceParam(params, "branches")) == 0 {
		return fmt.Errorf("branches must be a non-empty array of strings")
	}
	return nil
}

func (t *SnapshotTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	code := templates.RDataFrameSnapshot(templates.SnapshotParams{
		FilePath:       stringParam(params, "file_path"),
		TreeName:       stringParam(params, "tree_name"),
		Branches:       stringSliceParam(params, "branches"),
		OutputPath:     stringParam(params, "output_path"),
		OutputTreeName: stringParam(params, "output_tree_name"),
		Selection:      stringParam(params, "selection"),
	})
	return t.deps.run(ctx, t.Name(), executor.Request{
		Code:           code,
		InputFiles:     []string{stringParam(params, "file_path")},
		Timeout:        timeoutParam(params),
		SkipValidation: true,
	})
}
