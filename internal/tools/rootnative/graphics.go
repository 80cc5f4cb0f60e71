package rootnative

import (
	"context"
	"fmt"

	"github.com/rootmcp/rootmcp/internal/executor"
	"github.com/rootmcp/rootmcp/internal/templates"
	"github.com/rootmcp/rootmcp/internal/tools"
)

// PlotTool draws a TTree expression onto a canvas and saves it as an image.
type PlotTool struct {
	deps Deps
}

// NewPlotTool creates the run_tcanvas_plot tool.
func NewPlotTool(deps Deps) *PlotTool {
	return &PlotTool{deps: deps}
}

func (t *PlotTool) Name() string { return "run_tcanvas_plot" }

func (t *PlotTool) Description() string {
	return "Plot a TTree::Draw expression on a TCanvas and save it as an " +
		"image (format inferred from the output extension). Supports an " +
		"optional selection, title, and canvas size."
}

func (t *PlotTool) InputSchema() map[string]any {
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
			"draw_expr": map[string]any{
				"type":        "string",
				"description": "TTree::Draw expression, e.g. 'px:py' or 'mass>>h(100,0,200)'.",
			},
			"output_path": map[string]any{
				"type":        "string",
				"description": "Image path to save the canvas to (.png, .pdf, .svg, ...).",
			},
			"selection": map[string]any{
				"type":        "string",
				"description": "Optional cut expression applied during the draw.",
			},
			"title": map[string]any{
				"type":        "string",
				"description": "Optional title for the drawn histogram.",
			},
			"width": map[string]any{
				"type":        "integer",
				"description": "Canvas width in pixels. Default 800.",
			},
			"height": map[string]any{
				"type":        "integer",
				"description": "Canvas height in pixels. Default 600.",
			},
			"timeout_seconds": map[string]any{
				"type":        "number",
				"description": "Wall-clock budget for this execution.",
			},
		},
		"required": []string{"file_path", "tree_name", "draw_expr", "output_path"},
	}
}

func (t *PlotTool) Validate(params map[string]any) error {
	for _, key := range []string{"file_path", "tree_name", "draw_expr", "output_path"} {
		if err := requireString(params, key); err != nil {
			return err
		}
	}
	return nil
}

func (t *PlotTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	code := templates.TCanvasPlot(templates.PlotParams{
		FilePath:   stringParam(params, "file_path"),
		TreeName:   stringParam(params, "tree_name"),
		DrawExpr:   stringParam(params, "draw_expr"),
		OutputPath: stringParam(params, "output_path"),
		Selection:  stringParam(params, "selection"),
		Title:      stringParam(params, "title"),
		Width:      intParam(params, "width", 0),
		Height:     intParam(params, "height", 0),
	})
	return t.deps.run(ctx, t.Name(), executor.Request{
		Code:           code,
		InputFiles:     []string{stringParam(params, "file_path")},
		Timeout:        timeoutParam(params),
		SkipValidation: true,
	})
}

// FitTool fits a RooFit model from a stored workspace to a dataset.
type FitTool struct {
	deps Deps
}

// NewFitTool creates the run_roofit_fit tool.
func NewFitTool(deps Deps) *FitTool {
	return &FitTool{deps: deps}
}

func (t *FitTool) Name() string { return "run_roofit_fit" }

func (t *FitTool) Description() string {
	return "Fit a RooFit model to a dataset, both loaded from a RooWorkspace " +
		"stored in a ROOT file. Returns fit status, covariance quality, EDM, " +
		"minimized NLL, and per-parameter values with errors. Optionally " +
		"saves a data+model overlay plot."
}

func (t *FitTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the ROOT file holding the RooWorkspace.",
			},
			"workspace_name": map[string]any{
				"type":        "string",
				"description": "Name of the RooWorkspace object.",
			},
			"model_name": map[string]any{
				"type":        "string",
				"description": "Name of the PDF inside the workspace.",
			},
			"data_name": map[string]any{
				"type":        "string",
				"description": "Name of the dataset inside the workspace.",
			},
			"output_path": map[string]any{
				"type":        "string",
				"description": "Optional image path for a data+model overlay plot.",
			},
			"timeout_seconds": map[string]any{
				"type":        "number",
				"description": "Wall-clock budget for this execution.",
			},
		},
		"required": []string{"file_path", "workspace_name", "model_name", "data_name"},
	}
}

func (t *FitTool) Validate(params map[string]any) error {
	for _, key := range []string{"file_path", "workspace_name", "model_name", "data_name"} {
		if err := requireString(params, key); err != nil {
			return err
		}
	}
	return nil
}

func (t *FitTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	code := templates.RooFitFit(templates.FitParams{
		FilePath:      stringParam(params, "file_path"),
		WorkspaceName: stringParam(params, "workspace_name"),
		ModelName:     stringParam(params, "model_name"),
		DataName:      stringParam(params, "data_name"),
		OutputPath:    stringParam(params, "output_path"),
	})
	return t.deps.run(ctx, t.Name(), executor.Request{
		Code:           code,
		InputFiles:     []string{stringParam(params, "file_path")},
		Timeout:        timeoutParam(params),
		SkipValidation: true,
	})
}

// WriteTool writes columnar data to a new ROOT file.
type WriteTool struct {
	deps Deps
}

// NewWriteTool creates the run_root_write tool.
func NewWriteTool(deps Deps) *WriteTool {
	return &WriteTool{deps: deps}
}

func (t *WriteTool) Name() string { return "run_root_write" }

func (t *WriteTool) Description() string {
	return "Write columnar numeric data to a new ROOT file as a TTree with " +
		"double-precision branches, one entry per row. Returns the entry " +
		"count and branch list read back from the written file."
}

func (t *WriteTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"data": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "number"},
				},
				"description": "Column name to array of numbers. All columns must have equal length.",
			},
			"output_path": map[string]any{
				"type":        "string",
				"description": "Path of the ROOT file to write.",
			},
			"tree_name": map[string]any{
				"type":        "string",
				"description": "Tree name in the output file. Default 'tree'.",
			},
			"timeout_seconds": map[string]any{
				"type":        "number",
				"description": "Wall-clock budget for this execution.",
			},
		},
		"required": []string{"data", "output_path"},
	}
}

func (t *WriteTool) Validate(params map[string]any) error {
	if err := requireString(params, "output_path"); err != nil {
		return err
	}
	data, err := dataParam(params)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("data must contain at least one column")
	}
	length := -1
	for name, values := range data {
		if length == -1 {
			length = len(values)
			continue
		}
		if len(values) != length {
			return fmt.Errorf("column %q has %d values, want %d", name, len(values), length)
		}
	}
	return nil
}

func (t *WriteTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	data, err := dataParam(params)
	if err != nil {
		return nil, err
	}
	code := templates.RootFileWrite(templates.WriteParams{
		Data:       data,
		OutputPath: stringParam(params, "output_path"),
		TreeName:   stringParam(params, "tree_name"),
	})
	return t.deps.run(ctx, t.Name(), executor.Request{
		Code:           code,
		Timeout:        timeoutParam(params),
		SkipValidation: true,
	})
}

// dataParam extracts the column map for run_root_write.
func dataParam(params map[string]any) (map[string][]float64, error) {
	raw, ok := params["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parameter data must be an object of numeric arrays")
	}
	data := make(map[string][]float64, len(raw))
	for name, value := range raw {
		items, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("column %q must be an array of numbers", name)
		}
		values := make([]float64, 0, len(items))
		for _, item := range items {
			n, ok := item.(float64)
			if !ok {
				return nil, fmt.Errorf("column %q contains a non-numeric value", name)
			}
			values = append(values, n)
		}
		data[name] = values
	}
	return data, nil
}
