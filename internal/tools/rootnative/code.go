package rootnative

import (
	"context"

	"github.com/rootmcp/rootmcp/internal/executor"
	"github.com/rootmcp/rootmcp/internal/templates"
	"github.com/rootmcp/rootmcp/internal/tools"
)

// CodeTool runs free-form Python/PyROOT code. The only tool whose input is
// user-authored, so the only one that goes through static validation.
type CodeTool struct {
	deps Deps
}

// NewCodeTool creates the run_root_code tool.
func NewCodeTool(deps Deps) *CodeTool {
	return &CodeTool{deps: deps}
}

func (t *CodeTool) Name() string { return "run_root_code" }

func (t *CodeTool) Description() string {
	return "Execute Python code with PyROOT in a sandboxed subprocess. " +
		"Code is statically validated before execution: imports outside the " +
		"scientific Python allowlist, shell/OS access, and dynamic code " +
		"evaluation are rejected. Files written to the output directory are " +
		"returned as artifact paths."
}

func (t *CodeTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code": map[string]any{
				"type":        "string",
				"description": "Python source to execute. ROOT is importable; matplotlib and numpy are allowed if installed.",
			},
			"input_files": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Paths to existing data files the code may read. Exposed to the script as _input_files.",
			},
			"timeout_seconds": map[string]any{
				"type":        "number",
				"description": "Wall-clock budget for this execution. Defaults to the server-wide limit.",
			},
		},
		"required": []string{"code"},
	}
}

func (t *CodeTool) Validate(params map[string]any) error {
	return requireString(params, "code")
}

func (t *CodeTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	return t.deps.run(ctx, t.Name(), executor.Request{
		Code:       stringParam(params, "code"),
		InputFiles: stringSliceParam(params, "input_files"),
		Timeout:    timeoutParam(params),
	})
}

// MacroTool executes C++ ROOT macro code via gROOT.ProcessLine.
type MacroTool struct {
	deps Deps
}

// NewMacroTool creates the run_root_macro tool.
func NewMacroTool(deps Deps) *MacroTool {
	return &MacroTool{deps: deps}
}

func (t *MacroTool) Name() string { return "run_root_macro" }

func (t *MacroTool) Description() string {
	return "Execute C++ ROOT macro code via the ROOT interpreter. Multi-line " +
		"macros run as a single compound statement. Optionally saves the " +
		"active canvas to an image file."
}

func (t *MacroTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"macro_code": map[string]any{
				"type":        "string",
				"description": "C++ statements for gROOT.ProcessLine, e.g. 'TH1F h(\"h\",\"h\",10,0,1); h.Draw();'",
			},
			"output_path": map[string]any{
				"type":        "string",
				"description": "Save the active canvas to this image path after the macro runs.",
			},
			"timeout_seconds": map[string]any{
				"type":        "number",
				"description": "Wall-clock budget for this execution.",
			},
		},
		"required": []string{"macro_code"},
	}
}

func (t *MacroTool) Validate(params map[string]any) error {
	return requireString(params, "macro_code")
}

func (t *MacroTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	code := templates.RootMacro(templates.MacroParams{
		MacroCode:  stringParam(params, "macro_code"),
		OutputPath: stringParam(params, "output_path"),
	})
	// Generated by the server, not the user: validation would only reject
	// its own output.
	return t.deps.run(ctx, t.Name(), executor.Request{
		Code:           code,
		Timeout:        timeoutParam(params),
		SkipValidation: true,
	})
}
