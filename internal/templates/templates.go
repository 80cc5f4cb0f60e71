// Package templates generates complete, runnable PyROOT scripts for canned
// analysis operations. Each generator is a pure function: structured
// parameters in, one Python source string out, no validation and no side
// effects. Generated scripts are trusted by construction (server-authored)
// and are executed with validation skipped.
//
// Every generator ends with a one-line print(json.dumps(...)) summary on
// stdout. This is a deliberate second channel for human/log inspection; the
// executor's harness result file remains the authoritative structured
// channel.
package templates

import (
	"fmt"
	"strings"

	"github.com/rootmcp/rootmcp/internal/pylit"
)

// HistogramParams parameterizes RDataFrameHistogram.
type HistogramParams struct {
	FilePath   string
	TreeName   string
	Branch     string
	Bins       int
	RangeMin   float64
	RangeMax   float64
	Selection  string // optional cut expression (C++ syntax for RDF Filter)
	Weight     string // optional weight column
	OutputPath string // optional: save histogram plot here
}

// RDataFrameHistogram emits code that computes a 1D binned aggregation and
// reports entries, mean, std dev, under/overflow, per-bin contents/errors,
// and the derived bin edges.
func RDataFrameHistogram(p HistogramParams) string {
	lines := []string{
		"import ROOT",
		"import json",
		"",
		"ROOT.gROOT.SetBatch(True)",
		"",
		fmt.Sprintf("rdf = ROOT.RDataFrame(%s, %s)", pylit.Str(p.TreeName), pylit.Str(p.FilePath)),
	}

	if p.Selection != "" {
		lines = append(lines, fmt.Sprintf("rdf = rdf.Filter(%s)", pylit.Str(p.Selection)))
	}

	model := fmt.Sprintf("ROOT.RDF.TH1DModel(\"h\", %s, %d, %s, %s)",
		pylit.Str(p.Branch), p.Bins, pylit.Float(p.RangeMin), pylit.Float(p.RangeMax))

	if p.Weight != "" {
		lines = append(lines, fmt.Sprintf("h = rdf.Histo1D(%s, %s, %s)",
			model, pylit.Str(p.Branch), pylit.Str(p.Weight)))
	} else {
		lines = append(lines, fmt.Sprintf("h = rdf.Histo1D(%s, %s)", model, pylit.Str(p.Branch)))
	}

	edges := fmt.Sprintf("[%s + i * (%s - %s) / %d for i in range(%d + 1)]",
		pylit.Float(p.RangeMin), pylit.Float(p.RangeMax), pylit.Float(p.RangeMin), p.Bins, p.Bins)

	lines = append(lines,
		"",
		"# Extract histogram data",
		"result = {",
		"    \"entries\": int(h.GetEntries()),",
		"    \"mean\": h.GetMean(),",
		"    \"std_dev\": h.GetStdDev(),",
		"    \"underflow\": h.GetBinContent(0),",
		"    \"overflow\": h.GetBinContent(h.GetNbinsX() + 1),",
		"    \"bin_contents\": [h.GetBinContent(i) for i in range(1, h.GetNbinsX() + 1)],",
		"    \"bin_errors\": [h.GetBinError(i) for i in range(1, h.GetNbinsX() + 1)],",
		"    \"bin_edges\": "+edges+",",
		"}",
		"print(json.dumps(result))",
	)

	if p.OutputPath != "" {
		lines = append(lines,
			"",
			"# Save plot",
			"c = ROOT.TCanvas(\"c\", \"c\", 800, 600)",
			"h.Draw()",
			fmt.Sprintf("c.SaveAs(%s)", pylit.Str(p.OutputPath)),
		)
	}

	return strings.Join(lines, "\n")
}

// SnapshotParams parameterizes RDataFrameSnapshot.
type SnapshotParams struct {
	FilePath       string
	TreeName       string
	Branches       []string
	OutputPath     string
	OutputTreeName string // defaults to TreeName
	Selection      string // optional cut expression
}

// RDataFrameSnapshot emits code that writes a filtered branch subset to a
// new file and reports entry count and branches read back from the written
// file (round-trip verification, not just the write call).
func RDataFrameSnapshot(p SnapshotParams) string {
	outTree := p.OutputTreeName
	if outTree == "" {
		outTree = p.TreeName
	}

	lines := []string{
		"import ROOT",
		"import json",
		"",
		fmt.Sprintf("rdf = ROOT.RDataFrame(%s, %s)", pylit.Str(p.TreeName), pylit.Str(p.FilePath)),
	}

	if p.Selection != "" {
		lines = append(lines, fmt.Sprintf("rdf = rdf.Filter(%s)", pylit.Str(p.Selection)))
	}

	lines = append(lines,
		"",
		"branches = ROOT.std.vector['string']()",
	)
	for _, b := range p.Branches {
		lines = append(lines, fmt.Sprintf("branches.push_back(%s)", pylit.Str(b)))
	}

	lines = append(lines,
		"",
		fmt.Sprintf("rdf.Snapshot(%s, %s, branches)", pylit.Str(outTree), pylit.Str(p.OutputPath)),
		"",
		"# Report from the written file",
		fmt.Sprintf("rdf_out = ROOT.RDataFrame(%s, %s)", pylit.Str(outTree), pylit.Str(p.OutputPath)),
		"n_entries = rdf_out.Count().GetValue()",
		"result = {",
		"    \"output_file\": "+pylit.Str(p.OutputPath)+",",
		"    \"tree_name\": "+pylit.Str(outTree)+",",
		"    \"entries\": int(n_entries),",
		"    \"branches\": "+pylit.StrList(p.Branches)+",",
		"}",
		"print(json.dumps(result))",
	)

	return strings.Join(lines, "\n")
}

// PlotParams parameterizes TCanvasPlot.
type PlotParams struct {
	FilePath   string
	TreeName   string
	DrawExpr   string // TTree::Draw expression, e.g. "px:py" or "mass>>h(100,0,200)"
	OutputPath string
	Selection  string // optional cut expression
	Title      string // optional plot title override
	Width      int    // canvas width in pixels, default 800
	Height     int    // canvas height in pixels, default 600
}

// TCanvasPlot emits TTree::Draw + TCanvas code that saves a plot image and
// reports the draw expression and an entry count.
func TCanvasPlot(p PlotParams) string {
	width, height := p.Width, p.Height
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}

	lines := []string{
		"import ROOT",
		"import json",
		"",
		"ROOT.gROOT.SetBatch(True)",
		"",
		fmt.Sprintf("f = ROOT.TFile.Open(%s)", pylit.Str(p.FilePath)),
		fmt.Sprintf("t = f.Get(%s)", pylit.Str(p.TreeName)),
		"",
		fmt.Sprintf("c = ROOT.TCanvas(\"c\", \"c\", %d, %d)", width, height),
		fmt.Sprintf("t.Draw(%s, %s)", pylit.Str(p.DrawExpr), pylit.Str(p.Selection)),
	}

	if p.Title != "" {
		lines = append(lines,
			"",
			"# Set title",
			fmt.Sprintf("ROOT.gPad.GetPrimitive(\"htemp\").SetTitle(%s)", pylit.Str(p.Title)),
		)
	}

	lines = append(lines,
		"",
		fmt.Sprintf("c.SaveAs(%s)", pylit.Str(p.OutputPath)),
		"",
		"result = {",
		"    \"output_file\": "+pylit.Str(p.OutputPath)+",",
		"    \"draw_expr\": "+pylit.Str(p.DrawExpr)+",",
		"    \"entries_drawn\": int(t.GetSelectedRows()) if t.GetSelectedRows() > 0 else int(t.GetEntries()),",
		"}",
		"print(json.dumps(result))",
		"",
		"f.Close()",
	)

	return strings.Join(lines, "\n")
}

// FitParams parameterizes RooFitFit.
type FitParams struct {
	FilePath      string
	WorkspaceName string
	ModelName     string
	DataName      string
	OutputPath    string // optional: save a data+model overlay plot here
}

// RooFitFit emits code that loads a RooWorkspace, fits the named model to
// the named dataset, and reports fit status, covariance quality, EDM,
// minimized NLL, and per-parameter value/error/bounds.
func RooFitFit(p FitParams) string {
	lines := []string{
		"import ROOT",
		"import json",
		"",
		"ROOT.gROOT.SetBatch(True)",
		"",
		fmt.Sprintf("f = ROOT.TFile.Open(%s)", pylit.Str(p.FilePath)),
		fmt.Sprintf("w = f.Get(%s)", pylit.Str(p.WorkspaceName)),
		"",
		fmt.Sprintf("model = w.pdf(%s)", pylit.Str(p.ModelName)),
		fmt.Sprintf("data = w.data(%s)", pylit.Str(p.DataName)),
		"",
		"# Perform fit",
		"fit_result = model.fitTo(data, ROOT.RooFit.Save(), ROOT.RooFit.PrintLevel(-1))",
		"",
		"# Extract parameters",
		"params = fit_result.floatParsFinal()",
		"param_dict = {}",
		"for i in range(params.getSize()):",
		"    p = params.at(i)",
		"    param_dict[p.GetName()] = {",
		"        \"value\": p.getVal(),",
		"        \"error\": p.getError(),",
		"        \"min\": p.getMin(),",
		"        \"max\": p.getMax(),",
		"    }",
		"",
		"result = {",
		"    \"status\": fit_result.status(),",
		"    \"cov_quality\": fit_result.covQual(),",
		"    \"edm\": fit_result.edm(),",
		"    \"min_nll\": fit_result.minNll(),",
		"    \"parameters\": param_dict,",
		"}",
		"print(json.dumps(result))",
	}

	if p.OutputPath != "" {
		lines = append(lines,
			"",
			"# Plot fit result",
			"obs = w.var(model.getObservables(data).first().GetName())",
			"frame = obs.frame()",
			"data.plotOn(frame)",
			"model.plotOn(frame)",
			"",
			"c = ROOT.TCanvas(\"c\", \"c\", 800, 600)",
			"frame.Draw()",
			fmt.Sprintf("c.SaveAs(%s)", pylit.Str(p.OutputPath)),
		)
	}

	lines = append(lines, "", "f.Close()")

	return strings.Join(lines, "\n")
}

// WriteParams parameterizes RootFileWrite.
type WriteParams struct {
	Data       map[string][]float64 // column name -> values; equal lengths are a runtime concern of the generated script
	OutputPath string
	TreeName   string // defaults to "tree"
}

// RootFileWrite emits code that writes columnar data to a new ROOT file
// with double-precision branches, filled row by row.
func RootFileWrite(p WriteParams) string {
	treeName := p.TreeName
	if treeName == "" {
		treeName = "tree"
	}

	lines := []string{
		"import ROOT",
		"import json",
		"import array",
		"",
		fmt.Sprintf("data = %s", pylit.ColumnDict(p.Data)),
		"",
		fmt.Sprintf("f = ROOT.TFile(%s, \"RECREATE\")", pylit.Str(p.OutputPath)),
		fmt.Sprintf("t = ROOT.TTree(%s, %s)", pylit.Str(treeName), pylit.Str(treeName)),
		"",
		"# Create branches",
		"buffers = {}",
		"for name in data:",
		"    buffers[name] = array.array(\"d\", [0.0])",
		"    t.Branch(name, buffers[name], name + \"/D\")",
		"",
		"# Fill tree",
		"n_entries = len(next(iter(data.values())))",
		"for i in range(n_entries):",
		"    for name in data:",
		"        buffers[name][0] = data[name][i]",
		"    t.Fill()",
		"",
		"t.Write()",
		"f.Close()",
		"",
		"result = {",
		"    \"output_file\": "+pylit.Str(p.OutputPath)+",",
		"    \"tree_name\": "+pylit.Str(treeName)+",",
		"    \"entries\": n_entries,",
		"    \"branches\": sorted(data.keys()),",
		"}",
		"print(json.dumps(result))",
	}

	return strings.Join(lines, "\n")
}

// MacroParams parameterizes RootMacro.
type MacroParams struct {
	MacroCode  string // C++ code executed via gROOT.ProcessLine
	OutputPath string // optional: save the active canvas here
}

// RootMacro emits code that executes a C++ macro via gROOT.ProcessLine.
// Multi-line macros are wrapped in a single { } compound statement; quote
// and backslash characters are escaped so the macro stays a valid Python
// string literal.
func RootMacro(p MacroParams) string {
	macroLines := strings.Split(strings.TrimSpace(p.MacroCode), "\n")
	var wrapped string
	if len(macroLines) > 1 {
		trimmed := make([]string, len(macroLines))
		for i, line := range macroLines {
			trimmed[i] = strings.TrimSpace(line)
		}
		wrapped = "{ " + strings.Join(trimmed, " ") + " }"
	} else {
		wrapped = strings.TrimSpace(p.MacroCode)
	}

	escaped := strings.ReplaceAll(wrapped, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)

	lines := []string{
		"import ROOT",
		"import json",
		"",
		"ROOT.gROOT.SetBatch(True)",
		"",
		fmt.Sprintf("ROOT.gROOT.ProcessLine(\"%s\")", escaped),
	}

	if p.OutputPath != "" {
		lines = append(lines,
			"",
			"# Save canvas if one exists",
			"c = ROOT.gPad.GetCanvas() if ROOT.gPad else None",
			"if c:",
			fmt.Sprintf("    c.SaveAs(%s)", pylit.Str(p.OutputPath)),
		)
	}

	lines = append(lines,
		"",
		"result = {\"status\": \"executed\"}",
		"print(json.dumps(result))",
	)

	return strings.Join(lines, "\n")
}
