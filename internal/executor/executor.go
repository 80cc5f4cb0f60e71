// Package executor runs Python/PyROOT code in isolated subprocesses.
//
// Each execution gets a fresh workspace directory holding a generated
// harness script, an output directory, and a result file. The harness is
// the only inter-process channel: it captures a structured result on every
// termination path of the user code and writes it to a well-known file
// before the child exits. The parent normalizes every possible outcome
// (clean exit, uncaught exception, timeout, spawn failure, corrupted result
// file) into one Result value and never returns an error from Execute.
//
// Isolation is a separate OS process in its own process group, killed as a
// group on timeout. This is not a hard sandbox: no namespaces, seccomp, or
// chroot are applied.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rootmcp/rootmcp/internal/pylit"
	"github.com/rootmcp/rootmcp/internal/sandbox"
)

// Execution statuses.
const (
	StatusSuccess          = "success"
	StatusError            = "error"
	StatusTimeout          = "timeout"
	StatusValidationFailed = "validation_failed"
)

const (
	defaultTimeout       = 60 * time.Second
	defaultMaxOutputSize = 10_000_000 // bytes, per stream
	defaultWorkDir       = "/tmp/rootmcp"
	defaultPython        = "python3"

	runnerFileName = "_runner.py"
	resultFileName = "_result.json"
)

// Config configures the Executor. Zero values fall back to defaults.
type Config struct {
	Timeout       time.Duration // per-execution wall-clock budget
	MaxOutputSize int           // stdout/stderr cap in bytes, each stream independently
	WorkDir       string        // base directory for execution workspaces
	Python        string        // interpreter to launch
}

// Request describes one execution. InputFiles is advisory: the paths are
// embedded into the harness for the script's convenience, not bind-mounted
// or otherwise enforced.
type Request struct {
	Code           string
	InputFiles     []string
	OutputDir      string // empty = <workspace>/output
	Timeout        time.Duration
	SkipValidation bool
}

// Result is the normalized outcome of one execution.
type Result struct {
	Status               string
	Stdout               string
	Stderr               string
	ReturnValue          any
	OutputFiles          []string
	ExecutionTimeSeconds float64
	Error                string
	Traceback            string
	Validation           *sandbox.Verdict

	// Workspace is the directory the execution ran in, empty when no
	// workspace was created (validation failures).
	Workspace string
}

// Executor executes code requests one subprocess at a time per call.
// It is stateless across calls and safe for concurrent use: workspaces are
// disjoint by construction and the validator is read-only.
type Executor struct {
	timeout       time.Duration
	maxOutputSize int
	workDir       string
	python        string
	validator     *sandbox.Validator
	logger        *slog.Logger
}

// New creates an Executor. A nil validator gets the default policy.
func New(cfg Config, validator *sandbox.Validator, logger *slog.Logger) *Executor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxOutputSize <= 0 {
		cfg.MaxOutputSize = defaultMaxOutputSize
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = defaultWorkDir
	}
	if cfg.Python == "" {
		cfg.Python = defaultPython
	}
	if validator == nil {
		validator = sandbox.NewValidator(sandbox.DefaultPolicy())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		timeout:       cfg.Timeout,
		maxOutputSize: cfg.MaxOutputSize,
		workDir:       cfg.WorkDir,
		python:        cfg.Python,
		validator:     validator,
		logger:        logger,
	}
}

// WorkDir returns the base directory workspaces are created under.
func (e *Executor) WorkDir() string { return e.workDir }

// Execute runs one code request and returns its normalized result.
// It never returns an error and never panics: every failure mode becomes a
// Result with a non-empty Error and an appropriate Status.
func (e *Executor) Execute(ctx context.Context, req Request) *Result {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}

	// Step 1: static validation, unless the source is server-authored.
	var verdict *sandbox.Verdict
	if !req.SkipValidation {
		verdict = e.validator.Validate(req.Code)
		if !verdict.IsValid {
			return &Result{
				Status:     StatusValidationFailed,
				Error:      "code validation failed: " + strings.Join(verdict.Errors, "; "),
				Validation: verdict,
			}
		}
	}

	// Step 2: workspace preparation.
	workDir, outputDir, err := e.prepareWorkspace(req.OutputDir)
	if err != nil {
		return &Result{Status: StatusError, Error: err.Error(), Validation: verdict}
	}

	// Step 3: harness script.
	harness := buildHarness(req.Code, workDir, outputDir, req.InputFiles)
	scriptPath := filepath.Join(workDir, runnerFileName)
	if err := os.WriteFile(scriptPath, []byte(harness), 0600); err != nil {
		return &Result{
			Status:     StatusError,
			Error:      fmt.Sprintf("writing harness script: %v", err),
			Validation: verdict,
			Workspace:  workDir,
		}
	}

	// Step 4: launch and wait.
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.python, scriptPath)
	cmd.Dir = workDir
	// Batch mode so the embedded libraries never require a display.
	cmd.Env = append(os.Environ(), "ROOT_BATCH=1")

	// The child runs in its own process group so a timeout kills everything
	// it spawned, not just the interpreter.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	stdout := &cappedBuffer{limit: e.maxOutputSize}
	stderr := &cappedBuffer{limit: e.maxOutputSize}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	e.logger.Info("executing code",
		slog.String("workspace", workDir),
		slog.Int("code_bytes", len(req.Code)),
		slog.Duration("timeout", timeout),
		slog.Bool("validated", !req.SkipValidation),
	)

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	// Step 5: normalize the outcome.
	if ctx.Err() == context.DeadlineExceeded {
		// No partial stdout/stderr or result file is trusted on this path.
		e.logger.Warn("execution timed out",
			slog.String("workspace", workDir),
			slog.Duration("timeout", timeout),
			slog.Duration("elapsed", elapsed),
		)
		return &Result{
			Status:               StatusTimeout,
			ExecutionTimeSeconds: roundSeconds(elapsed),
			Error:                fmt.Sprintf("execution timed out after %s", timeout),
			Validation:           verdict,
			Workspace:            workDir,
		}
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		// The orchestration itself failed (e.g. interpreter not found).
		// Distinguished from user errors by the absent traceback.
		e.logger.Error("execution failed to launch", slog.String("error", runErr.Error()))
		return &Result{
			Status:               StatusError,
			ExecutionTimeSeconds: roundSeconds(elapsed),
			Error:                runErr.Error(),
			Validation:           verdict,
			Workspace:            workDir,
		}
	}

	structured := readResultFile(filepath.Join(workDir, resultFileName))

	result := &Result{
		Status:               structured.Status,
		Stdout:               stdout.String(),
		Stderr:               stderr.String(),
		ReturnValue:          structured.ReturnValue,
		OutputFiles:          structured.OutputFiles,
		ExecutionTimeSeconds: roundSeconds(elapsed),
		Error:                structured.Error,
		Traceback:            structured.Traceback,
		Validation:           verdict,
		Workspace:            workDir,
	}

	e.logger.Info("execution completed",
		slog.String("workspace", workDir),
		slog.String("status", result.Status),
		slog.Duration("elapsed", elapsed),
		slog.Int("stdout_bytes", stdout.total),
		slog.Int("stderr_bytes", stderr.total),
		slog.Int("output_files", len(result.OutputFiles)),
	)

	return result
}

// prepareWorkspace creates a fresh uniquely-named workspace under the base
// directory (creating the base if absent) and resolves the output directory.
func (e *Executor) prepareWorkspace(outputDir string) (string, string, error) {
	if err := os.MkdirAll(e.workDir, 0750); err != nil {
		return "", "", fmt.Errorf("creating working directory %s: %w", e.workDir, err)
	}

	workDir := filepath.Join(e.workDir, "exec_"+uuid.NewString())
	if err := os.Mkdir(workDir, 0750); err != nil {
		return "", "", fmt.Errorf("creating execution workspace: %w", err)
	}

	if outputDir == "" {
		outputDir = filepath.Join(workDir, "output")
	}
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return "", "", fmt.Errorf("creating output directory %s: %w", outputDir, err)
	}

	return workDir, outputDir, nil
}

// structuredResult mirrors the JSON document the harness writes.
type structuredResult struct {
	Status      string   `json:"status"`
	ReturnValue any      `json:"return_value"`
	OutputFiles []string `json:"output_files"`
	Error       string   `json:"error"`
	Traceback   string   `json:"traceback"`
}

// readResultFile parses the harness result file. A missing or corrupt file
// (child crashed hard, or was killed between write attempts) degrades to an
// error-status result rather than propagating.
func readResultFile(path string) structuredResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return structuredResult{
			Status: StatusError,
			Error:  fmt.Sprintf("failed to read execution result: %v", err),
		}
	}
	var res structuredResult
	if err := json.Unmarshal(data, &res); err != nil {
		return structuredResult{
			Status: StatusError,
			Error:  fmt.Sprintf("failed to read execution result: %v", err),
		}
	}
	if res.Status == "" {
		res.Status = StatusError
	}
	return res
}

// buildHarness wraps user code in the subprocess wrapper script. All
// embedded paths go through Python literal construction, so the harness
// stays valid for any workspace location.
func buildHarness(code, workDir, outputDir string, inputFiles []string) string {
	var sb strings.Builder
	sb.WriteString("import json\n")
	sb.WriteString("import os\n")
	sb.WriteString("import sys\n")
	sb.WriteString("import traceback\n")
	sb.WriteString("\n")
	sb.WriteString("# Redirect working directory\n")
	fmt.Fprintf(&sb, "os.chdir(%s)\n", pylit.Str(workDir))
	sb.WriteString("\n")
	sb.WriteString("# Make input files accessible\n")
	fmt.Fprintf(&sb, "_input_files = %s\n", pylit.StrList(inputFiles))
	fmt.Fprintf(&sb, "_output_dir = %s\n", pylit.Str(outputDir))
	sb.WriteString("\n")
	sb.WriteString("_result = {\n")
	sb.WriteString("    \"status\": \"success\",\n")
	sb.WriteString("    \"return_value\": None,\n")
	sb.WriteString("    \"output_files\": [],\n")
	sb.WriteString("    \"error\": None,\n")
	sb.WriteString("    \"traceback\": None,\n")
	sb.WriteString("}\n")
	sb.WriteString("\n")
	sb.WriteString("try:\n")
	sb.WriteString("    # --- Begin user code ---\n")
	sb.WriteString(indentCode(code))
	sb.WriteString("    # --- End user code ---\n")
	sb.WriteString("except Exception as _exc:\n")
	sb.WriteString("    _result[\"status\"] = \"error\"\n")
	sb.WriteString("    _result[\"error\"] = str(_exc)\n")
	sb.WriteString("    _result[\"traceback\"] = traceback.format_exc()\n")
	sb.WriteString("\n")
	sb.WriteString("# Collect output files\n")
	sb.WriteString("if os.path.isdir(_output_dir):\n")
	sb.WriteString("    for _f in os.listdir(_output_dir):\n")
	sb.WriteString("        _fpath = os.path.join(_output_dir, _f)\n")
	sb.WriteString("        if os.path.isfile(_fpath):\n")
	sb.WriteString("            _result[\"output_files\"].append(_fpath)\n")
	sb.WriteString("\n")
	sb.WriteString("# Write structured result to a known file\n")
	fmt.Fprintf(&sb, "_result_path = os.path.join(%s, %s)\n", pylit.Str(workDir), pylit.Str(resultFileName))
	sb.WriteString("with open(_result_path, \"w\") as _rf:\n")
	sb.WriteString("    json.dump(_result, _rf)\n")
	return sb.String()
}

// indentCode shifts user code one level right so it sits inside the
// harness's try block. Blank lines stay blank.
func indentCode(code string) string {
	var sb strings.Builder
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) == "" {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString("    ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

// cappedBuffer keeps at most limit bytes and counts the rest, so truncated
// output can still report the original total size.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
	total int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	b.total += n
	if remaining := b.limit - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			p = p[:remaining]
		}
		b.buf.Write(p)
	}
	return n, nil
}

// String returns the captured output, with a truncation marker naming the
// original total size when the cap was exceeded.
func (b *cappedBuffer) String() string {
	if b.total <= b.limit {
		return b.buf.String()
	}
	return b.buf.String() + fmt.Sprintf("\n... [truncated, %d total bytes]", b.total)
}
