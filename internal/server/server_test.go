package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rootmcp/rootmcp/internal/tools"
)

// echoTool is a minimal tool for handler tests.
type echoTool struct {
	validateErr error
	execErr     error
	result      *tools.Result
}

func (e *echoTool) Name() string                { return "echo" }
func (e *echoTool) Description() string         { return "echoes" }
func (e *echoTool) InputSchema() map[string]any { return map[string]any{"type": "object"} }
func (e *echoTool) Validate(map[string]any) error {
	return e.validateErr
}
func (e *echoTool) Execute(context.Context, map[string]any) (*tools.Result, error) {
	return e.result, e.execErr
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func callWith(t *testing.T, tool tools.Tool) *mcp.CallToolResult {
	t.Helper()
	handler := handlerFor(tool, discard())
	req := mcp.CallToolRequest{}
	req.Params.Name = tool.Name()
	req.Params.Arguments = map[string]any{"x": "y"}

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	return result
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("content is not text: %#v", result.Content[0])
	}
	return tc.Text
}

func TestHandlerSuccess(t *testing.T) {
	result := callWith(t, &echoTool{result: &tools.Result{Output: `{"status":"success"}`, Success: true}})

	if result.IsError {
		t.Error("IsError = true for a successful execution")
	}
	if got := textOf(t, result); got != `{"status":"success"}` {
		t.Errorf("text = %q, want the tool output", got)
	}
}

func TestHandlerValidationRejection(t *testing.T) {
	result := callWith(t, &echoTool{validateErr: errors.New("missing required parameter: code")})

	// Rejections are tool errors the model can read, never protocol errors.
	if !result.IsError {
		t.Error("IsError = false for a rejected call")
	}
	if got := textOf(t, result); got != "missing required parameter: code" {
		t.Errorf("text = %q, want the validation message", got)
	}
}

func TestHandlerExecutionFailure(t *testing.T) {
	result := callWith(t, &echoTool{execErr: errors.New("encoding tool response: boom")})
	if !result.IsError {
		t.Error("IsError = false for an execution failure")
	}
}

func TestHandlerUnsuccessfulResult(t *testing.T) {
	result := callWith(t, &echoTool{result: &tools.Result{Output: `{"status":"timeout"}`, Success: false}})

	// The JSON document still reaches the model, flagged as an error.
	if !result.IsError {
		t.Error("IsError = false for a failed execution")
	}
	if got := textOf(t, result); got != `{"status":"timeout"}` {
		t.Errorf("text = %q, want the result document", got)
	}
}

func TestNewRegistersTools(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(&echoTool{})

	s, err := New("rootmcp-test", "0.0.1", reg, discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s == nil || s.mcp == nil {
		t.Fatal("server not constructed")
	}
}
