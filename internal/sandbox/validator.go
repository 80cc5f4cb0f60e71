package sandbox

import (
	"fmt"
	"strings"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"
)

// Verdict is the outcome of validating one source string.
// IsValid starts true and becomes permanently false the moment an error is
// added. Warnings never affect validity.
type Verdict struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// AddError records an error and marks the verdict invalid.
func (v *Verdict) AddError(msg string) {
	v.Errors = append(v.Errors, msg)
	v.IsValid = false
}

// AddWarning records a warning.
func (v *Verdict) AddWarning(msg string) {
	v.Warnings = append(v.Warnings, msg)
}

// Validator statically vets Python source against a Policy.
// Safe for concurrent use: it holds only the read-only policy.
type Validator struct {
	policy Policy
}

// NewValidator creates a Validator. A zero MaxCodeLength falls back to
// DefaultMaxCodeLength; nil name sets fall back to the default policy's.
func NewValidator(policy Policy) *Validator {
	defaults := DefaultPolicy()
	if policy.BlockedModules == nil {
		policy.BlockedModules = defaults.BlockedModules
	}
	if policy.BlockedAttributes == nil {
		policy.BlockedAttributes = defaults.BlockedAttributes
	}
	if policy.BlockedBuiltins == nil {
		policy.BlockedBuiltins = defaults.BlockedBuiltins
	}
	if policy.AllowedModules == nil {
		policy.AllowedModules = defaults.AllowedModules
	}
	if policy.MaxCodeLength <= 0 {
		policy.MaxCodeLength = DefaultMaxCodeLength
	}
	return &Validator{policy: policy}
}

// Validate checks one source string and returns a Verdict. It never panics
// and never returns an error: length, emptiness, and syntax failures are all
// expressed as an invalid verdict.
func (v *Validator) Validate(source string) *Verdict {
	verdict := &Verdict{IsValid: true}

	// Length check short-circuits before any parsing.
	if len(source) > v.policy.MaxCodeLength {
		verdict.AddError(fmt.Sprintf(
			"code exceeds maximum length: %d > %d", len(source), v.policy.MaxCodeLength))
		return verdict
	}

	if strings.TrimSpace(source) == "" {
		verdict.AddError("empty code submitted")
		return verdict
	}

	tree, err := parser.ParseString(source, py.ExecMode)
	if err != nil {
		verdict.AddError(fmt.Sprintf("syntax error: %v", err))
		return verdict
	}

	// Walk every node once. The four checks are independent: a single node
	// may trigger more than one.
	ast.Walk(tree, func(node ast.Ast) bool {
		v.checkImports(node, verdict)
		v.checkAttributes(node, verdict)
		v.checkCalls(node, verdict)
		v.checkOpen(node, verdict)
		return true
	})

	return verdict
}

// checkImports classifies import statements by the root segment of the
// module path: blocked is an error, unlisted is a warning, allowed is silent.
func (v *Validator) checkImports(node ast.Ast, verdict *Verdict) {
	switch n := node.(type) {
	case *ast.Import:
		for _, alias := range n.Names {
			name := string(alias.Name)
			root := moduleRoot(name)
			if v.policy.BlockedModules[root] {
				verdict.AddError(fmt.Sprintf(
					"blocked import: %q (module %q is not allowed)", name, root))
			} else if !v.policy.AllowedModules[root] {
				verdict.AddWarning(fmt.Sprintf("unknown module: %q (not in allowlist)", name))
			}
		}
	case *ast.ImportFrom:
		// A relative import with no module ("from . import x") is not checked.
		if n.Module == "" {
			return
		}
		name := string(n.Module)
		root := moduleRoot(name)
		if v.policy.BlockedModules[root] {
			verdict.AddError(fmt.Sprintf(
				"blocked import: \"from %s import ...\" (module %q is not allowed)", name, root))
		} else if !v.policy.AllowedModules[root] {
			verdict.AddWarning(fmt.Sprintf("unknown module: %q (not in allowlist)", name))
		}
	}
}

// checkAttributes rejects blocked member names on any base expression.
func (v *Validator) checkAttributes(node ast.Ast, verdict *Verdict) {
	attr, ok := node.(*ast.Attribute)
	if !ok {
		return
	}
	if v.policy.BlockedAttributes[string(attr.Attr)] {
		verdict.AddError(fmt.Sprintf("blocked attribute access: '.%s'", attr.Attr))
	}
}

// checkCalls rejects direct calls to blocked builtins. Only bare-name
// callees count; member-access calls are covered by the attribute check.
func (v *Validator) checkCalls(node ast.Ast, verdict *Verdict) {
	call, ok := node.(*ast.Call)
	if !ok {
		return
	}
	name, ok := call.Func.(*ast.Name)
	if !ok {
		return
	}
	if v.policy.BlockedBuiltins[string(name.Id)] {
		verdict.AddError(fmt.Sprintf("blocked built-in call: '%s()'", name.Id))
	}
}

// checkOpen warns on direct open() calls. File access is legitimate for
// ROOT scripts writing results, so this is advisory only; at runtime the
// process is confined to its execution workspace by working directory, not
// by enforcement here.
func (v *Validator) checkOpen(node ast.Ast, verdict *Verdict) {
	call, ok := node.(*ast.Call)
	if !ok {
		return
	}
	if name, ok := call.Func.(*ast.Name); ok && string(name.Id) == "open" {
		verdict.AddWarning(
			"code uses open(): file access is allowed but limited to the working directory at runtime")
	}
}

func moduleRoot(module string) string {
	if i := strings.IndexByte(module, '.'); i >= 0 {
		return module[:i]
	}
	return module
}
