package sandbox

import (
	"strings"
	"testing"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	return NewValidator(DefaultPolicy())
}

func TestValidateLengthShortCircuitsParse(t *testing.T) {
	v := NewValidator(Policy{MaxCodeLength: 10})

	// Syntactically invalid on purpose: the length check must reject the
	// source before the parser ever sees it.
	verdict := v.Validate("def broken(((((" + strings.Repeat("x", 20))
	if verdict.IsValid {
		t.Fatal("verdict valid, want invalid")
	}
	if len(verdict.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", verdict.Errors)
	}
	if !strings.Contains(verdict.Errors[0], "maximum length") {
		t.Errorf("error = %q, want length overage message", verdict.Errors[0])
	}
}

func TestValidateEmptyCode(t *testing.T) {
	v := newTestValidator(t)
	for _, src := range []string{"", "   ", "\n\t\n"} {
		verdict := v.Validate(src)
		if verdict.IsValid {
			t.Errorf("Validate(%q) valid, want invalid", src)
		}
	}
}

func TestValidateSyntaxError(t *testing.T) {
	v := newTestValidator(t)
	verdict := v.Validate("def f(:\n    pass")
	if verdict.IsValid {
		t.Fatal("verdict valid, want invalid")
	}
	if len(verdict.Errors) != 1 || !strings.Contains(verdict.Errors[0], "syntax error") {
		t.Errorf("errors = %v, want one syntax error", verdict.Errors)
	}
}

func TestValidateBlockedImports(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name string
		src  string
		want string // substring expected in the error
	}{
		{"plain import", "import os", "os"},
		{"from import", "from subprocess import run", "subprocess"},
		{"dotted module", "import http.server", "http"},
		{"dotted from", "from urllib.request import urlopen", "urllib"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			verdict := v.Validate(tc.src)
			if verdict.IsValid {
				t.Fatalf("Validate(%q) valid, want invalid", tc.src)
			}
			if len(verdict.Errors) == 0 || !strings.Contains(verdict.Errors[0], tc.want) {
				t.Errorf("errors = %v, want mention of %q", verdict.Errors, tc.want)
			}
		})
	}
}

func TestValidateAllowedImportSilent(t *testing.T) {
	v := newTestValidator(t)
	verdict := v.Validate("import ROOT\nimport numpy\nimport math")
	if !verdict.IsValid {
		t.Fatalf("verdict invalid: %v", verdict.Errors)
	}
	if len(verdict.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", verdict.Warnings)
	}
}

func TestValidateUnknownImportWarns(t *testing.T) {
	v := newTestValidator(t)
	verdict := v.Validate("import somethingobscure")
	if !verdict.IsValid {
		t.Fatalf("verdict invalid: %v", verdict.Errors)
	}
	if len(verdict.Warnings) == 0 || !strings.Contains(verdict.Warnings[0], "somethingobscure") {
		t.Errorf("warnings = %v, want unknown-module warning", verdict.Warnings)
	}
}

func TestValidateRelativeImportNotChecked(t *testing.T) {
	v := newTestValidator(t)
	verdict := v.Validate("from . import helpers")
	if !verdict.IsValid {
		t.Fatalf("verdict invalid: %v", verdict.Errors)
	}
}

func TestValidateBlockedAttributes(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name string
		src  string
		attr string
	}{
		{"system on arbitrary base", "x.system(\"ls\")", ".system"},
		{"kill on domain object", "proc.kill()", ".kill"},
		{"rmtree", "sh.rmtree(\"/data\")", ".rmtree"},
		{"bare access without call", "y = thing.unlink", ".unlink"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			verdict := v.Validate(tc.src)
			if verdict.IsValid {
				t.Fatalf("Validate(%q) valid, want invalid", tc.src)
			}
			if !strings.Contains(strings.Join(verdict.Errors, "; "), tc.attr) {
				t.Errorf("errors = %v, want mention of %q", verdict.Errors, tc.attr)
			}
		})
	}
}

func TestValidateBlockedBuiltins(t *testing.T) {
	v := newTestValidator(t)

	for _, src := range []string{
		"exec(\"print(1)\")",
		"eval(\"1+1\")",
		"compile(\"x\", \"<s>\", \"exec\")",
		"__import__(\"os\")",
	} {
		verdict := v.Validate(src)
		if verdict.IsValid {
			t.Errorf("Validate(%q) valid, want invalid", src)
		}
	}

	// Ordinary builtins pass.
	verdict := v.Validate("print(len([1, 2, 3]))")
	if !verdict.IsValid {
		t.Errorf("ordinary builtin call rejected: %v", verdict.Errors)
	}
}

func TestValidateOpenWarns(t *testing.T) {
	v := newTestValidator(t)
	verdict := v.Validate("f = open(\"out.txt\", \"w\")")
	if !verdict.IsValid {
		t.Fatalf("verdict invalid: %v", verdict.Errors)
	}
	if len(verdict.Warnings) == 0 || !strings.Contains(verdict.Warnings[0], "open()") {
		t.Errorf("warnings = %v, want open() advisory", verdict.Warnings)
	}
}

func TestValidateMultipleViolationsAccumulate(t *testing.T) {
	v := newTestValidator(t)
	verdict := v.Validate("import os\nos.system(\"ls\")\neval(\"x\")")
	if verdict.IsValid {
		t.Fatal("verdict valid, want invalid")
	}
	if len(verdict.Errors) < 3 {
		t.Errorf("errors = %v, want at least 3 (import, attribute, builtin)", verdict.Errors)
	}
}

func TestValidateIdempotent(t *testing.T) {
	v := newTestValidator(t)
	src := "import os\nimport mystery\nprint(open(\"x\"))"

	a := v.Validate(src)
	b := v.Validate(src)

	if a.IsValid != b.IsValid {
		t.Errorf("validity differs: %v vs %v", a.IsValid, b.IsValid)
	}
	if strings.Join(a.Errors, "|") != strings.Join(b.Errors, "|") {
		t.Errorf("errors differ: %v vs %v", a.Errors, b.Errors)
	}
	if strings.Join(a.Warnings, "|") != strings.Join(b.Warnings, "|") {
		t.Errorf("warnings differ: %v vs %v", a.Warnings, b.Warnings)
	}
}

func TestValidateCleanAnalysisCode(t *testing.T) {
	v := newTestValidator(t)
	src := `import ROOT
import math

rdf = ROOT.RDataFrame("events", "data.root")
h = rdf.Histo1D("pt")
print(h.GetMean(), math.pi)
`
	verdict := v.Validate(src)
	if !verdict.IsValid {
		t.Fatalf("verdict invalid: %v", verdict.Errors)
	}
	if len(verdict.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", verdict.Warnings)
	}
}
