package sandbox

import "testing"

func TestPolicyExtend(t *testing.T) {
	base := DefaultPolicy()
	extended := base.Extend([]string{"pickle"}, nil, nil, []string{"sympy"})

	if !extended.BlockedModules["pickle"] {
		t.Error("pickle not merged into blocked modules")
	}
	if !extended.BlockedModules["os"] {
		t.Error("default blocked modules lost during merge")
	}
	if !extended.AllowedModules["sympy"] {
		t.Error("sympy not merged into allowed modules")
	}
	// The base policy is untouched.
	if base.BlockedModules["pickle"] {
		t.Error("Extend mutated the receiver's tables")
	}
}

func TestPolicyExtendValidates(t *testing.T) {
	v := NewValidator(DefaultPolicy().Extend([]string{"pickle"}, nil, nil, nil))
	verdict := v.Validate("import pickle")
	if verdict.IsValid {
		t.Error("extended blocklist not enforced")
	}
}
