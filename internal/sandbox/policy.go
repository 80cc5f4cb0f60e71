// Package sandbox provides best-effort static validation of user-submitted
// Python/PyROOT code before it is executed in a subprocess. It is NOT a hard
// security boundary: it catches common dangerous patterns but cannot prevent
// all possible exploits. Attribute blocking matches by bare name, so a
// user-defined .kill() method is rejected too (over-blocking) while a renamed
// alias of a dangerous call slips through (under-blocking). Both are accepted
// tradeoffs of a name-based policy.
package sandbox

// Policy is the static rule set the validator enforces. It is pure data:
// construct it once, share it read-only across concurrent validations.
type Policy struct {
	// BlockedModules are import roots that are always rejected.
	BlockedModules map[string]bool

	// BlockedAttributes are member names rejected wherever they appear,
	// regardless of the object they are accessed on.
	BlockedAttributes map[string]bool

	// BlockedBuiltins are bare callable names rejected when invoked directly.
	BlockedBuiltins map[string]bool

	// AllowedModules are import roots considered safe. An import outside
	// both BlockedModules and AllowedModules is a warning, not an error.
	AllowedModules map[string]bool

	// MaxCodeLength is the maximum accepted source length in characters.
	MaxCodeLength int
}

// DefaultMaxCodeLength bounds submitted source size.
const DefaultMaxCodeLength = 100_000

// DefaultPolicy returns the shipped rule set: shell/OS/network/dynamic-import
// access blocked, the scientific Python stack and ROOT allowed.
func DefaultPolicy() Policy {
	return Policy{
		BlockedModules: newSet(
			"os", "subprocess", "shutil", "socket", "http", "urllib",
			"requests", "httpx", "aiohttp", "ftplib", "smtplib", "telnetlib",
			"ctypes", "multiprocessing", "signal", "resource", "pty", "fcntl",
			"termios", "webbrowser", "code", "codeop", "compileall",
			"importlib", "runpy", "ensurepip", "pip",
		),
		BlockedAttributes: newSet(
			// os.system / os.popen / os.exec* / os.spawn*
			"system", "popen", "exec", "spawn",
			"execv", "execve", "execvp", "execvpe",
			"spawnl", "spawnle", "spawnlp", "spawnlpe",
			"spawnv", "spawnve", "spawnvp", "spawnvpe",
			"fork", "forkpty", "kill", "killpg",
			// file/tree deletion
			"remove", "unlink", "rmdir", "removedirs", "rmtree",
		),
		BlockedBuiltins: newSet(
			"exec", "eval", "compile", "__import__", "breakpoint",
		),
		AllowedModules: newSet(
			"ROOT", "math", "cmath", "array", "json", "csv", "io", "sys",
			"collections", "itertools", "functools", "operator", "copy",
			"re", "datetime", "time", "pathlib", "typing", "dataclasses",
			"enum", "abc", "numbers", "decimal", "fractions", "statistics",
			"random", "struct", "textwrap", "string",
			"numpy", "scipy", "matplotlib", "awkward", "uproot", "pandas", "hist",
		),
		MaxCodeLength: DefaultMaxCodeLength,
	}
}

// Extend returns a copy of the policy with the given names merged into its
// tables. Nil slices leave the corresponding table unchanged.
func (p Policy) Extend(blockedModules, blockedAttributes, blockedBuiltins, allowedModules []string) Policy {
	p.BlockedModules = mergeSet(p.BlockedModules, blockedModules)
	p.BlockedAttributes = mergeSet(p.BlockedAttributes, blockedAttributes)
	p.BlockedBuiltins = mergeSet(p.BlockedBuiltins, blockedBuiltins)
	p.AllowedModules = mergeSet(p.AllowedModules, allowedModules)
	return p
}

func mergeSet(base map[string]bool, extra []string) map[string]bool {
	if len(extra) == 0 {
		return base
	}
	merged := make(map[string]bool, len(base)+len(extra))
	for n := range base {
		merged[n] = true
	}
	for _, n := range extra {
		merged[n] = true
	}
	return merged
}

func newSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
