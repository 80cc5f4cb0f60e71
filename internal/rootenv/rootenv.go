// Package rootenv probes whether a Python interpreter with PyROOT is
// available on the host. The probe is an injected capability object, not
// process-wide state: callers construct one, share it, and can Refresh()
// it after changing the environment. Tests inject a fixed Status instead
// of touching globals.
package rootenv

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// probeScript imports ROOT and prints its version on one line.
const probeScript = "import ROOT; print(ROOT.gROOT.GetVersion())"

const probeTimeout = 30 * time.Second

// Status is the outcome of one availability probe.
type Status struct {
	PythonAvailable bool   `json:"python_available"`
	RootAvailable   bool   `json:"root_available"`
	RootVersion     string `json:"root_version,omitempty"`
	Detail          string `json:"detail,omitempty"`
}

// Probe checks ROOT availability, memoizing the first result.
type Probe struct {
	python string

	mu     sync.Mutex
	cached *Status
}

// NewProbe creates a Probe for the given interpreter ("python3" if empty).
func NewProbe(python string) *Probe {
	if python == "" {
		python = "python3"
	}
	return &Probe{python: python}
}

// Status returns the probe result, running the check on first call and
// returning the memoized result afterwards.
func (p *Probe) Status(ctx context.Context) Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == nil {
		s := p.check(ctx)
		p.cached = &s
	}
	return *p.cached
}

// Refresh drops the memoized result so the next Status call re-probes.
func (p *Probe) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}

// SetStatus overrides the memoized result. Intended for tests and for
// callers that already know the environment's capabilities.
func (p *Probe) SetStatus(s Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = &s
}

func (p *Probe) check(ctx context.Context) Status {
	if _, err := exec.LookPath(p.python); err != nil {
		return Status{Detail: p.python + " not found in PATH"}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, p.python, "-c", probeScript).Output()
	if err != nil {
		return Status{
			PythonAvailable: true,
			Detail:          "PyROOT import failed: " + err.Error(),
		}
	}

	return Status{
		PythonAvailable: true,
		RootAvailable:   true,
		RootVersion:     strings.TrimSpace(string(out)),
	}
}
