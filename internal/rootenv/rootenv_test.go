package rootenv

import (
	"context"
	"testing"
)

func TestStatusMemoized(t *testing.T) {
	p := NewProbe("definitely-not-an-interpreter")

	first := p.Status(context.Background())
	if first.PythonAvailable {
		t.Fatal("python available = true for a nonexistent interpreter")
	}

	// Injected status is returned until refreshed.
	p.SetStatus(Status{PythonAvailable: true, RootAvailable: true, RootVersion: "6.30/04"})
	got := p.Status(context.Background())
	if !got.RootAvailable || got.RootVersion != "6.30/04" {
		t.Errorf("status = %+v, want injected value", got)
	}

	p.Refresh()
	if got := p.Status(context.Background()); got.RootAvailable {
		t.Errorf("status after refresh = %+v, want re-probed failure", got)
	}
}

func TestMissingInterpreterDetail(t *testing.T) {
	p := NewProbe("definitely-not-an-interpreter")
	got := p.Status(context.Background())
	if got.Detail == "" {
		t.Error("detail is empty, want an explanation")
	}
	if got.RootAvailable {
		t.Error("root available = true, want false")
	}
}
