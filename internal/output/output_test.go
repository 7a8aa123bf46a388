package output

import (
	"testing"

	"github.com/kilnwm/kiln/internal/drm"
	"github.com/kilnwm/kiln/internal/geom"
	"github.com/kilnwm/kiln/internal/resource"
)

func newTestOutput(w, h uint16) *Output {
	return New(drm.Connector{Type: "test"}, drm.Mode{Width: w, Height: h})
}

func TestToWorkspaceScreenspaceRoundTrip(t *testing.T) {
	o := newTestOutput(1920, 1080)
	o.SetOrigin(1920, 0)

	ws := geom.FPoint{X: 2000, Y: 50}
	ss := o.To(Workspace, Screenspace, ws)
	if ss != (geom.FPoint{X: 80, Y: 50}) {
		t.Fatalf("workspace->screenspace: got %+v", ss)
	}

	back := o.To(Screenspace, Workspace, ss)
	if back != ws {
		t.Fatalf("round trip: got %+v, want %+v", back, ws)
	}
}

func TestBounds(t *testing.T) {
	o := newTestOutput(1280, 720)
	o.SetOrigin(500, 0)

	want := geom.Region{X: 500, Y: 0, W: 1280, H: 720}
	if got := o.Bounds(); got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestAdjacentSingleHop(t *testing.T) {
	a := newTestOutput(1920, 1080)
	b := newTestOutput(1280, 720)
	LinkEast(a, b)

	if got := a.Adjacent(DirEast); got != b {
		t.Fatal("east of a should be b")
	}
	if got := b.Adjacent(DirWest); got != a {
		t.Fatal("west of b should be a")
	}
	if got := a.Adjacent(DirWest); got != nil {
		t.Fatal("a has no west neighbour")
	}
}

func TestAdjacentComposedDirectionStopsOnMissingHop(t *testing.T) {
	a := newTestOutput(1920, 1080)
	b := newTestOutput(1280, 720)
	LinkEast(a, b)

	// a has no north link, so NorthEast from a (north then east) must
	// fail at its first hop even though a's east hop alone succeeds.
	if got := a.Adjacent(DirNorthEast); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestAdjacentNeverReturnsOrigin(t *testing.T) {
	a := newTestOutput(1920, 1080)
	b := newTestOutput(1280, 720)
	LinkEast(a, b)
	LinkEast(b, a) // degenerate cycle: b's east is a

	if got := b.Adjacent(DirEast); got != a {
		t.Fatal("sanity: b east should be a")
	}
	// a.Adjacent(east) -> b; feeding east again from the *same* call
	// isn't tested here, but a direct self-loop must resolve to nil.
	a.bottom = a
	if got := a.Adjacent(DirSouth); got != nil {
		t.Fatal("adjacency resolving back to the origin output must return nil")
	}
}

func TestDirtyFlag(t *testing.T) {
	o := newTestOutput(800, 600)
	if o.TakeDirty() {
		t.Fatal("new output should not start dirty")
	}
	o.MarkDirty()
	if !o.TakeDirty() {
		t.Fatal("expected dirty after MarkDirty")
	}
	if o.TakeDirty() {
		t.Fatal("TakeDirty should clear the flag")
	}
}

func TestByConnectorNameExactMatch(t *testing.T) {
	m := &Manager{}
	hdmi := New(drm.Connector{Type: "HDMI-A-1"}, drm.Mode{Width: 1920, Height: 1080})
	dp := New(drm.Connector{Type: "DP-1"}, drm.Mode{Width: 1280, Height: 1024})
	m.outputs = append(m.outputs, resource.New(hdmi), resource.New(dp))

	ref, ok := m.ByConnectorName("DP-1")
	if !ok || ref.Get() != dp {
		t.Fatalf("expected to find DP-1, got ok=%v", ok)
	}
	if _, ok := m.ByConnectorName("hdmi-a-1"); ok {
		t.Fatal("lookup must be case-sensitive")
	}
	if _, ok := m.ByConnectorName("HDMI-A-2"); ok {
		t.Fatal("lookup of unknown connector must fail")
	}
}
