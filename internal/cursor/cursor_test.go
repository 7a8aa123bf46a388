package cursor

import (
	"testing"

	"github.com/kilnwm/kiln/internal/drm"
	"github.com/kilnwm/kiln/internal/geom"
	"github.com/kilnwm/kiln/internal/output"
	"github.com/kilnwm/kiln/internal/signal"
)

func newOutput(w, h uint16) *output.Output {
	return output.New(drm.Connector{Type: "test"}, drm.Mode{Width: w, Height: h})
}

// TestCrossOutputWarpScalesAndSnapsToEntryEdge reproduces spec.md §8
// scenario 3: a cursor crossing east off a 1920x1080 output onto a
// 1280x720 neighbour lands at the new output's left edge with its Y
// scaled by the mode ratio.
func TestCrossOutputWarpScalesAndSnapsToEntryEdge(t *testing.T) {
	o1 := newOutput(1920, 1080)
	o2 := newOutput(1280, 720)
	output.LinkEast(o1, o2)

	m := &Manager{}
	m.SetOutput(o1)
	m.SetPosition(geom.FPoint{X: 1919, Y: 540})

	m.onRelativeMotion(20, 0) // dx*0.1 = +2, crosses the 1920 edge

	if m.CurrentOutput() != o2 {
		t.Fatalf("cursor should have transferred to o2, got %+v", m.CurrentOutput())
	}
	pos := m.Position()
	if pos.X != 0 {
		t.Fatalf("entering east should snap x to 0, got %v", pos.X)
	}
	if pos.Y != 360 {
		t.Fatalf("y should scale by 720/1080: got %v, want 360", pos.Y)
	}
}

func TestNoAdjacentOutputClampsInsteadOfTransferring(t *testing.T) {
	o := newOutput(800, 600)
	m := &Manager{}
	m.SetOutput(o)
	m.SetPosition(geom.FPoint{X: 799, Y: 300})

	m.onRelativeMotion(50, 0) // would cross x=800 with no adjacent output

	if m.CurrentOutput() != o {
		t.Fatal("should not transfer output when no adjacency exists")
	}
	pos := m.Position()
	if pos.X != 800 {
		t.Fatalf("x should clamp to the output width, got %v", pos.X)
	}
	if pos.Y != 300 {
		t.Fatalf("y should be unaffected by an x-axis clamp, got %v", pos.Y)
	}
}

func TestWestEdgeTransferSnapsToFarRightEdge(t *testing.T) {
	o1 := newOutput(1920, 1080)
	o2 := newOutput(1280, 720)
	output.LinkEast(o1, o2)

	m := &Manager{}
	m.SetOutput(o2)
	m.SetPosition(geom.FPoint{X: 0, Y: 100})

	m.onRelativeMotion(-20, 0)

	if m.CurrentOutput() != o1 {
		t.Fatal("should transfer west onto o1")
	}
	if got := m.Position().X; got != float64(o1.Mode().Width)-1 {
		t.Fatalf("west entry should snap to the far right edge: got %v, want %v", got, o1.Mode().Width-1)
	}
}

func TestSetOutputDisconnectsPreviousPaintListener(t *testing.T) {
	o1 := newOutput(800, 600)
	o2 := newOutput(800, 600)

	m := &Manager{}
	m.SetOutput(o1)
	calls := 0
	m.texture = nil
	_ = calls

	m.SetOutput(o2)
	if m.CurrentOutput() != o2 {
		t.Fatal("expected current output to be o2 after SetOutput")
	}
	// o1's top-layer bus should have no remaining listener from m.
	if o1.OnRepaint.At(signal.LayerTop).Len() != 0 {
		t.Fatal("previous output's top-layer paint listener should be disconnected")
	}
}
