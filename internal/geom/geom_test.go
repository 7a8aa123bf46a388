package geom

import "testing"

func TestRegionContainsHalfOpenOnMaxEdge(t *testing.T) {
	r := Region{X: 10, Y: 10, W: 20, H: 20}

	if !r.Contains(FPoint{X: 10, Y: 10}) {
		t.Fatal("min corner should be inside")
	}
	if r.Contains(FPoint{X: 30, Y: 15}) {
		t.Fatal("x == X+W should be outside (half-open)")
	}
	if r.Contains(FPoint{X: 15, Y: 30}) {
		t.Fatal("y == Y+H should be outside (half-open)")
	}
	if !r.Contains(FPoint{X: 29.999, Y: 29.999}) {
		t.Fatal("just inside the max edge should be inside")
	}
}

func TestRegionIntersects(t *testing.T) {
	a := Region{X: 0, Y: 0, W: 10, H: 10}
	b := Region{X: 5, Y: 5, W: 10, H: 10}
	c := Region{X: 20, Y: 20, W: 5, H: 5}

	if !a.Intersects(b) {
		t.Fatal("overlapping regions should intersect")
	}
	if a.Intersects(c) {
		t.Fatal("disjoint regions should not intersect")
	}
}

func TestRegionClamp(t *testing.T) {
	r := Region{X: 0, Y: 0, W: 100, H: 50}

	got := r.Clamp(FPoint{X: -5, Y: 200})
	if got.X != 0 || got.Y != 50 {
		t.Fatalf("got %+v, want clamped to (0, 50)", got)
	}

	inside := FPoint{X: 10, Y: 10}
	if got := r.Clamp(inside); got != inside {
		t.Fatalf("point already inside should be unchanged: got %+v", got)
	}
}

func TestFPointAddSub(t *testing.T) {
	a := FPoint{X: 3, Y: 4}
	b := FPoint{X: 1, Y: 2}

	if got := a.Add(b); got != (FPoint{X: 4, Y: 6}) {
		t.Fatalf("Add: got %+v", got)
	}
	if got := a.Sub(b); got != (FPoint{X: 2, Y: 2}) {
		t.Fatalf("Sub: got %+v", got)
	}
}
