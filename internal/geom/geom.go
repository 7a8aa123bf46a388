// Package geom provides the small fixed set of geometric primitives shared
// across the output, surface, cursor and xdg-shell packages.
package geom

// Point is an integer-valued 2D point, used for buffer-local coordinates
// such as cursor hotspots.
type Point struct {
	X, Y int32
}

// FPoint is a floating point 2D point, used for workspace and screenspace
// coordinates which accumulate sub-pixel deltas from relative pointer
// motion.
type FPoint struct {
	X, Y float64
}

func (p FPoint) Add(o FPoint) FPoint { return FPoint{p.X + o.X, p.Y + o.Y} }
func (p FPoint) Sub(o FPoint) FPoint { return FPoint{p.X - o.X, p.Y - o.Y} }

// Size is an integer width/height pair.
type Size struct {
	W, H int32
}

// Region is an axis-aligned rectangle in either workspace or screenspace,
// depending on context. Ported from the original compositor's
// region_t/region.cpp: used both for hit-testing (xdg-shell window rects)
// and for clamping the cursor to an output's viewport when it has no
// adjacent neighbour to warp onto.
type Region struct {
	X, Y float64
	W, H float64
}

// Contains reports whether p lies within the region, half-open on the max
// edge (x in [X, X+W), y in [Y, Y+H)) as required by spec's hit-test
// monotonicity invariant.
func (r Region) Contains(p FPoint) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Intersects reports whether r and o share any area, used to cull windows
// that are fully off an output's visible region before painting.
func (r Region) Intersects(o Region) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Clamp returns p clamped to the closed rectangle [X, X+W] x [Y, Y+H],
// used when the cursor overflows an output edge with no adjacent output
// to warp onto. The max edges themselves are possible results, although
// Contains excludes them.
func (r Region) Clamp(p FPoint) FPoint {
	out := p
	if out.X < r.X {
		out.X = r.X
	} else if out.X > r.X+r.W {
		out.X = r.X + r.W
	}
	if out.Y < r.Y {
		out.Y = r.Y
	} else if out.Y > r.Y+r.H {
		out.Y = r.Y + r.H
	}
	return out
}
