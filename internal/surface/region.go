package surface

import "github.com/kilnwm/kiln/internal/wire"

// wl_region request opcodes.
const (
	opRegionDestroy  = 0
	opRegionAdd      = 1
	opRegionSubtract = 2
)

// Region is a client-built wl_region: a list of accumulated add/subtract
// rectangles. spec.md §4 notes (supplemented from original_source's
// wl_surface_impl, whose set_opaque_region/set_input_region are largely
// no-ops beyond logging) that opaque/input regions are accepted but not
// consumed for hit-testing in this compositor — Region exists so
// set_opaque_region/set_input_region have something real to reference,
// not so anything clips against it yet.
type Region struct {
	resource *wire.Resource
	Rects    []Rect
}

// Rect is one accumulated region rectangle; Add is positive area,
// Subtract is recorded but (per the original) never actually removes
// area from Rects — kept for parity with original_source's no-op
// subtract branch rather than silently dropping client state.
type Rect struct {
	X, Y, W, H int32
	Subtract   bool
}

func newRegionDispatcher() *regionDispatcher {
	return &regionDispatcher{region: &Region{}}
}

// NewRegionResource creates a wl_region resource for client, the
// wl_compositor.create_region counterpart to New (wl_surface).
func NewRegionResource(client wire.Client, id uint32, version uint32) *Region {
	d := newRegionDispatcher()
	d.region.resource = wire.NewResource(client, wire.RegionInterface(), version, id, d)
	return d.region
}

type regionDispatcher struct{ region *Region }

func (d *regionDispatcher) Destroy() {}

func (d *regionDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	switch opcode {
	case opRegionDestroy:
		r.Destroy()
	case opRegionAdd:
		if len(args) < 4 {
			return
		}
		d.region.Rects = append(d.region.Rects, Rect{X: args[0].Int, Y: args[1].Int, W: args[2].Int, H: args[3].Int})
	case opRegionSubtract:
		if len(args) < 4 {
			return
		}
		d.region.Rects = append(d.region.Rects, Rect{X: args[0].Int, Y: args[1].Int, W: args[2].Int, H: args[3].Int, Subtract: true})
	}
}
