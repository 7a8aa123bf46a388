package surface

import "github.com/kilnwm/kiln/internal/wire"

var subsurfaceRoleID = NewRoleID()

// wl_subcompositor request opcodes.
const (
	opSubcompositorDestroy       = 0
	opSubcompositorGetSubsurface = 1
)

// wl_subsurface request opcodes.
const (
	opSubsurfaceDestroy     = 0
	opSubsurfaceSetPosition = 1
	opSubsurfacePlaceAbove  = 2
	opSubsurfacePlaceBelow  = 3
	opSubsurfaceSetSync     = 4
	opSubsurfaceSetDesync   = 5
)

// wl_subcompositor.error.bad_surface.
const errSubBadSurface = 0

// Subsurface is the role wl_subcompositor.get_subsurface attaches to a
// base wl_surface, spec.md §4.8: "Position change is double-buffered
// on the parent... Desync mode is accepted but treated as sync for
// simplicity." Only sync mode is implemented (Surface.Commit defers
// entirely to the owning parent's commit walk for any surface wearing
// this role).
type Subsurface struct {
	resource *wire.Resource

	surface *Surface // the base surface this role is attached to
	parent  *Surface

	pendingX, pendingY int32
	offsetX, offsetY   int32
}

func (s *Subsurface) RoleID() RoleID { return subsurfaceRoleID }

// Offset returns the subsurface's last-applied position relative to
// its parent, what the renderer adds to the parent's screen position.
func (s *Subsurface) Offset() (int32, int32) { return s.offsetX, s.offsetY }

// Child returns the base surface wearing this role.
func (s *Subsurface) Child() *Surface { return s.surface }

func (s *Subsurface) applyPendingPosition() {
	s.offsetX, s.offsetY = s.pendingX, s.pendingY
}

// Subcompositor is the wl_subcompositor global.
type Subcompositor struct {
	global *wire.Global
}

// NewSubcompositor installs the wl_subcompositor global on display.
func NewSubcompositor(display *wire.Display) *Subcompositor {
	sc := &Subcompositor{}
	iface := wire.SubcompositorInterface()
	sc.global = wire.NewGlobal(display, iface, func(client wire.Client, ver, id uint32) {
		wire.NewResource(client, iface, ver, id, &subcompositorDispatcher{})
	})
	return sc
}

type subcompositorDispatcher struct{}

func (d *subcompositorDispatcher) Destroy() {}

func (d *subcompositorDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	switch opcode {
	case opSubcompositorDestroy:
		r.Destroy()
	case opSubcompositorGetSubsurface:
		if len(args) < 3 {
			return
		}
		id := args[0].Uint
		child := FromResource(args[1].Object)
		parent := FromResource(args[2].Object)
		if child == nil || parent == nil {
			return
		}
		if child.Role() != nil {
			r.PostError(errSubBadSurface, "surface already has a role")
			return
		}
		sub := &Subsurface{surface: child, parent: parent}
		if err := child.AssignRole(sub); err != nil {
			r.PostError(errSubBadSurface, err.Error())
			return
		}
		sd := &subsurfaceDispatcher{sub: sub}
		sub.resource = wire.NewResource(r.Client(), wire.SubsurfaceInterface(), r.Version(), id, sd)
		parent.pending.newChildren = append(parent.pending.newChildren, sub)
	}
}

type subsurfaceDispatcher struct{ sub *Subsurface }

func (d *subsurfaceDispatcher) Destroy() {
	sub := d.sub
	sub.surface.ReleaseRole()
	removeChild(sub.parent, sub)
}

func (d *subsurfaceDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	sub := d.sub
	switch opcode {
	case opSubsurfaceDestroy:
		r.Destroy()
	case opSubsurfaceSetPosition:
		if len(args) < 2 {
			return
		}
		sub.pendingX, sub.pendingY = args[0].Int, args[1].Int
	case opSubsurfacePlaceAbove, opSubsurfacePlaceBelow:
		log.Debug("subsurface stacking request ignored, paint order follows creation order")
	case opSubsurfaceSetSync:
		// already sync-only.
	case opSubsurfaceSetDesync:
		log.Debug("set_desync requested; treated as sync")
	}
}

func removeChild(parent *Surface, sub *Subsurface) {
	for i, c := range parent.current.children {
		if c == sub {
			parent.current.children = append(parent.current.children[:i], parent.current.children[i+1:]...)
			break
		}
	}
	for i, c := range parent.pending.newChildren {
		if c == sub {
			parent.pending.newChildren = append(parent.pending.newChildren[:i], parent.pending.newChildren[i+1:]...)
			break
		}
	}
}
