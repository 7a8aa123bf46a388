// Package surface implements the base wl_surface, its role-exclusivity
// system, and the subsurface tree of spec.md §3 ("Surface (base)") and
// §4.8 ("Surface and subsurface commit"). Request handling (destroy,
// attach, frame, the defunct-role-object destroy guard, the
// frame-callback race-guard destructor) is grounded on
// original_source/src/core/surface.cpp's base_surface_t; the pending/
// current double-buffered commit and subsurface tree that
// original_source's render/opengl.cpp and compositor.cpp assume but
// whose backing struct never actually appears in the retrieval pack are
// built directly from spec.md §3/§4.8's explicit invariants instead —
// recorded as an Open Question in DESIGN.md.
package surface

import (
	"errors"

	"github.com/kilnwm/kiln/internal/geom"
	"github.com/kilnwm/kiln/internal/klog"
	"github.com/kilnwm/kiln/internal/shm"
	"github.com/kilnwm/kiln/internal/signal"
	"github.com/kilnwm/kiln/internal/wire"
)

var log = klog.For("surface")

// wl_surface request opcodes.
const (
	opSurfaceDestroy            = 0
	opSurfaceAttach             = 1
	opSurfaceDamage             = 2
	opSurfaceFrame              = 3
	opSurfaceSetOpaqueRegion    = 4
	opSurfaceSetInputRegion     = 5
	opSurfaceCommit             = 6
	opSurfaceSetBufferTransform = 7
	opSurfaceSetBufferScale     = 8
	opSurfaceDamageBuffer       = 9
	opSurfaceOffset             = 10
)

// wl_surface.error.defunct_role_object, posted by Destroy when a role
// is still attached — matches WL_SURFACE_ERROR_DEFUNCT_ROLE_OBJECT.
const errDefunctRoleObject = 4

// wl_callback event.
const evtCallbackDone = 0

// ErrHasRole is returned by AssignRole when the surface already carries
// a role — callers translate it into the protocol-specific bad_surface
// error for their own interface (xdg_wm_base.get_xdg_surface uses a
// different error code than wl_subcompositor.get_subsurface).
var ErrHasRole = errors.New("surface: already has a role")

// state is the pending/current double-buffered set spec.md §4.8
// describes: "Pending accumulates: attached buffer, damage rects,
// frame-callback resource, subsurface additions, input/opaque regions.
// commit atomically swaps pending -> current and re-empties pending."
type state struct {
	buffer         *shm.Buffer
	bufferAttached bool // true once this cycle's attach (even a detach) runs, so Commit known whether to overwrite
	damage         []geom.Region
	frameCallback  *wire.Resource
	opaque, input  *Region
	newChildren    []*Subsurface
	offsetX        int32
	offsetY        int32
}

// Surface is the Go analogue of base_surface_t, plus the pending/
// current split original_source's header lacks but spec.md §4.8
// requires.
type Surface struct {
	resource *wire.Resource

	role Role

	pending state
	current struct {
		buffer        *shm.Buffer
		frameCallback *wire.Resource
		children      []*Subsurface
	}

	// previousBuffer is the buffer a commit replaced in current, held
	// until the next time this surface is actually drawn — spec.md §8's
	// buffer-lifecycle scenario: a buffer that is superseded by a second
	// commit before ever being scanned out is still released exactly
	// once, on the scanout that draws its replacement.
	previousBuffer *shm.Buffer

	// OnBufferAttached mirrors base_surface_t::on_buffer_attached,
	// fired synchronously from the attach request (not staged through
	// commit) — original_source/src/core/surface.cpp's
	// wl_surface_attach emits immediately, and xdg_toplevel's
	// auto-size-on-first-buffer hook (spec.md §4.9) needs the buffer's
	// dimensions before the surface is necessarily committed.
	OnBufferAttached signal.Signal[*shm.Buffer]
}

// New creates a wl_surface resource for client, wiring its dispatcher,
// mirroring wl_compositor_t::handle_create_surface.
func New(client wire.Client, id uint32, version uint32) *Surface {
	s := &Surface{}
	d := &surfaceDispatcher{s: s}
	s.resource = wire.NewResource(client, wire.SurfaceInterface(), version, id, d)
	return s
}

// Resource returns the backing wl_surface protocol resource.
func (s *Surface) Resource() *wire.Resource { return s.resource }

// FromResource resolves r back to the *Surface it backs, or nil if r
// is not a wl_surface resource. Used by internal/xdgshell and this
// package's own subcompositor glue to resolve a wl_surface object
// argument without a second client-side lookup table.
func FromResource(r *wire.Resource) *Surface {
	if r == nil {
		return nil
	}
	if sd, ok := r.Dispatcher().(*surfaceDispatcher); ok {
		return sd.s
	}
	return nil
}

// Role returns the currently attached role, or nil.
func (s *Surface) Role() Role { return s.role }

// AssignRole attaches role to the surface, enforcing spec.md §8's role
// exclusivity invariant: "for every surface S, at most one role object
// is attached; assigning a second role produces a protocol error and
// does not mutate S."
func (s *Surface) AssignRole(role Role) error {
	if s.role != nil {
		return ErrHasRole
	}
	s.role = role
	return nil
}

// ReleaseRole clears the surface's role without destroying the
// surface — "Destroying a role object while the surface still exists:
// legal; surface becomes role-less and un-mappable until re-roled."
func (s *Surface) ReleaseRole() { s.role = nil }

// CurrentBuffer returns the buffer committed as of the last Commit, the
// source the renderer textures from.
func (s *Surface) CurrentBuffer() *shm.Buffer { return s.current.buffer }

// Children returns the committed, ordered subsurface list, iterated by
// the renderer at screen_position + child.offset (spec.md §4.5).
func (s *Surface) Children() []*Subsurface { return s.current.children }

// TakePreviousBuffer returns and clears the buffer most recently
// replaced in current by a commit since the last take, if any, whether
// or not it had been drawn — spec.md §8 scenario 6's B1, released
// through the frame-done FIFO with no done paired against it (spec.md
// §4.5 / §4.11). Only the latest replaced buffer is kept.
func (s *Surface) TakePreviousBuffer() (*shm.Buffer, bool) {
	buf := s.previousBuffer
	s.previousBuffer = nil
	if buf == nil {
		return nil, false
	}
	return buf, true
}

// TakeFrameCallback returns and clears the committed frame callback, if
// any — called exactly once per surface by the renderer when it draws
// this surface's current buffer, so the callback is queued into the
// frame-done FIFO at most once per scanout (spec.md §4.5 / §4.11).
func (s *Surface) TakeFrameCallback() (*wire.Resource, bool) {
	cb := s.current.frameCallback
	s.current.frameCallback = nil
	if cb == nil {
		return nil, false
	}
	return cb, true
}

// FlushDone sends wl_callback.done(timestamp) and destroys the
// callback resource — invoked by internal/compositor's frame-done
// drain, never directly by Surface's own commit path (spec.md §4.11:
// "clients only see done after the frame is actually on screen").
func FlushDone(cb *wire.Resource, timestampMsec uint32) {
	cb.SendEvent(evtCallbackDone, []wire.Argument{wire.ArgUint(timestampMsec)})
	cb.Destroy()
}

// Commit atomically promotes pending to current and re-empties
// pending, the direct realization of spec.md §4.8's commit invariant.
// Buffer: only overwritten when this cycle actually attached one (an
// attach with nil buffer is a legitimate detach); surfaces that never
// attach keep their previous current buffer untouched, matching
// "the buffer attached in pending is retained until the next commit
// replaces it."
//
// A surface whose role is a Subsurface is always sync-mode (spec.md
// §4.8: "desync is accepted but treated as sync"), so its own commit
// request does not apply anything — "S's commit alone does not change
// parent display." The pending state sits untouched until an ancestor
// (ultimately a non-subsurface root) commits and walks down into it via
// applyChildren.
func (s *Surface) Commit() {
	if _, ok := s.role.(*Subsurface); ok {
		return
	}
	s.applyPending()
}

func (s *Surface) applyPending() {
	if s.pending.bufferAttached {
		if s.current.buffer != nil && s.current.buffer != s.pending.buffer {
			s.previousBuffer = s.current.buffer
		}
		s.current.buffer = s.pending.buffer
	}
	if s.pending.frameCallback != nil {
		s.current.frameCallback = s.pending.frameCallback
	}
	if len(s.pending.newChildren) > 0 {
		s.current.children = append(s.current.children, s.pending.newChildren...)
	}
	s.pending = state{}
	s.applyChildren()
}

// applyChildren pushes each subsurface's double-buffered position and
// cached pending commit state down the tree — the recursive step of
// "P's commit applies S into the parent tree" (spec.md §4.8).
func (s *Surface) applyChildren() {
	for _, child := range s.current.children {
		child.applyPendingPosition()
		child.surface.applyPending()
	}
}

// Destroy tears down the surface, enforcing "Destroying a surface with
// a live role: protocol error (defunct_role_object)" — a direct port of
// wl_surface_destroy.
func (s *Surface) Destroy() {
	if s.role != nil {
		s.resource.PostError(errDefunctRoleObject, "surface has an active role assigned, destroy that first")
		return
	}
	s.resource.Destroy()
}

type surfaceDispatcher struct{ s *Surface }

func (d *surfaceDispatcher) Destroy() {}

func (d *surfaceDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	s := d.s
	switch opcode {
	case opSurfaceDestroy:
		s.Destroy()
	case opSurfaceAttach:
		if len(args) < 3 {
			return
		}
		var buf *shm.Buffer
		if args[0].Object != nil {
			if bd, ok := args[0].Object.Dispatcher().(bufferHolder); ok {
				buf = bd.Buffer()
			}
		}
		s.pending.buffer = buf
		s.pending.bufferAttached = true
		if buf != nil {
			s.OnBufferAttached.Emit(buf)
		}
	case opSurfaceDamage:
		if len(args) < 4 {
			return
		}
		s.pending.damage = append(s.pending.damage, geom.Region{
			X: float64(args[0].Int), Y: float64(args[1].Int),
			W: float64(args[2].Int), H: float64(args[3].Int),
		})
	case opSurfaceFrame:
		if len(args) < 1 {
			return
		}
		cbd := &callbackDispatcher{s: s}
		callback := wire.NewResource(r.Client(), wire.CallbackInterface(), r.Version(), args[0].Uint, cbd)
		cbd.res = callback
		s.pending.frameCallback = callback
	case opSurfaceSetOpaqueRegion:
		if len(args) > 0 {
			s.pending.opaque = regionFromArg(args[0])
		}
	case opSurfaceSetInputRegion:
		if len(args) > 0 {
			s.pending.input = regionFromArg(args[0])
		}
	case opSurfaceCommit:
		s.Commit()
	case opSurfaceSetBufferTransform, opSurfaceSetBufferScale:
		// Accepted, not consumed: kiln always scans out at the
		// buffer's native size/orientation (no output transform
		// support in scope).
	case opSurfaceDamageBuffer:
		log.Debug("damage_buffer")
	case opSurfaceOffset:
		if len(args) < 2 {
			return
		}
		s.pending.offsetX, s.pending.offsetY = args[0].Int, args[1].Int
	}
}

// bufferHolder lets surfaceDispatcher resolve a wl_buffer resource's
// payload without importing internal/shm's dispatcher types directly.
type bufferHolder interface{ Buffer() *shm.Buffer }

func regionFromArg(a wire.Argument) *Region {
	if a.Object == nil {
		return nil
	}
	if rd, ok := a.Object.Dispatcher().(*regionDispatcher); ok {
		return rd.region
	}
	return nil
}

type callbackDispatcher struct {
	s   *Surface
	res *wire.Resource
}

func (d *callbackDispatcher) Destroy() {
	// The original's race guard: only null out the surface's callback
	// field if it is *still* the same resource, since a new frame
	// request may have already replaced it before this one is
	// destroyed (original_source/src/core/surface.cpp).
	if d.s.pending.frameCallback == d.res {
		d.s.pending.frameCallback = nil
	}
	if d.s.current.frameCallback == d.res {
		d.s.current.frameCallback = nil
	}
}

func (d *callbackDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {}
