// Package xdgshell implements the xdg_wm_base / xdg_surface /
// xdg_toplevel trio of spec.md §3 ("XDG shell") and §4.9 ("Toplevel
// mapping / configure cycle"), a direct port of original_source's
// xdg_shell_t / xdg_surface_t / xdg_toplevel_t
// (original_source/src/shell/xdg_wm_base.cpp, xdg_surface.cpp,
// xdg_toplevel.cpp) onto internal/wire's
// generic resource dispatcher, with the per-output window stack and
// hit-testing original_source keeps inline folded into this package
// instead (spec.md §4.9's "by_position" / "by_app_id" / "raise_to_top"
// operations).
package xdgshell

import (
	"encoding/binary"

	"github.com/kilnwm/kiln/internal/geom"
	"github.com/kilnwm/kiln/internal/glrender"
	"github.com/kilnwm/kiln/internal/klog"
	"github.com/kilnwm/kiln/internal/output"
	"github.com/kilnwm/kiln/internal/shm"
	"github.com/kilnwm/kiln/internal/signal"
	"github.com/kilnwm/kiln/internal/surface"
	"github.com/kilnwm/kiln/internal/wire"
)

var log = klog.For("xdgshell")

var surfaceRoleID = surface.NewRoleID()

// windowPaintLayer is the layer xdg toplevels paint at on every
// output's OnRepaint bus — above nothing (kiln has no other scene
// content) and reserved below signal.LayerTop, which internal/cursor
// always claims (spec.md §4.5).
const windowPaintLayer = 100

// xdg_wm_base request opcodes.
const (
	opWmBaseDestroy          = 0
	opWmBaseCreatePositioner = 1
	opWmBaseGetXdgSurface    = 2
	opWmBasePong             = 3
)

// xdg_wm_base.error.role.
const errWmBaseRole = 0

// xdg_surface request/event opcodes.
const (
	opXdgSurfaceDestroy           = 0
	opXdgSurfaceGetToplevel       = 1
	opXdgSurfaceGetPopup          = 2
	opXdgSurfaceSetWindowGeometry = 3
	opXdgSurfaceAckConfigure      = 4
	evtXdgSurfaceConfigure        = 0
)

// xdg_toplevel request/event opcodes.
const (
	opToplevelDestroy           = 0
	opToplevelSetParent         = 1
	opToplevelSetTitle          = 2
	opToplevelSetAppID          = 3
	opToplevelShowWindowMenu    = 4
	opToplevelMove              = 5
	opToplevelResize            = 6
	opToplevelSetMaxSize        = 7
	opToplevelSetMinSize        = 8
	opToplevelSetMaximized      = 9
	opToplevelUnsetMaximized    = 10
	opToplevelSetFullscreen     = 11
	opToplevelUnsetFullscreen   = 12
	opToplevelSetMinimized      = 13
	evtToplevelConfigure        = 0
	evtToplevelClose            = 1
)

const xdgToplevelStateActivated = 4

// XdgSurface is the role attached to a base wl_surface via
// get_xdg_surface, spec.md §3's "XDG surface role".
type XdgSurface struct {
	resource *wire.Resource
	base     *surface.Surface
	shell    *Shell

	offsetX, offsetY int32 // window-geometry offset (CSD exclusion)
	x, y             float64
	w, h             int32

	output *output.Output

	lastConfigureSerial uint32
	acked               bool

	toplevel *Toplevel
}

func (x *XdgSurface) RoleID() surface.RoleID { return surfaceRoleID }

func (x *XdgSurface) sendConfigure() {
	serial := x.shell.display.NextSerial()
	x.lastConfigureSerial = serial
	x.resource.SendEvent(evtXdgSurfaceConfigure, []wire.Argument{wire.ArgUint(serial)})
}

// Toplevel is the role-specific data xdg_surface.get_toplevel installs,
// spec.md §3's "Toplevel" (title, app-id, mapped/activated state).
type Toplevel struct {
	xdgSurface *XdgSurface
	resource   *wire.Resource
	title      string
	appID      string
}

// BaseSurface returns the underlying wl_surface this toplevel paints
// from, what internal/seat's focus router and internal/xdgshell's own
// painter read buffers and subsurfaces off.
func (t *Toplevel) BaseSurface() *surface.Surface { return t.xdgSurface.base }

// Bounds returns the toplevel's workspace-space hit-test rectangle.
func (t *Toplevel) Bounds() geom.Region {
	xs := t.xdgSurface
	return geom.Region{X: xs.x, Y: xs.y, W: float64(xs.w), H: float64(xs.h)}
}

// Origin returns the toplevel's drawable workspace-space origin, the
// window-geometry offset already subtracted.
func (t *Toplevel) Origin() (float64, float64) {
	xs := t.xdgSurface
	return xs.x - float64(xs.offsetX), xs.y - float64(xs.offsetY)
}

func (t *Toplevel) AppID() string { return t.appID }
func (t *Toplevel) Title() string { return t.title }

func (t *Toplevel) sendConfigureState(activated bool) {
	xs := t.xdgSurface
	var states []byte
	if activated {
		states = encodeStates(xdgToplevelStateActivated)
	}
	t.resource.SendEvent(evtToplevelConfigure, []wire.Argument{
		wire.ArgInt(xs.w), wire.ArgInt(xs.h), wire.ArgArray(states),
	})
	xs.sendConfigure()
}

func encodeStates(states ...uint32) []byte {
	buf := make([]byte, 4*len(states))
	for i, s := range states {
		binary.LittleEndian.PutUint32(buf[i*4:], s)
	}
	return buf
}

// Shell is the xdg_wm_base global, owning every mapped toplevel's
// per-output window stack, spec.md §4.9.
type Shell struct {
	display *wire.Display
	global  *wire.Global
	outputs *output.Manager

	activated *Toplevel

	// windows is front-to-back: index 0 paints last (topmost), consumed
	// back-to-front by paint and front-to-back by ByPosition.
	windows map[*output.Output][]*Toplevel

	OnToplevelMapped signal.Signal[*Toplevel]
}

// New installs the xdg_wm_base global and wires per-output painting.
func New(display *wire.Display, outputs *output.Manager) *Shell {
	sh := &Shell{display: display, outputs: outputs, windows: map[*output.Output][]*Toplevel{}}

	iface := wire.XdgWmBaseInterface()
	sh.global = wire.NewGlobal(display, iface, func(client wire.Client, ver, id uint32) {
		wire.NewResource(client, iface, ver, id, &wmBaseDispatcher{shell: sh})
	})

	outputs.OnOutputNew.Connect(func(o *output.Output) signal.Action {
		sh.wireOutput(o)
		return signal.Keep
	})
	for _, ref := range outputs.Outputs() {
		sh.wireOutput(ref.Get())
	}
	return sh
}

func (sh *Shell) wireOutput(o *output.Output) {
	sh.windows[o] = nil
	o.OnRepaint.At(windowPaintLayer).Connect(func(paintOutput *output.Output) signal.Action {
		sh.paint(paintOutput)
		return signal.Keep
	})
}

// ByPosition hit-tests p (workspace space) against output o's window
// stack front-to-back, returning the topmost toplevel containing p —
// spec.md §4.9's "by_position".
func (sh *Shell) ByPosition(o *output.Output, p geom.FPoint) (*Toplevel, bool) {
	for _, tl := range sh.windows[o] {
		if tl.Bounds().Contains(p) {
			return tl, true
		}
	}
	return nil, false
}

// ByAppID scans for a toplevel with the given app-id. A nil output
// scans every output in stable discovery order (spec.md §4.9's
// "by_app_id").
func (sh *Shell) ByAppID(appID string, o *output.Output) (*Toplevel, bool) {
	if o != nil {
		for _, tl := range sh.windows[o] {
			if tl.appID == appID {
				return tl, true
			}
		}
		return nil, false
	}
	for _, ref := range sh.outputs.Outputs() {
		for _, tl := range sh.windows[ref.Get()] {
			if tl.appID == appID {
				return tl, true
			}
		}
	}
	return nil, false
}

// RaiseToTop moves tl to the front of its output's window stack (or
// every output it appears on, if o is nil), spec.md §4.9's
// "raise_to_top".
func (sh *Shell) RaiseToTop(tl *Toplevel, o *output.Output) {
	if o != nil {
		sh.raiseOn(tl, o)
		return
	}
	for _, ref := range sh.outputs.Outputs() {
		sh.raiseOn(tl, ref.Get())
	}
}

func (sh *Shell) raiseOn(tl *Toplevel, o *output.Output) {
	list := sh.windows[o]
	idx := -1
	for i, w := range list {
		if w == tl {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return
	}
	list = append(list[:idx], list[idx+1:]...)
	sh.windows[o] = append([]*Toplevel{tl}, list...)
}

// Activate makes tl the sole activated toplevel, deactivating whatever
// previously held activation — spec.md §4.9's "activation is mutually
// exclusive across all xdg surfaces".
func (sh *Shell) Activate(tl *Toplevel) {
	if sh.activated == tl {
		return
	}
	if sh.activated != nil {
		sh.activated.sendConfigureState(false)
	}
	sh.activated = tl
	if tl != nil {
		tl.sendConfigureState(true)
	}
}

func (sh *Shell) mapToplevel(tl *Toplevel) {
	outs := sh.outputs.Outputs()
	if len(outs) == 0 {
		return
	}
	o := outs[0].Get()
	tl.xdgSurface.output = o
	sh.windows[o] = append([]*Toplevel{tl}, sh.windows[o]...)
	sh.OnToplevelMapped.Emit(tl)
}

func (sh *Shell) unmapToplevel(tl *Toplevel) {
	o := tl.xdgSurface.output
	list := sh.windows[o]
	for i, w := range list {
		if w == tl {
			sh.windows[o] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

type wmBaseDispatcher struct{ shell *Shell }

func (d *wmBaseDispatcher) Destroy() {}

func (d *wmBaseDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	switch opcode {
	case opWmBaseDestroy:
		r.Destroy()
	case opWmBaseCreatePositioner:
		if len(args) < 1 {
			return
		}
		// Popups are out of scope (spec.md §1 Non-goals list does not
		// mention them and no xdg_surface.get_popup path exists), so the
		// positioner only needs to exist, not compute real geometry.
		wire.NewResource(r.Client(), wire.XdgPositionerInterface(), r.Version(), args[0].Uint, &stubDispatcher{})
	case opWmBaseGetXdgSurface:
		if len(args) < 2 {
			return
		}
		id := args[0].Uint
		base := surface.FromResource(args[1].Object)
		if base == nil {
			return
		}
		if base.Role() != nil {
			r.PostError(errWmBaseRole, "wl_surface already has a role")
			return
		}
		xs := &XdgSurface{base: base, shell: d.shell}
		if err := base.AssignRole(xs); err != nil {
			r.PostError(errWmBaseRole, err.Error())
			return
		}
		xsd := &xdgSurfaceDispatcher{xs: xs}
		xs.resource = wire.NewResource(r.Client(), wire.XdgSurfaceInterface(), r.Version(), id, xsd)
		base.OnBufferAttached.Connect(func(buf *shm.Buffer) signal.Action {
			if xs.w == 0 && xs.h == 0 {
				xs.w, xs.h = buf.Width, buf.Height
			}
			return signal.Keep
		})
		// The client must see an initial configure before it may attach a
		// buffer (spec.md §3), mirroring xdg_wm_base_get_xdg_surface's
		// immediate xdg_surface_send_configure.
		xs.sendConfigure()
	case opWmBasePong:
		// no ping is ever sent (no client responsiveness tracking in
		// scope), so pong has nothing to correlate against.
	}
}

// stubDispatcher backs protocol objects kiln accepts but does not
// implement meaningfully (the xdg_positioner stub, popups being out of
// scope).
type stubDispatcher struct{}

func (stubDispatcher) Destroy() {}
func (stubDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	if opcode == 0 {
		r.Destroy()
	}
}

type xdgSurfaceDispatcher struct{ xs *XdgSurface }

func (d *xdgSurfaceDispatcher) Destroy() {
	xs := d.xs
	xs.base.ReleaseRole()
	if xs.toplevel != nil {
		xs.shell.unmapToplevel(xs.toplevel)
		if xs.shell.activated == xs.toplevel {
			xs.shell.activated = nil
		}
	}
}

func (d *xdgSurfaceDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	xs := d.xs
	switch opcode {
	case opXdgSurfaceDestroy:
		r.Destroy()
	case opXdgSurfaceGetToplevel:
		if len(args) < 1 {
			return
		}
		tl := &Toplevel{xdgSurface: xs}
		xs.toplevel = tl
		tld := &toplevelDispatcher{tl: tl}
		tl.resource = wire.NewResource(r.Client(), wire.XdgToplevelInterface(), r.Version(), args[0].Uint, tld)
		xs.shell.mapToplevel(tl)
		// get_toplevel elicits its own configure too (original_source's
		// xdg_surface.cpp get_toplevel sends xdg_toplevel_send_configure
		// immediately), not activated until Activate later picks it.
		tl.sendConfigureState(false)
	case opXdgSurfaceGetPopup:
		// out of scope; ignored.
	case opXdgSurfaceSetWindowGeometry:
		if len(args) < 4 {
			return
		}
		xs.offsetX, xs.offsetY = args[0].Int, args[1].Int
	case opXdgSurfaceAckConfigure:
		if len(args) < 1 {
			return
		}
		xs.acked = args[0].Uint == xs.lastConfigureSerial
	}
}

type toplevelDispatcher struct{ tl *Toplevel }

func (d *toplevelDispatcher) Destroy() {
	tl := d.tl
	sh := tl.xdgSurface.shell
	sh.unmapToplevel(tl)
	if sh.activated == tl {
		sh.activated = nil
	}
}

func (d *toplevelDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	tl := d.tl
	switch opcode {
	case opToplevelDestroy:
		r.Destroy()
	case opToplevelSetTitle:
		if len(args) > 0 {
			tl.title = args[0].String
		}
	case opToplevelSetAppID:
		if len(args) > 0 {
			tl.appID = args[0].String
		}
	case opToplevelSetParent, opToplevelMove, opToplevelResize, opToplevelShowWindowMenu,
		opToplevelSetMaxSize, opToplevelSetMinSize, opToplevelSetMaximized, opToplevelUnsetMaximized,
		opToplevelSetFullscreen, opToplevelUnsetFullscreen, opToplevelSetMinimized:
		log.Debug("toplevel state/interactive request accepted without effect", "opcode", opcode)
	}
}

// SetPaintedSink installs the callback invoked once per surface this
// package visits while painting a frame, including a surface with no
// current buffer (for which nothing is drawn) — internal/compositor wires this
// to its frame-done queue (spec.md §4.11).
func SetPaintedSink(f func(*surface.Surface)) { paintedSink = f }

var paintedSink = func(*surface.Surface) {}

// SetRendererResolver installs the function internal/compositor uses
// to look up the glrender.Renderer bound to a given output, mirroring
// internal/cursor's identical resolver pattern to avoid an import
// cycle back into internal/compositor.
func SetRendererResolver(f func(*output.Output) *glrender.Renderer) { rendererFor = f }

var rendererFor = func(*output.Output) *glrender.Renderer { return nil }

func (sh *Shell) paint(o *output.Output) {
	r := rendererFor(o)
	if r == nil {
		return
	}
	bounds := o.Bounds()
	list := sh.windows[o]
	for i := len(list) - 1; i >= 0; i-- {
		tl := list[i]
		rect := tl.Bounds()
		if !rect.Intersects(bounds) {
			continue
		}
		ox, oy := tl.Origin()
		screen := o.To(output.Workspace, output.Screenspace, geom.FPoint{X: ox, Y: oy})
		drawSurface(r, tl.BaseSurface(), screen)
	}
}

// drawSurface draws base at screen (if it has a current buffer) and
// recurses into its subsurface children at screen + child.offset,
// spec.md §4.5's renderer walk.
func drawSurface(r *glrender.Renderer, base *surface.Surface, screen geom.FPoint) {
	if buf := base.CurrentBuffer(); buf != nil {
		if err := r.DrawQuad(buf.PixelSource(), float32(screen.X), float32(screen.Y), buf.Width, buf.Height); err != nil {
			log.Warn("surface paint failed", "err", err)
		}
	}
	paintedSink(base)
	for _, child := range base.Children() {
		dx, dy := child.Offset()
		childScreen := geom.FPoint{X: screen.X + float64(dx), Y: screen.Y + float64(dy)}
		drawSurface(r, child.Child(), childScreen)
	}
}
