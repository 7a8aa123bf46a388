// Package seat implements wl_seat and its pointer/keyboard/touch
// children plus the compositor-wide focus router of spec.md §4.10
// ("Seat / focus router"), a direct port of original_source's
// seat_t / wl_seat_t
// (original_source/src/core/wl_seat.cpp) onto internal/libinput's event
// stream and internal/xkbkey's server-side xkb_state, restated around
// internal/wire's generic resource dispatcher the way internal/shm and
// internal/surface already are.
package seat

import (
	"github.com/kilnwm/kiln/internal/clock"
	"github.com/kilnwm/kiln/internal/cursor"
	"github.com/kilnwm/kiln/internal/geom"
	"github.com/kilnwm/kiln/internal/glrender"
	"github.com/kilnwm/kiln/internal/klog"
	"github.com/kilnwm/kiln/internal/libinput"
	"github.com/kilnwm/kiln/internal/output"
	"github.com/kilnwm/kiln/internal/signal"
	"github.com/kilnwm/kiln/internal/surface"
	"github.com/kilnwm/kiln/internal/wire"
	"github.com/kilnwm/kiln/internal/xkbkey"
	"golang.org/x/sys/unix"
)

var log = klog.For("seat")

// wl_seat capability bits and request/event opcodes.
const (
	capPointer  = 1
	capKeyboard = 2
	capTouch    = 4

	opSeatGetPointer  = 0
	opSeatGetKeyboard = 1
	opSeatGetTouch    = 2
	opSeatRelease     = 3

	evtSeatCapabilities = 0
	evtSeatName         = 1
)

// wl_pointer request/event opcodes and enums.
const (
	opPointerSetCursor = 0
	opPointerRelease   = 1

	evtPointerEnter  = 0
	evtPointerLeave  = 1
	evtPointerMotion = 2
	evtPointerButton = 3
	evtPointerAxis   = 4
	evtPointerFrame  = 5

	buttonReleased = 0
	buttonPressed  = 1

	axisVertical   = 0
	axisHorizontal = 1
)

// wl_keyboard request/event opcodes and enums.
const (
	opKeyboardRelease = 0

	evtKeyboardKeymap    = 0
	evtKeyboardEnter     = 1
	evtKeyboardLeave     = 2
	evtKeyboardKey       = 3
	evtKeyboardModifiers = 4

	keymapFormatXKBv1 = 1

	keyReleased = 0
	keyPressed  = 1
)

// wl_touch request opcode.
const opTouchRelease = 0

// HitResult is what a SurfaceLocator returns for a workspace-space
// point: the surface under it and the workspace-space origin local
// coordinates are measured from (spec.md §4.10's "local coordinates
// are derived from the cursor workspace position minus the surface's
// workspace position").
type HitResult struct {
	Surface          *surface.Surface
	OriginX, OriginY float64
}

type clientRecord struct {
	client   wire.Client
	resource *wire.Resource
	pointer  *wire.Resource
	keyboard *wire.Resource
	touch    *wire.Resource
}

// Seat is the wl_seat global plus the compositor-wide focus router:
// at most one surface holds pointer focus, at most one holds keyboard
// focus, mirroring seat_t's single pointer_focus/keyboard_focus weak
// references (spec.md §4.10).
type Seat struct {
	display *wire.Display
	global  *wire.Global
	cursor  *cursor.Manager
	xkb     *xkbkey.Context

	clients []*clientRecord

	pointerFocus                   *surface.Surface
	pointerOriginX, pointerOriginY float64
	keyboardFocus                  *surface.Surface

	anyDevice bool

	// SurfaceLocator resolves the topmost surface under a workspace
	// point, wired by internal/compositor to internal/xdgshell's
	// Shell.ByPosition so this package never imports xdgshell.
	SurfaceLocator func(o *output.Output, p geom.FPoint) (HitResult, bool)

	// OnKeysym fires on every key press, translated to an xkb keysym —
	// internal/compositor connects this to its internal/hotkey.Matcher
	// (spec.md §4.12's data flow arrow from the seat into the hotkey
	// matcher).
	OnKeysym signal.Signal[xkbkey.Keysym]
}

// New creates the seat's xkb context, wires it to input's event
// streams, and installs the wl_seat global.
func New(display *wire.Display, input *libinput.Manager, cur *cursor.Manager, names xkbkey.Names) (*Seat, error) {
	ctx, err := xkbkey.New(names)
	if err != nil {
		return nil, err
	}
	s := &Seat{display: display, cursor: cur, xkb: ctx}

	input.OnDeviceAdd.Connect(func(name string) signal.Action {
		s.anyDevice = true
		return signal.Keep
	})
	// Cursor position is already updated by the time these fire, since
	// internal/compositor wires cursor.Manager to the same libinput
	// signals before wiring the seat.
	input.OnMotion.Connect(func(libinput.MotionEvent) signal.Action {
		s.refreshPointerFocus()
		s.dispatchMotion()
		return signal.Keep
	})
	input.OnMotionAbsolute.Connect(func(libinput.MotionAbsoluteEvent) signal.Action {
		s.refreshPointerFocus()
		s.dispatchMotion()
		return signal.Keep
	})
	input.OnButton.Connect(func(e libinput.ButtonEvent) signal.Action {
		s.handleButton(e)
		return signal.Keep
	})
	input.OnScroll.Connect(func(e libinput.ScrollEvent) signal.Action {
		s.handleScroll(e)
		return signal.Keep
	})
	input.OnKey.Connect(func(e libinput.KeyEvent) signal.Action {
		s.handleKey(e)
		return signal.Keep
	})

	iface := wire.SeatInterface()
	s.global = wire.NewGlobal(display, iface, func(client wire.Client, ver, id uint32) {
		rec := &clientRecord{client: client}
		s.clients = append(s.clients, rec)
		res := wire.NewResource(client, iface, ver, id, &seatDispatcher{seat: s, rec: rec})
		if res == nil {
			return
		}
		rec.resource = res
		res.SendEvent(evtSeatCapabilities, []wire.Argument{wire.ArgUint(s.capabilities())})
		res.SendEvent(evtSeatName, []wire.Argument{wire.ArgString("seat0")})
	})
	return s, nil
}

// KeymapContext returns the seat's canonical xkb_state owner, wired
// into internal/hotkey.Matcher by internal/compositor.
func (s *Seat) KeymapContext() *xkbkey.Context { return s.xkb }

func (s *Seat) capabilities() uint32 {
	if !s.anyDevice {
		return 0
	}
	// libinput device capability classification is not exposed by
	// internal/libinput's façade; any seen device is assumed to provide
	// both pointer and keyboard input, a simplification documented in
	// DESIGN.md.
	return capPointer | capKeyboard
}

func (s *Seat) recordForClient(c wire.Client) *clientRecord {
	for _, r := range s.clients {
		if r.client.Equal(c) {
			return r
		}
	}
	return nil
}

func (s *Seat) removeClient(rec *clientRecord) {
	for i, r := range s.clients {
		if r == rec {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			break
		}
	}
	if s.pointerFocus != nil && s.pointerFocus.Resource().Client().Equal(rec.client) {
		s.pointerFocus = nil
	}
	if s.keyboardFocus != nil && s.keyboardFocus.Resource().Client().Equal(rec.client) {
		s.keyboardFocus = nil
	}
}

func (s *Seat) localPointerCoords() (float64, float64) {
	pos := s.cursor.Position()
	return pos.X - s.pointerOriginX, pos.Y - s.pointerOriginY
}

func (s *Seat) refreshPointerFocus() {
	o := s.cursor.CurrentOutput()
	if o == nil || s.SurfaceLocator == nil {
		s.SetPointerFocus(nil, 0, 0)
		return
	}
	hit, ok := s.SurfaceLocator(o, s.cursor.Position())
	if !ok {
		s.SetPointerFocus(nil, 0, 0)
		return
	}
	s.SetPointerFocus(hit.Surface, hit.OriginX, hit.OriginY)
}

// SetPointerFocus changes which surface receives pointer events,
// sending leave/enter as needed — spec.md §4.10's focus router.
// Keyboard focus follows pointer focus (focus-follows-mouse): the
// spec leaves keyboard-focus policy unspecified beyond "at most one
// surface", and original_source's click-to-focus handling was not
// present in the retrieval pack (see DESIGN.md).
func (s *Seat) SetPointerFocus(surf *surface.Surface, originX, originY float64) {
	if s.pointerFocus == surf {
		s.pointerOriginX, s.pointerOriginY = originX, originY
		return
	}
	if s.pointerFocus != nil {
		if rec := s.recordForClient(s.pointerFocus.Resource().Client()); rec != nil && rec.pointer != nil {
			rec.pointer.SendEvent(evtPointerLeave, []wire.Argument{
				wire.ArgUint(s.display.NextSerial()), wire.ArgObject(s.pointerFocus.Resource()),
			})
		}
	}
	s.pointerFocus = surf
	s.pointerOriginX, s.pointerOriginY = originX, originY
	s.SetKeyboardFocus(surf)
	if surf == nil {
		return
	}
	rec := s.recordForClient(surf.Resource().Client())
	if rec == nil || rec.pointer == nil {
		return
	}
	lx, ly := s.localPointerCoords()
	rec.pointer.SendEvent(evtPointerEnter, []wire.Argument{
		wire.ArgUint(s.display.NextSerial()), wire.ArgObject(surf.Resource()),
		wire.ArgFixed(lx), wire.ArgFixed(ly),
	})
}

// SetKeyboardFocus changes which surface receives key/modifiers
// events.
func (s *Seat) SetKeyboardFocus(surf *surface.Surface) {
	if s.keyboardFocus == surf {
		return
	}
	if s.keyboardFocus != nil {
		if rec := s.recordForClient(s.keyboardFocus.Resource().Client()); rec != nil && rec.keyboard != nil {
			rec.keyboard.SendEvent(evtKeyboardLeave, []wire.Argument{
				wire.ArgUint(s.display.NextSerial()), wire.ArgObject(s.keyboardFocus.Resource()),
			})
		}
	}
	s.keyboardFocus = surf
	if surf == nil {
		return
	}
	rec := s.recordForClient(surf.Resource().Client())
	if rec == nil || rec.keyboard == nil {
		return
	}
	rec.keyboard.SendEvent(evtKeyboardEnter, []wire.Argument{
		wire.ArgUint(s.display.NextSerial()), wire.ArgObject(surf.Resource()), wire.ArgArray(nil),
	})
	s.sendModifiers()
}

func (s *Seat) dispatchMotion() {
	if s.pointerFocus == nil {
		return
	}
	rec := s.recordForClient(s.pointerFocus.Resource().Client())
	if rec == nil || rec.pointer == nil {
		return
	}
	lx, ly := s.localPointerCoords()
	rec.pointer.SendEvent(evtPointerMotion, []wire.Argument{
		wire.ArgUint(clock.NowMsec()), wire.ArgFixed(lx), wire.ArgFixed(ly),
	})
	rec.pointer.SendEvent(evtPointerFrame, nil)
}

func (s *Seat) handleButton(e libinput.ButtonEvent) {
	if s.pointerFocus == nil {
		return
	}
	rec := s.recordForClient(s.pointerFocus.Resource().Client())
	if rec == nil || rec.pointer == nil {
		return
	}
	state := uint32(buttonReleased)
	if e.State == libinput.ButtonPressed {
		state = buttonPressed
	}
	rec.pointer.SendEvent(evtPointerButton, []wire.Argument{
		wire.ArgUint(s.display.NextSerial()), wire.ArgUint(clock.NowMsec()),
		wire.ArgUint(e.Button), wire.ArgUint(state),
	})
	rec.pointer.SendEvent(evtPointerFrame, nil)
}

// handleScroll converts v120 scroll units to an approximate pixel
// value (10px per notch), the same heuristic most toolkits apply to
// legacy (pre value120) wl_pointer.axis events — kiln does not send
// axis_value120, only the widely-supported axis event (DESIGN.md).
func (s *Seat) handleScroll(e libinput.ScrollEvent) {
	if s.pointerFocus == nil {
		return
	}
	rec := s.recordForClient(s.pointerFocus.Resource().Client())
	if rec == nil || rec.pointer == nil {
		return
	}
	ts := clock.NowMsec()
	if e.Vertical != 0 {
		rec.pointer.SendEvent(evtPointerAxis, []wire.Argument{
			wire.ArgUint(ts), wire.ArgUint(axisVertical), wire.ArgFixed(float64(e.Vertical) / 12.0),
		})
	}
	if e.Horizontal != 0 {
		rec.pointer.SendEvent(evtPointerAxis, []wire.Argument{
			wire.ArgUint(ts), wire.ArgUint(axisHorizontal), wire.ArgFixed(float64(e.Horizontal) / 12.0),
		})
	}
	rec.pointer.SendEvent(evtPointerFrame, nil)
}

func (s *Seat) handleKey(e libinput.KeyEvent) {
	pressed := e.State == libinput.KeyPressed
	sym, modsChanged := s.xkb.UpdateKey(e.Keycode, pressed)
	if pressed {
		s.OnKeysym.Emit(sym)
	}
	if modsChanged {
		s.sendModifiers()
	}
	if s.keyboardFocus == nil {
		return
	}
	rec := s.recordForClient(s.keyboardFocus.Resource().Client())
	if rec == nil || rec.keyboard == nil {
		return
	}
	state := uint32(keyReleased)
	if pressed {
		state = keyPressed
	}
	rec.keyboard.SendEvent(evtKeyboardKey, []wire.Argument{
		wire.ArgUint(s.display.NextSerial()), wire.ArgUint(clock.NowMsec()),
		wire.ArgUint(e.Keycode), wire.ArgUint(state),
	})
}

func (s *Seat) sendModifiers() {
	if s.keyboardFocus == nil {
		return
	}
	rec := s.recordForClient(s.keyboardFocus.Resource().Client())
	if rec == nil || rec.keyboard == nil {
		return
	}
	depressed, latched, locked, group := s.xkb.SerializeMods()
	rec.keyboard.SendEvent(evtKeyboardModifiers, []wire.Argument{
		wire.ArgUint(s.display.NextSerial()),
		wire.ArgUint(uint32(depressed)), wire.ArgUint(uint32(latched)), wire.ArgUint(uint32(locked)), wire.ArgUint(group),
	})
}

func (s *Seat) sendKeymap(res *wire.Resource) {
	data := s.xkb.KeymapString()
	fd, err := memfdKeymap(data)
	if err != nil {
		log.Warn("keymap memfd failed", "err", err)
		return
	}
	res.SendEvent(evtKeyboardKeymap, []wire.Argument{
		wire.ArgUint(keymapFormatXKBv1), wire.ArgFD(fd), wire.ArgUint(uint32(len(data))),
	})
}

func memfdKeymap(data []byte) (int, error) {
	fd, err := unix.MemfdCreate("kiln-keymap", 0)
	if err != nil {
		return -1, err
	}
	if err := unix.Ftruncate(fd, int64(len(data))); err != nil {
		unix.Close(fd)
		return -1, err
	}
	mem, err := unix.Mmap(fd, 0, len(data), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return -1, err
	}
	copy(mem, data)
	unix.Munmap(mem)
	return fd, nil
}

type seatDispatcher struct {
	seat *Seat
	rec  *clientRecord
}

func (d *seatDispatcher) Destroy() { d.seat.removeClient(d.rec) }

func (d *seatDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	switch opcode {
	case opSeatGetPointer:
		if len(args) < 1 {
			return
		}
		res := wire.NewResource(r.Client(), wire.PointerInterface(), r.Version(), args[0].Uint,
			&pointerDispatcher{rec: d.rec, seat: d.seat})
		d.rec.pointer = res
	case opSeatGetKeyboard:
		if len(args) < 1 {
			return
		}
		res := wire.NewResource(r.Client(), wire.KeyboardInterface(), r.Version(), args[0].Uint,
			&keyboardDispatcher{rec: d.rec})
		d.rec.keyboard = res
		if res != nil {
			d.seat.sendKeymap(res)
		}
	case opSeatGetTouch:
		if len(args) < 1 {
			return
		}
		res := wire.NewResource(r.Client(), wire.TouchInterface(), r.Version(), args[0].Uint, &touchDispatcher{rec: d.rec})
		d.rec.touch = res
	case opSeatRelease:
		r.Destroy()
	}
}

type pointerDispatcher struct {
	rec  *clientRecord
	seat *Seat
}

func (d *pointerDispatcher) Destroy() { d.rec.pointer = nil }

func (d *pointerDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	switch opcode {
	case opPointerSetCursor:
		if len(args) < 4 {
			return
		}
		if args[1].Object == nil {
			return
		}
		surf := surface.FromResource(args[1].Object)
		if surf == nil {
			return
		}
		d.seat.cursor.SetCursor(surfaceCursorTexture{surf: surf, hx: args[2].Int, hy: args[3].Int})
	case opPointerRelease:
		r.Destroy()
	}
}

// surfaceCursorTexture adapts a client-supplied wl_surface (the
// wl_pointer.set_cursor argument) to internal/cursor.Texture.
type surfaceCursorTexture struct {
	surf   *surface.Surface
	hx, hy int32
}

func (t surfaceCursorTexture) PixelSource() glrender.PixelSource {
	buf := t.surf.CurrentBuffer()
	if buf == nil {
		return glrender.PixelSource{}
	}
	return buf.PixelSource()
}

func (t surfaceCursorTexture) Hotspot() (int32, int32) { return t.hx, t.hy }

type keyboardDispatcher struct{ rec *clientRecord }

func (d *keyboardDispatcher) Destroy() { d.rec.keyboard = nil }

func (d *keyboardDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	if opcode == opKeyboardRelease {
		r.Destroy()
	}
}

type touchDispatcher struct{ rec *clientRecord }

func (d *touchDispatcher) Destroy() { d.rec.touch = nil }

func (d *touchDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	if opcode == opTouchRelease {
		r.Destroy()
	}
}
