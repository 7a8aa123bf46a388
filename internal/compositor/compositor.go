// Package compositor wires every other internal package into the
// runtime spec.md §4.11 describes ("Owns the Wayland display, event
// loop, and all globals... run() enters the event-loop driver"), a
// direct port of original_source's compositor_t
// (original_source/include/barock/compositor.hpp,
// src/compositor.cpp) restated around this module's own output,
// seat, xdgshell, cursor and surface packages instead of the original's
// single monolithic translation unit.
package compositor

import (
	"fmt"

	"github.com/kilnwm/kiln/internal/config"
	"github.com/kilnwm/kiln/internal/cursor"
	"github.com/kilnwm/kiln/internal/drm"
	"github.com/kilnwm/kiln/internal/geom"
	"github.com/kilnwm/kiln/internal/glrender"
	"github.com/kilnwm/kiln/internal/hotkey"
	"github.com/kilnwm/kiln/internal/klog"
	"github.com/kilnwm/kiln/internal/libinput"
	"github.com/kilnwm/kiln/internal/output"
	"github.com/kilnwm/kiln/internal/seat"
	"github.com/kilnwm/kiln/internal/shm"
	"github.com/kilnwm/kiln/internal/signal"
	"github.com/kilnwm/kiln/internal/surface"
	"github.com/kilnwm/kiln/internal/wire"
	"github.com/kilnwm/kiln/internal/xdgshell"
	"github.com/kilnwm/kiln/internal/xkbkey"
)

var log = klog.For("compositor")

// pollTimeoutMsec bounds the per-iteration libinput poll, short enough
// that the main loop still repaints every output roughly once per frame
// even with no input activity — spec.md §5's "poll on the libinput fd
// (bounded timeout, typically <= one frame)".
const pollTimeoutMsec = 16

// wl_compositor request opcodes, spec.md §6: "create_surface,
// create_region".
const (
	opCompositorCreateSurface = 0
	opCompositorCreateRegion  = 1
)

// Compositor owns every subsystem and drives the single-threaded
// cooperative main loop spec.md §5 specifies.
type Compositor struct {
	cfg config.Config

	drmHandle *drm.Handle
	display   *wire.Display
	outputs   *output.Manager
	input     *libinput.Manager
	cursorMgr *cursor.Manager
	seat      *seat.Seat
	shell     *xdgshell.Shell
	hotkeys   *hotkey.Matcher

	renderers     map[*output.Output]*glrender.Renderer
	outputGlobals []*outputGlobal

	frameQueue chan frameDone
}

// New builds every subsystem in the order spec.md §4.11 names: "input →
// output manager → globals (xdg shell and seat subscribe to output
// events)".
func New(cfg config.Config) (*Compositor, error) {
	input, err := libinput.New(cfg.Seat)
	if err != nil {
		return nil, fmt.Errorf("compositor: libinput: %w", err)
	}

	drmHandle, err := drm.Open(cfg.DRMCard)
	if err != nil {
		input.Close()
		return nil, fmt.Errorf("compositor: %w", err)
	}

	outputs, err := output.NewManager(drmHandle)
	if err != nil {
		drmHandle.Close()
		input.Close()
		return nil, fmt.Errorf("compositor: %w", err)
	}
	if len(outputs.Outputs()) == 0 {
		drmHandle.Close()
		input.Close()
		return nil, ErrNoCompatibleCRTC
	}

	display := wire.NewDisplay()

	cursorMgr, err := cursor.New(input, outputs, cfg.CursorTheme, cfg.CursorSize)
	if err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}

	seatInstance, err := seat.New(display, input, cursorMgr, xkbkey.Names{})
	if err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}

	shm.New(display)
	surface.NewSubcompositor(display)
	shell := xdgshell.New(display, outputs)
	newDataDeviceManager(display)
	if _, err := newDmabufManager(display, drmHandle); err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}

	c := &Compositor{
		cfg:        cfg,
		drmHandle:  drmHandle,
		display:    display,
		outputs:    outputs,
		input:      input,
		cursorMgr:  cursorMgr,
		seat:       seatInstance,
		shell:      shell,
		hotkeys:    hotkey.New(seatInstance.KeymapContext()),
		renderers:  map[*output.Output]*glrender.Renderer{},
		frameQueue: make(chan frameDone, frameQueueCapacity),
	}

	c.installCompositorGlobal()
	c.wireOutputGlobals()
	c.wireSeatLocator()
	c.wireHotkeyFeed()
	xdgshell.SetPaintedSink(c.queueFrameCallbacks)
	cursor.SetRendererResolver(c.rendererFor)
	xdgshell.SetRendererResolver(c.rendererFor)

	return c, nil
}

// installCompositorGlobal installs the wl_compositor global, the one
// piece of spec.md §6's wire list with no other package-level home:
// every other global belongs to the package that owns its resource
// type, but wl_surface/wl_region resources belong to internal/surface
// while the global that creates them is this package's to own.
func (c *Compositor) installCompositorGlobal() {
	iface := wire.CompositorInterface()
	wire.NewGlobal(c.display, iface, func(client wire.Client, ver, id uint32) {
		wire.NewResource(client, iface, ver, id, &compositorDispatcher{})
	})
}

type compositorDispatcher struct{}

func (compositorDispatcher) Destroy() {}

func (compositorDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	switch opcode {
	case opCompositorCreateSurface:
		if len(args) < 1 {
			return
		}
		surface.New(r.Client(), args[0].Uint, r.Version())
	case opCompositorCreateRegion:
		if len(args) < 1 {
			return
		}
		surface.NewRegionResource(r.Client(), args[0].Uint, r.Version())
	}
}

// wireSeatLocator connects the seat's SurfaceLocator hook to the xdg
// shell's hit-test, translating a Toplevel hit into the seat's
// HitResult (local coordinates measured from the surface's workspace
// origin, spec.md §4.10).
func (c *Compositor) wireSeatLocator() {
	c.seat.SurfaceLocator = func(o *output.Output, p geom.FPoint) (seat.HitResult, bool) {
		tl, ok := c.shell.ByPosition(o, p)
		if !ok {
			return seat.HitResult{}, false
		}
		ox, oy := tl.Origin()
		c.shell.Activate(tl)
		c.shell.RaiseToTop(tl, o)
		return seat.HitResult{Surface: tl.BaseSurface(), OriginX: ox, OriginY: oy}, true
	}
}

// wireHotkeyFeed connects the seat's keysym stream into the chord
// matcher, spec.md §4.12's data flow arrow from the seat into the
// hotkey matcher.
func (c *Compositor) wireHotkeyFeed() {
	c.seat.OnKeysym.Connect(func(sym xkbkey.Keysym) signal.Action {
		c.hotkeys.Feed(sym)
		return signal.Keep
	})
}

// RegisterHotkey adds action to the chord matcher, the one hook an
// embedding host uses to bind a keybind without this package knowing
// anything about the scripting environment that owns keybind policy
// (internal/config's "event hooks documented in internal/compositor").
func (c *Compositor) RegisterHotkey(action hotkey.Action) {
	c.hotkeys.Add(action)
}

// rendererFor resolves the glrender.Renderer bound to o, the resolver
// internal/cursor and internal/xdgshell both call through their own
// SetRendererResolver hook.
func (c *Compositor) rendererFor(o *output.Output) *glrender.Renderer {
	return c.renderers[o]
}

// setupRenderers mode-sets every output and creates its bound Renderer,
// requiring each scanout's EGL context current before glrender.New
// issues any GL calls (internal/drm.Scanout.MakeCurrent's contract).
func (c *Compositor) setupRenderers() error {
	if err := c.outputs.ModeSet(); err != nil {
		return fmt.Errorf("compositor: %w", err)
	}
	for _, ref := range c.outputs.Outputs() {
		o := ref.Get()
		scanout := o.Scanout()
		if scanout == nil {
			continue
		}
		if err := scanout.MakeCurrent(); err != nil {
			return fmt.Errorf("compositor: %w", err)
		}
		mode := o.Mode()
		r, err := glrender.New(int32(mode.Width), int32(mode.Height))
		if err != nil {
			return fmt.Errorf("compositor: %w", err)
		}
		c.renderers[o] = r
	}
	return nil
}

// repaintOutput performs spec.md §4.11 step 4's "bind -> clear -> emit
// on_repaint (ascending layer) -> commit" against one output, then
// presents it. The frame-done queue is drained by Run at the start of
// each loop iteration, not here.
func (c *Compositor) repaintOutput(o *output.Output) error {
	scanout := o.Scanout()
	r := c.renderers[o]
	if scanout == nil || r == nil {
		return nil
	}
	if err := scanout.MakeCurrent(); err != nil {
		return err
	}
	if err := r.Bind(); err != nil {
		return err
	}
	if err := r.Clear(0, 0, 0, 1); err != nil {
		return err
	}
	o.OnRepaint.Emit(o)
	if err := r.Commit(); err != nil {
		return err
	}
	return scanout.Present()
}

// Run enters the main loop, the realization of spec.md §4.11's
// five-step driver and §5's single-threaded cooperative scheduling
// model.
func (c *Compositor) Run() error {
	name, err := c.display.AddSocket(c.cfg.SocketName)
	if err != nil {
		return fmt.Errorf("compositor: %w", err)
	}
	log.Info("listening", "socket", name)

	if err := c.setupRenderers(); err != nil {
		return err
	}

	loop := c.display.EventLoop()

	for {
		// 1. Flush pending frame-done / buffer-release queue.
		c.drainFrameQueue()

		// 2. Dispatch Wayland clients (non-blocking).
		loop.Dispatch(0)

		// 3. Poll libinput (short timeout).
		c.input.Poll(pollTimeoutMsec)

		// 4. For each output: bind -> clear -> emit on_repaint -> commit.
		for _, ref := range c.outputs.Outputs() {
			if err := c.repaintOutput(ref.Get()); err != nil {
				log.Warn("repaint failed", "err", err)
			}
		}

		// 5. display_flush_clients().
		c.display.DispatchClients()
	}
}

// Close tears down every owned façade, released in reverse acquisition
// order.
func (c *Compositor) Close() {
	for _, ref := range c.outputs.Outputs() {
		if s := ref.Get().Scanout(); s != nil {
			s.Close()
		}
	}
	c.drmHandle.Close()
	c.input.Close()
}
