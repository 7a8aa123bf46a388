// Package output implements the Output and OutputManager types of
// spec.md §4.3, a direct port of original_source's output_t /
// output_manager_t (original_source/include/barock/core/output.hpp,
// output_manager.hpp and their .cpp files), restructured around
// internal/drm (in place of minidrm), internal/signal (in place of
// signal_t), and internal/resource (in place of shared_t/weak_t).
package output

import (
	"fmt"

	"github.com/kilnwm/kiln/internal/drm"
	"github.com/kilnwm/kiln/internal/geom"
	"github.com/kilnwm/kiln/internal/klog"
	"github.com/kilnwm/kiln/internal/resource"
	"github.com/kilnwm/kiln/internal/signal"
)

var log = klog.For("output")

// Space distinguishes workspace coordinates (spanning every output,
// origin at the leftmost/topmost output's top-left corner) from
// screenspace coordinates (local to one output), matching the
// original's coordinate_space_t.
type Space int

const (
	Workspace Space = iota
	Screenspace
)

// Direction is a bitmask of cardinal directions, used by Output.Adjacent
// and by cursor edge-transfer (internal/cursor), a direct port of the
// original's direction_t including its composed NorthEast/NorthWest/etc
// values.
type Direction uint8

const (
	DirNone  Direction = 0
	DirNorth Direction = 1 << 0
	DirEast  Direction = 1 << 1
	DirSouth Direction = 1 << 2
	DirWest  Direction = 1 << 3

	DirNorthWest = DirNorth | DirWest
	DirNorthEast = DirNorth | DirEast
	DirSouthEast = DirSouth | DirEast
	DirSouthWest = DirSouth | DirWest
)

// XDGWindow is the minimal view an output's Metadata needs of a mapped
// toplevel, avoiding an import cycle with internal/xdgshell (which
// depends on output for placement). Nothing in this module fills it:
// internal/xdgshell keeps its per-output window stack in its own
// Shell.windows map.
type XDGWindow struct {
	AppID string
	Title string
	X, Y  float64
	W, H  int32
}

// Metadata is the per-output side-channel store spec.md §4.3 calls
// "Generic RTTI data store metadata" — kept as a concrete typed struct
// rather than the original's type-erased metadata_t, since Go has no
// RTTI to erase into. Its only field is the XDG window list, which
// nothing in this module currently reads or writes.
type Metadata struct {
	XDGWindowList []XDGWindow
}

// Output is one physical display: its DRM connector/mode, its adjacency
// to neighboring outputs (for cursor edge-transfer), a pan/zoom, and a
// layered repaint signal bus painted by the renderer every frame.
type Output struct {
	connector drm.Connector
	mode      drm.Mode
	scanout   *drm.Scanout

	x, y float64
	zoom float64

	top, right, bottom, left *Output

	Metadata Metadata

	// OnRepaint is the layered signal bus spec.md §4.2 and §4.3
	// describe: the xdg shell connects at a mid layer, the cursor
	// manager always connects at signal.LayerTop so the cursor paints
	// last regardless of registration order.
	OnRepaint signal.Bus[*Output]

	dirty bool
}

// New constructs an Output for connector driven at mode. The caller
// (OutputManager) is responsible for later attaching a scanout via
// SetScanout once mode-set succeeds.
func New(connector drm.Connector, mode drm.Mode) *Output {
	return &Output{connector: connector, mode: mode, zoom: 1}
}

func (o *Output) Connector() drm.Connector { return o.connector }
func (o *Output) Mode() drm.Mode           { return o.mode }

// SetScanout attaches the DRM/EGL scanout surface produced by mode-set.
func (o *Output) SetScanout(s *drm.Scanout) { o.scanout = s }

// Scanout returns the attached scanout surface, or nil if this output
// has not been mode-set (disconnected or not yet configured).
func (o *Output) Scanout() *drm.Scanout { return o.scanout }

// MarkDirty flags the output for repaint on the next frame tick.
func (o *Output) MarkDirty() { o.dirty = true }

// TakeDirty reports and clears the dirty flag.
func (o *Output) TakeDirty() bool {
	d := o.dirty
	o.dirty = false
	return d
}

// To converts point between workspace and screenspace, a direct port of
// output_t::to<_From,_To> (the original's templated conversion, folded
// into an explicit from/to pair since Go generics can't specialize on
// value, only on type).
func (o *Output) To(from Space, to Space, p geom.FPoint) geom.FPoint {
	if from == to {
		return p
	}
	if from == Workspace && to == Screenspace {
		return geom.FPoint{X: p.X - o.x, Y: p.Y - o.y}
	}
	return geom.FPoint{X: o.x + p.X, Y: o.y + p.Y}
}

// SetOrigin sets this output's workspace-space origin, used by the
// layout step that arranges outputs side by side.
func (o *Output) SetOrigin(x, y float64) { o.x, o.y = x, y }

// Bounds returns this output's screenspace-sized region, positioned at
// its workspace origin — the rectangle cursor edge-transfer clamps
// against.
func (o *Output) Bounds() geom.Region {
	return geom.Region{X: o.x, Y: o.y, W: float64(o.mode.Width), H: float64(o.mode.Height)}
}

// Adjacent walks the cardinal adjacency links, a direct port of
// output_t::adjacent: each set bit in direction consumes one hop: North
// before East before South before West, returning jsl::nullopt (nil
// here) if any hop is missing or the walk returns to the origin output.
func (o *Output) Adjacent(direction Direction) *Output {
	result := o
	for result != nil && direction != DirNone {
		switch {
		case direction&DirNorth != 0:
			result, direction = result.top, direction&^DirNorth
		case direction&DirEast != 0:
			result, direction = result.right, direction&^DirEast
		case direction&DirSouth != 0:
			result, direction = result.bottom, direction&^DirSouth
		case direction&DirWest != 0:
			result, direction = result.left, direction&^DirWest
		}
	}
	if result == nil || result == o {
		return nil
	}
	return result
}

// LinkNorth sets a pair of reciprocal North/South adjacency links.
func LinkNorth(north, south *Output) {
	north.bottom, south.top = south, north
}

// LinkEast sets a pair of reciprocal East/West adjacency links.
func LinkEast(west, east *Output) {
	west.right, east.left = east, west
}

// Manager owns the set of outputs discovered on one DRM card, a direct
// port of output_manager_t. It performs its own connector-to-CRTC
// planning through drm.CRTCPlanner (the original's mode_set_allocator_t)
// and exposes strong handles to each Output for internal/compositor and
// internal/xdgshell to hold.
type Manager struct {
	handle  *drm.Handle
	planner *drm.CRTCPlanner
	outputs []resource.Shared[Output]

	// OnOutputNew fires once per output at discovery time (spec.md §4.4),
	// from inside NewManager, so only listeners connected before that
	// emission see it. internal/xdgshell and internal/compositor connect
	// to it and also walk Outputs() for outputs that already exist;
	// internal/cursor attaches through OnModeSet instead.
	OnOutputNew signal.Signal[*Output]
	OnModeSet   signal.Signal[struct{}]
}

// NewManager discovers connected connectors on handle and plans their
// CRTC assignment, mirroring output_manager_t's constructor loop
// ("We do not care for unused connectors").
func NewManager(handle *drm.Handle) (*Manager, error) {
	connectors, err := handle.Connectors()
	if err != nil {
		return nil, err
	}
	m := &Manager{handle: handle, planner: drm.NewCRTCPlanner()}
	for _, c := range connectors {
		if !c.Connected {
			continue
		}
		if !m.planner.Adopt(c) {
			log.Warn("connector has no free CRTC", "connector", c.Type)
			continue
		}
		mode, ok := c.PreferredMode()
		if !ok {
			log.Warn("connector advertises no modes", "connector", c.Type)
			continue
		}
		ref := resource.New(New(c, mode))
		m.outputs = append(m.outputs, ref)
		m.OnOutputNew.Emit(ref.Get())
	}
	return m, nil
}

// ModeSet performs the mode-set pass, creating a DRM/EGL scanout for
// every discovered output and arranging them left to right in
// workspace space — mirroring output_manager_t::mode_set, which logs
// each output's chosen mode then mode-sets it through the CRTC planner,
// finally emitting events.on_mode_set.
func (m *Manager) ModeSet() error {
	log.Info("performing mode-set", "outputs", len(m.outputs))
	var cursorX float64
	for _, ref := range m.outputs {
		o := ref.Get()
		crtc, err := m.planner.CRTCFor(o.connector)
		if err != nil {
			return err
		}
		log.Debug("mode-set", "connector", o.connector.Type, "w", o.mode.Width, "h", o.mode.Height, "hz", o.mode.Refresh)
		scanout, err := drm.NewScanout(m.handle, o.connector, crtc, o.mode)
		if err != nil {
			return fmt.Errorf("output: mode-set %s: %w", o.connector.Type, err)
		}
		o.SetScanout(scanout)
		o.SetOrigin(cursorX, 0)
		cursorX += float64(o.mode.Width)
	}
	for i := 0; i+1 < len(m.outputs); i++ {
		LinkEast(m.outputs[i].Get(), m.outputs[i+1].Get())
	}
	m.OnModeSet.Emit(struct{}{})
	return nil
}

// Outputs returns every discovered output's strong handle.
func (m *Manager) Outputs() []resource.Shared[Output] { return m.outputs }

// ByConnectorName finds an output by its connector's type string (e.g.
// "HDMI-A-1"), mirroring output_manager_t::by_name.
func (m *Manager) ByConnectorName(name string) (resource.Shared[Output], bool) {
	for _, ref := range m.outputs {
		if ref.Get().connector.Type == name {
			return ref, true
		}
	}
	return resource.Shared[Output]{}, false
}

// Configure overrides output's active mode without re-running mode-set,
// mirroring output_manager_t::configure.
func (m *Manager) Configure(o *Output, mode drm.Mode) {
	o.mode = mode
}
