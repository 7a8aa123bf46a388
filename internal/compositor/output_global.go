package compositor

import (
	"github.com/kilnwm/kiln/internal/output"
	"github.com/kilnwm/kiln/internal/signal"
	"github.com/kilnwm/kiln/internal/wire"
)

// wl_output event opcodes and enum values, spec.md §6: "one per
// connector; sends geometry(0,0,0,0,Unknown,\"Virtual\",\"Monitor\",
// Normal), mode(PREFERRED,w,h,refresh), done."
const (
	evtOutputGeometry = 0
	evtOutputMode     = 1
	evtOutputDone     = 2
	evtOutputScale    = 3

	subpixelUnknown     = 0
	transformNormal     = 0
	modeFlagCurrent     = 0x1
	modeFlagPreferred   = 0x2

	opOutputRelease = 0
)

// outputGlobal is the wl_output global for one discovered output, a
// direct realization of the wire in spec.md §6 — no geometry computed
// from anything, since kiln never exposes physical placement beyond
// "Virtual"/"Monitor".
type outputGlobal struct {
	display *wire.Display
	out     *output.Output
	global  *wire.Global
}

func newOutputGlobal(display *wire.Display, o *output.Output) *outputGlobal {
	og := &outputGlobal{display: display, out: o}
	iface := wire.OutputInterface()
	og.global = wire.NewGlobal(display, iface, func(client wire.Client, ver, id uint32) {
		res := wire.NewResource(client, iface, ver, id, &outputResourceDispatcher{})
		if res == nil {
			return
		}
		og.sendState(res)
	})
	return og
}

func (og *outputGlobal) sendState(res *wire.Resource) {
	res.SendEvent(evtOutputGeometry, []wire.Argument{
		wire.ArgInt(0), wire.ArgInt(0),
		wire.ArgInt(0), wire.ArgInt(0),
		wire.ArgInt(subpixelUnknown),
		wire.ArgString("Virtual"), wire.ArgString("Monitor"),
		wire.ArgInt(transformNormal),
	})
	mode := og.out.Mode()
	res.SendEvent(evtOutputMode, []wire.Argument{
		wire.ArgUint(modeFlagCurrent | modeFlagPreferred),
		wire.ArgInt(int32(mode.Width)), wire.ArgInt(int32(mode.Height)),
		wire.ArgInt(int32(mode.Refresh)),
	})
	res.SendEvent(evtOutputScale, []wire.Argument{wire.ArgInt(1)})
	res.SendEvent(evtOutputDone, nil)
}

type outputResourceDispatcher struct{}

func (d *outputResourceDispatcher) Destroy() {}

func (d *outputResourceDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	if opcode == opOutputRelease {
		r.Destroy()
	}
}

// wireOutputGlobals installs one wl_output global per output already
// discovered and any discovered later, spec.md §4.4's "on_output_new"
// consumer list.
func (c *Compositor) wireOutputGlobals() {
	for _, ref := range c.outputs.Outputs() {
		c.outputGlobals = append(c.outputGlobals, newOutputGlobal(c.display, ref.Get()))
	}
	c.outputs.OnOutputNew.Connect(func(o *output.Output) signal.Action {
		c.outputGlobals = append(c.outputGlobals, newOutputGlobal(c.display, o))
		return signal.Keep
	})
}
