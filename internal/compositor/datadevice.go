package compositor

import "github.com/kilnwm/kiln/internal/wire"

// wl_data_device_manager / wl_data_device / wl_data_source request
// opcodes, spec.md §6: "stub (get_data_device creates a resource;
// clipboard mechanics out of scope)", grounded on
// original_source/src/core/wl_data_device_manager.cpp's identical stub
// shape.
const (
	opDataDeviceManagerCreateDataSource = 0
	opDataDeviceManagerGetDataDevice    = 1

	opDataDeviceRelease = 2
	opDataSourceDestroy = 1
)

// newDataDeviceManager installs the wl_data_device_manager global.
// Neither clipboard transfer nor drag-and-drop is implemented; every
// request produces a live protocol object so clients that unconditionally
// bind the global and call get_data_device on seat focus don't fault.
func newDataDeviceManager(display *wire.Display) *wire.Global {
	iface := wire.DataDeviceManagerInterface()
	return wire.NewGlobal(display, iface, func(client wire.Client, ver, id uint32) {
		wire.NewResource(client, iface, ver, id, &dataDeviceManagerDispatcher{})
	})
}

type dataDeviceManagerDispatcher struct{}

func (dataDeviceManagerDispatcher) Destroy() {}

func (dataDeviceManagerDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	switch opcode {
	case opDataDeviceManagerCreateDataSource:
		if len(args) < 1 {
			return
		}
		wire.NewResource(r.Client(), wire.DataSourceInterface(), r.Version(), args[0].Uint, &dataSourceDispatcher{})
	case opDataDeviceManagerGetDataDevice:
		if len(args) < 1 {
			return
		}
		wire.NewResource(r.Client(), wire.DataDeviceInterface(), r.Version(), args[0].Uint, &dataDeviceDispatcher{})
	}
}

type dataDeviceDispatcher struct{}

func (dataDeviceDispatcher) Destroy() {}

func (dataDeviceDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	if opcode == opDataDeviceRelease {
		r.Destroy()
	}
}

type dataSourceDispatcher struct{}

func (dataSourceDispatcher) Destroy() {}

func (dataSourceDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	if opcode == opDataSourceDestroy {
		r.Destroy()
	}
}
