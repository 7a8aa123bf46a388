package wire

/*
#include <wayland-server-core.h>
#include <wayland-server-protocol.h>
#include "xdg_shell_server_protocol.h"
#include "linux_dmabuf_server_protocol.h"
*/
import "C"

// InterfaceRef pairs a wl_interface descriptor with the version kiln
// advertises for it, the only shape other packages need to call
// NewGlobal/NewResource without importing cgo themselves — keeping the
// generated protocol headers visible only inside internal/wire, the
// same boundary gio draws around its own generated shader/font tables.
type InterfaceRef struct {
	Ptr     *C.struct_wl_interface
	Version uint32
}

func ref(iface *C.struct_wl_interface, version uint32) InterfaceRef {
	return InterfaceRef{Ptr: iface, Version: version}
}

func CompositorInterface() InterfaceRef { return ref(&C.wl_compositor_interface, 6) }
func SubcompositorInterface() InterfaceRef {
	return ref(&C.wl_subcompositor_interface, 1)
}
func SubsurfaceInterface() InterfaceRef { return ref(&C.wl_subsurface_interface, 1) }
func ShmInterface() InterfaceRef        { return ref(&C.wl_shm_interface, 2) }
func ShmPoolInterface() InterfaceRef    { return ref(&C.wl_shm_pool_interface, 2) }
func BufferInterface() InterfaceRef     { return ref(&C.wl_buffer_interface, 2) }
func SurfaceInterface() InterfaceRef    { return ref(&C.wl_surface_interface, 6) }
func RegionInterface() InterfaceRef     { return ref(&C.wl_region_interface, 1) }
func CallbackInterface() InterfaceRef   { return ref(&C.wl_callback_interface, 1) }
func SeatInterface() InterfaceRef       { return ref(&C.wl_seat_interface, 9) }
func PointerInterface() InterfaceRef    { return ref(&C.wl_pointer_interface, 9) }
func KeyboardInterface() InterfaceRef   { return ref(&C.wl_keyboard_interface, 9) }
func TouchInterface() InterfaceRef      { return ref(&C.wl_touch_interface, 9) }
func OutputInterface() InterfaceRef     { return ref(&C.wl_output_interface, 4) }
func DataDeviceManagerInterface() InterfaceRef {
	return ref(&C.wl_data_device_manager_interface, 3)
}
func DataDeviceInterface() InterfaceRef { return ref(&C.wl_data_device_interface, 3) }
func DataSourceInterface() InterfaceRef { return ref(&C.wl_data_source_interface, 3) }

func XdgWmBaseInterface() InterfaceRef  { return ref(&C.xdg_wm_base_interface, 1) }
func XdgSurfaceInterface() InterfaceRef { return ref(&C.xdg_surface_interface, 1) }
func XdgToplevelInterface() InterfaceRef {
	return ref(&C.xdg_toplevel_interface, 1)
}
func XdgPositionerInterface() InterfaceRef {
	return ref(&C.xdg_positioner_interface, 1)
}

func LinuxDmabufInterface() InterfaceRef {
	return ref(&C.zwp_linux_dmabuf_v1_interface, 5)
}
func LinuxDmabufFeedbackInterface() InterfaceRef {
	return ref(&C.zwp_linux_dmabuf_feedback_v1_interface, 5)
}
func LinuxBufferParamsInterface() InterfaceRef {
	return ref(&C.zwp_linux_buffer_params_v1_interface, 5)
}
