// Package libinput is the input façade spec.md §1 calls an external
// collaborator: "owns the physical seat connection; presents a minimal
// façade: poll, and signals for motion/button/scroll/key/device
// add-remove." It binds libinput + libudev directly with cgo, a direct
// port of original_source's input_manager_t
// (original_source/include/barock/core/input.hpp,
// src/core/input.cpp), restructured around internal/signal instead of
// signal_t and returning raw evdev scancodes rather than owning its own
// xkb_state — internal/xkbkey already owns exactly one canonical
// xkb_state per seat (internal/seat), so duplicating xkb ownership here
// the way the original does (it keeps its own xkb.state purely to
// satisfy xkb_state_update_key bookkeeping that nothing reads back) was
// dropped as redundant.
package libinput

/*
#cgo pkg-config: libinput libudev
#include <stdlib.h>
#include <fcntl.h>
#include <poll.h>
#include <unistd.h>
#include <sys/ioctl.h>
#include <linux/input.h>
#include <libudev.h>
#include <libinput.h>
#include "libinput_shim.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime/cgo"
	"unsafe"

	"github.com/kilnwm/kiln/internal/signal"
)

// ButtonState mirrors libinput_button_state.
type ButtonState int

const (
	ButtonReleased ButtonState = iota
	ButtonPressed
)

// KeyState mirrors libinput_key_state.
type KeyState int

const (
	KeyReleased KeyState = iota
	KeyPressed
)

// MotionEvent is relative pointer motion (LIBINPUT_EVENT_POINTER_MOTION).
type MotionEvent struct{ DX, DY float64 }

// MotionAbsoluteEvent is absolute pointer motion, delivered in the
// device's own normalized coordinate space
// (LIBINPUT_EVENT_POINTER_MOTION_ABSOLUTE) — tablets report this
// instead of MotionEvent.
type MotionAbsoluteEvent struct{ XNorm, YNorm float64 }

// ButtonEvent is a pointer button press/release.
type ButtonEvent struct {
	Button uint32
	State  ButtonState
}

// ScrollEvent carries v120-normalized wheel deltas, matching the
// original's mouse_axis_t / libinput_event_pointer_get_scroll_value_v120.
type ScrollEvent struct{ Horizontal, Vertical float64 }

// KeyEvent is a raw evdev keycode press/release; internal/seat feeds it
// through internal/xkbkey to get a keysym and UTF-8 text.
type KeyEvent struct {
	Keycode uint32
	State   KeyState
}

// Manager owns the libinput/udev context for one seat, a direct port of
// input_manager_t.
type Manager struct {
	li   *C.struct_libinput
	udev *C.struct_udev
	fd   int
	h    cgo.Handle

	OnMotion         signal.Signal[MotionEvent]
	OnMotionAbsolute signal.Signal[MotionAbsoluteEvent]
	OnButton         signal.Signal[ButtonEvent]
	OnScroll         signal.Signal[ScrollEvent]
	OnKey            signal.Signal[KeyEvent]
	OnDeviceAdd      signal.Signal[string]
	OnDeviceRemove   signal.Signal[string]
}

var openFiles = map[uintptr]int{}

//export libinputOpenRestricted
func libinputOpenRestricted(path *C.char, flags C.int, handle C.uintptr_t) C.int {
	cpath := C.GoString(path)
	fd := C.open(path, flags)
	if fd < 0 {
		return -1
	}
	// Grab the device exclusively, matching the original's
	// `ioctl(fd, EVIOCGRAB, 1)` so kiln (not getty or another
	// compositor) owns every input event while running.
	C.ioctl(fd, C.EVIOCGRAB, C.int(1))
	_ = cpath
	return fd
}

//export libinputCloseRestricted
func libinputCloseRestricted(fd C.int, handle C.uintptr_t) {
	C.close(fd)
}

// New opens udev, creates a libinput context, and assigns it to seat
// (typically "seat0"), mirroring input_manager_t's constructor.
func New(seat string) (*Manager, error) {
	udev := C.udev_new()
	if udev == nil {
		return nil, errors.New("libinput: udev_new failed")
	}
	m := &Manager{udev: udev}
	m.h = cgo.NewHandle(m)

	li := C.libinput_udev_create_context(&C.kiln_libinput_interface, unsafe.Pointer(uintptr(m.h)), udev)
	if li == nil {
		C.udev_unref(udev)
		return nil, errors.New("libinput: libinput_udev_create_context failed")
	}
	m.li = li

	cseat := C.CString(seat)
	defer C.free(unsafe.Pointer(cseat))
	if C.libinput_udev_assign_seat(li, cseat) != 0 {
		m.Close()
		return nil, fmt.Errorf("libinput: failed to assign seat %q", seat)
	}
	m.fd = int(C.libinput_get_fd(li))
	return m, nil
}

// Close releases the libinput and udev contexts.
func (m *Manager) Close() {
	if m.li != nil {
		C.libinput_unref(m.li)
	}
	if m.udev != nil {
		C.udev_unref(m.udev)
	}
	m.h.Delete()
}

// FD is the pollable libinput fd. The compositor's main loop does not
// multiplex it with the Wayland event loop; it calls Poll directly.
func (m *Manager) FD() int { return m.fd }

// Poll waits up to timeoutMsec milliseconds for libinput activity (-1
// blocks indefinitely), then dispatches and emits every queued event,
// returning the count processed — mirroring input_manager_t::poll.
func (m *Manager) Poll(timeoutMsec int) int {
	pfd := C.struct_pollfd{fd: C.int(m.fd), events: C.POLLIN}
	if C.poll(&pfd, 1, C.int(timeoutMsec)) <= 0 {
		return 0
	}
	return m.Dispatch()
}

// Dispatch drains and emits every currently queued libinput event
// without blocking on poll — used when the fd is already known-ready
// from a shared epoll/poll loop.
func (m *Manager) Dispatch() int {
	C.libinput_dispatch(m.li)
	n := 0
	for {
		ev := C.libinput_get_event(m.li)
		if ev == nil {
			break
		}
		n++
		m.handle(ev)
		C.libinput_event_destroy(ev)
	}
	return n
}

func (m *Manager) handle(ev *C.struct_libinput_event) {
	switch C.libinput_event_get_type(ev) {
	case C.LIBINPUT_EVENT_POINTER_MOTION:
		p := C.libinput_event_get_pointer_event(ev)
		m.OnMotion.Emit(MotionEvent{
			DX: float64(C.libinput_event_pointer_get_dx(p)),
			DY: float64(C.libinput_event_pointer_get_dy(p)),
		})
	case C.LIBINPUT_EVENT_POINTER_MOTION_ABSOLUTE:
		p := C.libinput_event_get_pointer_event(ev)
		m.OnMotionAbsolute.Emit(MotionAbsoluteEvent{
			XNorm: float64(C.libinput_event_pointer_get_absolute_x_transformed(p, 1)),
			YNorm: float64(C.libinput_event_pointer_get_absolute_y_transformed(p, 1)),
		})
	case C.LIBINPUT_EVENT_POINTER_BUTTON:
		p := C.libinput_event_get_pointer_event(ev)
		state := ButtonReleased
		if C.libinput_event_pointer_get_button_state(p) == C.LIBINPUT_BUTTON_STATE_PRESSED {
			state = ButtonPressed
		}
		m.OnButton.Emit(ButtonEvent{
			Button: uint32(C.libinput_event_pointer_get_button(p)),
			State:  state,
		})
	case C.LIBINPUT_EVENT_POINTER_SCROLL_WHEEL:
		p := C.libinput_event_get_pointer_event(ev)
		var horiz, vert C.double
		if C.libinput_event_pointer_has_axis(p, C.LIBINPUT_POINTER_AXIS_SCROLL_HORIZONTAL) != 0 {
			horiz = C.libinput_event_pointer_get_scroll_value_v120(p, C.LIBINPUT_POINTER_AXIS_SCROLL_HORIZONTAL)
		}
		if C.libinput_event_pointer_has_axis(p, C.LIBINPUT_POINTER_AXIS_SCROLL_VERTICAL) != 0 {
			vert = C.libinput_event_pointer_get_scroll_value_v120(p, C.LIBINPUT_POINTER_AXIS_SCROLL_VERTICAL)
		}
		m.OnScroll.Emit(ScrollEvent{Horizontal: float64(horiz), Vertical: float64(vert)})
	case C.LIBINPUT_EVENT_KEYBOARD_KEY:
		k := C.libinput_event_get_keyboard_event(ev)
		state := KeyReleased
		if C.libinput_event_keyboard_get_key_state(k) == C.LIBINPUT_KEY_STATE_PRESSED {
			state = KeyPressed
		}
		m.OnKey.Emit(KeyEvent{Keycode: uint32(C.libinput_event_keyboard_get_key(k)), State: state})
	case C.LIBINPUT_EVENT_DEVICE_ADDED:
		dev := C.libinput_event_get_device(ev)
		m.OnDeviceAdd.Emit(C.GoString(C.libinput_device_get_name(dev)))
	case C.LIBINPUT_EVENT_DEVICE_REMOVED:
		dev := C.libinput_event_get_device(ev)
		m.OnDeviceRemove.Emit(C.GoString(C.libinput_device_get_name(dev)))
	}
}
