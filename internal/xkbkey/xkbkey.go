// Package xkbkey is the server-side mirror of the teacher's client-side
// xkb binding (app/internal/xkb/xkb_unix.go): same library
// (libxkbcommon), same direct-cgo idiom, opposite role. A server builds
// its own keymap from RMLVO names (rather than receiving one from a
// compositor) and hands the serialized keymap text to clients over
// wl_keyboard.keymap, then tracks one canonical xkb_state driven by raw
// evdev keycodes from internal/libinput.
package xkbkey

/*
#cgo pkg-config: xkbcommon
#include <stdlib.h>
#include <xkbcommon/xkbcommon.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// Keysym is an XKB keysym value, the same unit
// xkb_state_key_get_one_sym returns.
type Keysym = C.xkb_keysym_t

// ModMask is a serialized XKB modifier mask (depressed|latched|locked),
// the payload of wl_keyboard.modifiers.
type ModMask = C.xkb_mod_mask_t

// Context owns the server's keymap and canonical input state.
type Context struct {
	ctx    *C.struct_xkb_context
	keymap *C.struct_xkb_keymap
	state  *C.struct_xkb_state
}

// Names is the RMLVO (rules/model/layout/variant/options) tuple used to
// build a keymap, the server-side equivalent of what a client receives
// pre-built. Empty fields fall back to libxkbcommon's own defaults
// (typically "evdev"/"pc105"/"us").
type Names struct {
	Rules, Model, Layout, Variant, Options string
}

// New compiles a keymap from names and creates a fresh xkb_state for it.
func New(names Names) (*Context, error) {
	ctx := C.xkb_context_new(C.XKB_CONTEXT_NO_FLAGS)
	if ctx == nil {
		return nil, errors.New("xkbkey: xkb_context_new failed")
	}
	rmlvo := C.struct_xkb_rule_names{
		rules:   cstrOrNil(names.Rules),
		model:   cstrOrNil(names.Model),
		layout:  cstrOrNil(names.Layout),
		variant: cstrOrNil(names.Variant),
		options: cstrOrNil(names.Options),
	}
	defer freeRMLVO(rmlvo)

	keymap := C.xkb_keymap_new_from_names(ctx, &rmlvo, C.XKB_KEYMAP_COMPILE_NO_FLAGS)
	if keymap == nil {
		C.xkb_context_unref(ctx)
		return nil, fmt.Errorf("xkbkey: xkb_keymap_new_from_names failed for layout %q", names.Layout)
	}
	state := C.xkb_state_new(keymap)
	if state == nil {
		C.xkb_keymap_unref(keymap)
		C.xkb_context_unref(ctx)
		return nil, errors.New("xkbkey: xkb_state_new failed")
	}
	return &Context{ctx: ctx, keymap: keymap, state: state}, nil
}

func cstrOrNil(s string) *C.char {
	if s == "" {
		return nil
	}
	return C.CString(s)
}

func freeRMLVO(r C.struct_xkb_rule_names) {
	for _, p := range []*C.char{r.rules, r.model, r.layout, r.variant, r.options} {
		if p != nil {
			C.free(unsafe.Pointer(p))
		}
	}
}

// Close releases the keymap, state, and context.
func (c *Context) Close() {
	C.xkb_state_unref(c.state)
	C.xkb_keymap_unref(c.keymap)
	C.xkb_context_unref(c.ctx)
}

// KeymapString serializes the compiled keymap as XKB_KEYMAP_FORMAT_TEXT_V1
// text, the exact byte stream wl_keyboard.keymap ships to clients in a
// memfd/shm-backed fd (internal/seat handles the fd plumbing; this just
// produces the bytes).
func (c *Context) KeymapString() []byte {
	cstr := C.xkb_keymap_get_as_string(c.keymap, C.XKB_KEYMAP_FORMAT_TEXT_V1)
	defer C.free(unsafe.Pointer(cstr))
	return []byte(C.GoString(cstr))
}

// evdevToXKB converts a Linux evdev keycode (as reported by libinput) to
// an XKB keycode, the same +8 offset the teacher's xkb_unix.go applies
// (mapXKBKeyCode) per the XKB v1 wire convention.
func evdevToXKB(keycode uint32) C.xkb_keycode_t {
	return C.xkb_keycode_t(keycode + 8)
}

// UpdateKey feeds one evdev keycode press/release into the canonical
// state, returning the resulting keysym and whether the mod mask
// changed (callers send wl_keyboard.modifiers only on change).
func (c *Context) UpdateKey(keycode uint32, pressed bool) (sym Keysym, modsChanged bool) {
	xkbCode := evdevToXKB(keycode)
	sym = C.xkb_state_key_get_one_sym(c.state, xkbCode)
	var direction C.enum_xkb_key_direction
	if pressed {
		direction = C.XKB_KEY_DOWN
	} else {
		direction = C.XKB_KEY_UP
	}
	changes := C.xkb_state_update_key(c.state, xkbCode, direction)
	modsChanged = changes&(C.XKB_STATE_MODS_DEPRESSED|C.XKB_STATE_MODS_LATCHED|C.XKB_STATE_MODS_LOCKED) != 0
	return sym, modsChanged
}

// SerializeMods returns the depressed/latched/locked/group mask
// quadruple for wl_keyboard.modifiers, mirroring
// xkb_state_serialize_mods/xkb_state_serialize_layout.
func (c *Context) SerializeMods() (depressed, latched, locked ModMask, group uint32) {
	depressed = C.xkb_state_serialize_mods(c.state, C.XKB_STATE_MODS_DEPRESSED)
	latched = C.xkb_state_serialize_mods(c.state, C.XKB_STATE_MODS_LATCHED)
	locked = C.xkb_state_serialize_mods(c.state, C.XKB_STATE_MODS_LOCKED)
	group = uint32(C.xkb_state_serialize_layout(c.state, C.XKB_STATE_LAYOUT_EFFECTIVE))
	return
}

// ModIndex resolves a named modifier (e.g. "Control", "Shift", "Mod1",
// "Mod4") to its bit index in this keymap via xkb_keymap_mod_get_index —
// the call original_source's hotkey.cpp needed but reached for
// xkb_keymap_layout_get_index instead (a layout-name lookup, not a
// modifier lookup, so its modifier check always compared against
// whatever bit happened to alias that layout index). ModActive below
// does not use this index; it asks xkb_state_mod_name_is_active by name.
func (c *Context) ModIndex(name string) (uint32, bool) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	idx := C.xkb_keymap_mod_get_index(c.keymap, cname)
	if idx == C.XKB_MOD_INVALID {
		return 0, false
	}
	return uint32(idx), true
}

// ModActive reports whether the named modifier is currently active
// (depressed, latched, or locked — XKB_STATE_MODS_EFFECTIVE), the
// correct replacement for hotkey.cpp's mask comparison.
func (c *Context) ModActive(name string) bool {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.xkb_state_mod_name_is_active(c.state, cname, C.XKB_STATE_MODS_EFFECTIVE) == 1
}
