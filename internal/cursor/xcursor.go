// Xcursor image loading: a direct cgo binding to libXcursor, the same
// library original_source's cursor_manager.cpp links against
// (XcursorLibraryLoadImage/XcursorImageDestroy), bound the teacher's way
// (direct cgo to the real C library) instead of a pure-Go cursor theme
// parser.
package cursor

/*
#cgo pkg-config: xcursor
#include <stdlib.h>
#include <X11/Xcursor/Xcursor.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/kilnwm/kiln/internal/glrender"
)

// XcursorTexture wraps a loaded Xcursor image, implementing Texture so
// the cursor manager can paint it the same way it paints a client
// surface's buffer.
type XcursorTexture struct {
	img *C.XcursorImage
}

// LoadXcursor loads name from theme at the given pixel size, mirroring
// XcursorLibraryLoadImage(name, theme, size). An empty theme requests
// libXcursor's own search path (the original's xcursor() method passes
// nullptr for theme on every call after startup, relying on
// XCURSOR_THEME/XCURSOR_PATH).
func LoadXcursor(name, theme string, size int) (*XcursorTexture, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var ctheme *C.char
	if theme != "" {
		ctheme = C.CString(theme)
		defer C.free(unsafe.Pointer(ctheme))
	}
	img := C.XcursorLibraryLoadImage(cname, ctheme, C.int(size))
	if img == nil {
		return nil, fmt.Errorf("cursor: XcursorLibraryLoadImage(%q, %q, %d) failed", name, theme, size)
	}
	return &XcursorTexture{img: img}, nil
}

// Close destroys the underlying XcursorImage.
func (x *XcursorTexture) Close() {
	if x.img != nil {
		C.XcursorImageDestroy(x.img)
		x.img = nil
	}
}

// PixelSource exposes the cursor's ARGB32 pixel buffer for upload,
// implementing Texture.
func (x *XcursorTexture) PixelSource() glrender.PixelSource {
	return glrender.PixelSource{
		Width:  int32(x.img.width),
		Height: int32(x.img.height),
		Pixels: unsafe.Pointer(x.img.pixels),
	}
}

// Hotspot returns the cursor's logical click point within its image.
func (x *XcursorTexture) Hotspot() (int32, int32) {
	return int32(x.img.xhot), int32(x.img.yhot)
}
