// Scanout surface setup: a GBM surface backing an EGL window surface,
// mode-set onto a CRTC and paged by drmModePageFlip. Structured after
// app/internal/window/egl.go's context/createContext/MakeCurrent/
// Present shape (the teacher's own EGL context lifecycle), adapted from
// a windowing-system native window to a GBM native window, and grounded
// on original_source's minidrm::framebuffer::egl_t (mode_set(),
// present()) for the DRM side of the handshake.
package drm

/*
#cgo pkg-config: libdrm gbm egl glesv2
#include <stdlib.h>
#include <gbm.h>
#include <EGL/egl.h>
#include <EGL/eglext.h>
#include <xf86drmMode.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

const (
	eglPlatformGBMKHR = 0x31D7
)

// Scanout is one connector's mode-set CRTC plus the GBM/EGL surface
// feeding it, the Go analogue of minidrm::framebuffer::egl_t.
type Scanout struct {
	handle    *Handle
	connector Connector
	crtcID    uint32
	mode      Mode

	gbmDev     *C.struct_gbm_device
	gbmSurface *C.struct_gbm_surface
	eglDisplay C.EGLDisplay
	eglContext C.EGLContext
	eglSurface C.EGLSurface

	current *C.struct_gbm_bo
	fbID    uint32
	firstFlip bool
}

// NewScanout creates a GBM/EGL scanout surface for driving connector at
// mode on crtcID. It does not mode-set: the drmModeSetCrtc happens on
// the first Present. The GBM surface's buffer count is left to GBM.
func NewScanout(h *Handle, connector Connector, crtcID uint32, mode Mode) (*Scanout, error) {
	gbmDev := C.gbm_create_device(h.fd)
	if gbmDev == nil {
		return nil, fmt.Errorf("drm: gbm_create_device failed")
	}
	gbmSurface := C.gbm_surface_create(gbmDev,
		C.uint32_t(mode.Width), C.uint32_t(mode.Height),
		C.GBM_FORMAT_XRGB8888,
		C.GBM_BO_USE_SCANOUT|C.GBM_BO_USE_RENDERING)
	if gbmSurface == nil {
		C.gbm_device_destroy(gbmDev)
		return nil, fmt.Errorf("drm: gbm_surface_create failed")
	}

	eglDisp := C.eglGetPlatformDisplayEXT(eglPlatformGBMKHR, unsafe.Pointer(gbmDev), nil)
	if eglDisp == nil {
		return nil, fmt.Errorf("drm: eglGetPlatformDisplayEXT failed")
	}
	var major, minor C.EGLint
	if C.eglInitialize(eglDisp, &major, &minor) == 0 {
		return nil, fmt.Errorf("drm: eglInitialize failed")
	}
	C.eglBindAPI(C.EGL_OPENGL_ES_API)

	attribs := []C.EGLint{
		C.EGL_SURFACE_TYPE, C.EGL_WINDOW_BIT,
		C.EGL_RENDERABLE_TYPE, C.EGL_OPENGL_ES2_BIT,
		C.EGL_RED_SIZE, 8,
		C.EGL_GREEN_SIZE, 8,
		C.EGL_BLUE_SIZE, 8,
		C.EGL_NONE,
	}
	var cfg C.EGLConfig
	var numCfg C.EGLint
	if C.eglChooseConfig(eglDisp, &attribs[0], &cfg, 1, &numCfg) == 0 || numCfg == 0 {
		return nil, fmt.Errorf("drm: eglChooseConfig found no config")
	}

	ctxAttribs := []C.EGLint{C.EGL_CONTEXT_CLIENT_VERSION, 2, C.EGL_NONE}
	ctx := C.eglCreateContext(eglDisp, cfg, C.EGLContext(C.EGL_NO_CONTEXT), &ctxAttribs[0])
	if ctx == nil {
		return nil, fmt.Errorf("drm: eglCreateContext failed")
	}

	surf := C.eglCreateWindowSurface(eglDisp, cfg, C.EGLNativeWindowType(unsafe.Pointer(gbmSurface)), nil)
	if surf == nil {
		return nil, fmt.Errorf("drm: eglCreateWindowSurface failed")
	}

	if C.eglMakeCurrent(eglDisp, surf, surf, ctx) == 0 {
		return nil, fmt.Errorf("drm: eglMakeCurrent failed")
	}

	return &Scanout{
		handle:     h,
		connector:  connector,
		crtcID:     crtcID,
		mode:       mode,
		gbmDev:     gbmDev,
		gbmSurface: gbmSurface,
		eglDisplay: eglDisp,
		eglContext: ctx,
		eglSurface: surf,
		firstFlip:  true,
	}, nil
}

// MakeCurrent binds this scanout's EGL context to the calling
// goroutine's thread, required before internal/glrender issues any GL
// calls for this output — the same contract as the teacher's
// context.MakeCurrent in app/internal/window/egl.go.
func (s *Scanout) MakeCurrent() error {
	if C.eglMakeCurrent(s.eglDisplay, s.eglSurface, s.eglSurface, s.eglContext) == 0 {
		return fmt.Errorf("drm: eglMakeCurrent failed")
	}
	return nil
}

// Present swaps the GBM/EGL surface, locks the newly rendered front
// buffer object, adds a new DRM framebuffer for it (framebuffers are
// added on every call and are neither cached nor removed), and issues a
// drmModeSetCrtc on the very first present (to light up the display) or
// a drmModePageFlip thereafter — mirroring minidrm::framebuffer::egl_t's
// mode_set()-then-present() split, collapsed into one call since kiln's
// runtime always presents once per frame regardless of whether this is
// the output's first frame.
func (s *Scanout) Present() error {
	if C.eglSwapBuffers(s.eglDisplay, s.eglSurface) == 0 {
		return fmt.Errorf("drm: eglSwapBuffers failed")
	}

	bo := C.gbm_surface_lock_front_buffer(s.gbmSurface)
	if bo == nil {
		return fmt.Errorf("drm: gbm_surface_lock_front_buffer failed")
	}

	handle := C.gbm_bo_get_handle(bo)
	stride := C.gbm_bo_get_stride(bo)

	var fbID C.uint32_t
	if C.drmModeAddFB(s.handle.fd, C.uint32_t(s.mode.Width), C.uint32_t(s.mode.Height),
		24, 32, stride, handle.u32, &fbID) != 0 {
		C.gbm_surface_release_buffer(s.gbmSurface, bo)
		return fmt.Errorf("drm: drmModeAddFB failed")
	}

	if s.firstFlip {
		modeinfo := drmModeInfoFor(s.mode)
		if C.drmModeSetCrtc(s.handle.fd, C.uint32_t(s.crtcID), fbID, 0, 0,
			(*C.uint32_t)(unsafe.Pointer(&s.connector.ID)), 1, &modeinfo) != 0 {
			return fmt.Errorf("drm: drmModeSetCrtc failed")
		}
		s.firstFlip = false
	} else if C.drmModePageFlip(s.handle.fd, C.uint32_t(s.crtcID), fbID,
		C.DRM_MODE_PAGE_FLIP_EVENT, nil) != 0 {
		return fmt.Errorf("drm: drmModePageFlip failed")
	}

	if s.current != nil {
		C.gbm_surface_release_buffer(s.gbmSurface, s.current)
	}
	s.current = bo
	s.fbID = uint32(fbID)
	return nil
}

func drmModeInfoFor(m Mode) C.drmModeModeInfo {
	var info C.drmModeModeInfo
	info.hdisplay = C.__u16(m.Width)
	info.vdisplay = C.__u16(m.Height)
	info.vrefresh = C.__u32(m.Refresh)
	return info
}

// Close releases the EGL context/surface and GBM surface/device.
func (s *Scanout) Close() {
	C.eglMakeCurrent(s.eglDisplay, nil, nil, nil)
	C.eglDestroySurface(s.eglDisplay, s.eglSurface)
	C.eglDestroyContext(s.eglDisplay, s.eglContext)
	C.gbm_surface_destroy(s.gbmSurface)
	C.gbm_device_destroy(s.gbmDev)
}
