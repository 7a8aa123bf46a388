// Package drm is the DRM/KMS façade spec.md §1 lists as an external
// collaborator: "owns the physical display connection ... presents a
// minimal façade: enumerate connectors/modes, acquire/release an EGL
// scanout surface, page-flip." It binds libdrm directly with cgo, the
// same direct-cgo-to-a-real-C-library idiom the teacher uses for EGL
// and GLESv2 in app/internal/window/egl.go and app/internal/gl, rather
// than a hand-rolled ioctl layer — and it is a structural port of the
// original compositor's minidrm.hpp (original_source), which wraps the
// identical libdrm calls in C++ RAII handles.
package drm

/*
#cgo pkg-config: libdrm
#include <stdlib.h>
#include <fcntl.h>
#include <unistd.h>
#include <xf86drm.h>
#include <xf86drmMode.h>
*/
import "C"

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ConnectorType mirrors libdrm's drmModeConnection for a single port.
type ConnectorType string

// Mode is one entry from a connector's mode list, the same shape as the
// original's minidrm::drm::mode_t.
type Mode struct {
	Width, Height uint16
	Refresh       uint32
	Preferred     bool
}

// Connector describes one physical display output: its libdrm id, a
// human name, and its available modes.
type Connector struct {
	ID          uint32
	EncoderID   uint32
	Type        string
	Connected   bool
	Modes       []Mode
	possibleCRTCs []uint32
}

// PreferredMode returns the connector's preferred mode, or its first
// mode if none is marked preferred — mirroring
// output_manager_t::output_manager_t's `connector.modes()[0]` fallback.
func (c Connector) PreferredMode() (Mode, bool) {
	for _, m := range c.Modes {
		if m.Preferred {
			return m, true
		}
	}
	if len(c.Modes) > 0 {
		return c.Modes[0], true
	}
	return Mode{}, false
}

// Handle owns an open DRM card fd, the original's minidrm::drm::handle_t.
type Handle struct {
	fd   C.int
	path string
}

// Open opens a DRM render/primary node. When path is empty it probes
// /dev/dri/card0 through card3, the same discovery KILN_DRM_CARD can
// override (internal/config).
func Open(path string) (*Handle, error) {
	if path != "" {
		return openPath(path)
	}
	var lastErr error
	for i := 0; i < 4; i++ {
		h, err := openPath(fmt.Sprintf("/dev/dri/card%d", i))
		if err == nil {
			return h, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("drm: no usable card found: %w", lastErr)
}

func openPath(path string) (*Handle, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	fd := C.open(cpath, C.O_RDWR|C.O_CLOEXEC)
	if fd < 0 {
		return nil, fmt.Errorf("drm: open %s: %w", path, os.ErrNotExist)
	}
	if C.drmSetMaster(fd) != 0 {
		C.close(fd)
		return nil, fmt.Errorf("drm: %s is not the active DRM master (run from a VT, not over SSH)", path)
	}
	return &Handle{fd: fd, path: path}, nil
}

// Close drops DRM master and closes the card fd.
func (h *Handle) Close() {
	C.drmDropMaster(h.fd)
	C.close(h.fd)
}

// FD is the raw card file descriptor, used to add drmHandleEvent (page
// flip completion) to the compositor's event loop.
func (h *Handle) FD() int { return int(h.fd) }

// DevID returns the card node's dev_t encoded little-endian, the
// zwp_linux_dmabuf_feedback_v1.main_device payload — an fstat on the
// DRM node, the same lookup original_source/src/dmabuf/feedback.cpp
// performs before advertising a main_device array.
func (h *Handle) DevID() ([]byte, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(h.fd), &st); err != nil {
		return nil, fmt.Errorf("drm: fstat %s: %w", h.path, err)
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(st.Dev))
	return buf, nil
}

// Connectors enumerates every connector on the card, matching
// minidrm::drm::handle_t::connectors().
func (h *Handle) Connectors() ([]Connector, error) {
	res := C.drmModeGetResources(h.fd)
	if res == nil {
		return nil, fmt.Errorf("drm: drmModeGetResources failed on %s", h.path)
	}
	defer C.drmModeFreeResources(res)

	n := int(res.count_connectors)
	ids := unsafe.Slice(res.connectors, n)
	crtcIDs := unsafe.Slice(res.crtcs, int(res.count_crtcs))

	out := make([]Connector, 0, n)
	for i := 0; i < n; i++ {
		conn := C.drmModeGetConnector(h.fd, ids[i])
		if conn == nil {
			continue
		}
		c := Connector{
			ID:        uint32(conn.connector_id),
			Type:      connectorTypeName(uint32(conn._type), uint32(conn.connector_type_id)),
			Connected: conn.connection == C.DRM_MODE_CONNECTED,
		}
		modes := unsafe.Slice(conn.modes, int(conn.count_modes))
		for _, m := range modes {
			c.Modes = append(c.Modes, Mode{
				Width:     uint16(m.hdisplay),
				Height:    uint16(m.vdisplay),
				Refresh:   uint32(m.vrefresh),
				Preferred: m.type_&C.DRM_MODE_TYPE_PREFERRED != 0,
			})
		}
		for e := 0; e < int(conn.count_encoders); e++ {
			encID := unsafe.Slice(conn.encoders, int(conn.count_encoders))[e]
			enc := C.drmModeGetEncoder(h.fd, encID)
			if enc == nil {
				continue
			}
			for bit := 0; bit < len(crtcIDs); bit++ {
				if enc.possible_crtcs&(1<<uint(bit)) != 0 {
					c.possibleCRTCs = append(c.possibleCRTCs, crtcIDs[bit])
				}
			}
			C.drmModeFreeEncoder(enc)
		}
		C.drmModeFreeConnector(conn)
		out = append(out, c)
	}
	return out, nil
}

func connectorTypeName(t, id uint32) string {
	names := map[uint32]string{
		C.DRM_MODE_CONNECTOR_HDMIA:  "HDMI-A",
		C.DRM_MODE_CONNECTOR_HDMIB:  "HDMI-B",
		C.DRM_MODE_CONNECTOR_eDP:    "eDP",
		C.DRM_MODE_CONNECTOR_DP:     "DP",
		C.DRM_MODE_CONNECTOR_VGA:    "VGA",
		C.DRM_MODE_CONNECTOR_DVII:   "DVI-I",
		C.DRM_MODE_CONNECTOR_DVID:   "DVI-D",
		C.DRM_MODE_CONNECTOR_LVDS:   "LVDS",
		C.DRM_MODE_CONNECTOR_Virtual: "Virtual",
	}
	name, ok := names[t]
	if !ok {
		name = "Unknown"
	}
	return fmt.Sprintf("%s-%d", name, id)
}
