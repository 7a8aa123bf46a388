package compositor

import (
	"encoding/binary"

	"github.com/kilnwm/kiln/internal/drm"
	"github.com/kilnwm/kiln/internal/wire"
	"golang.org/x/sys/unix"
)

// zwp_linux_dmabuf_v1 / zwp_linux_dmabuf_feedback_v1 opcodes, spec.md
// §6: "get_default_feedback responds with: main_device, format_table
// via memfd ... tranche_target_device, tranche_flags=0,
// tranche_formats, tranche_done, done." Grounded on
// original_source/src/dmabuf/feedback.cpp's identical send order.
const (
	opDmabufDestroy             = 0
	opDmabufCreateParams        = 1
	opDmabufGetDefaultFeedback  = 2
	opDmabufGetSurfaceFeedback  = 3

	evtFeedbackDone              = 0
	evtFeedbackFormatTable       = 1
	evtFeedbackMainDevice        = 2
	evtFeedbackTrancheDone       = 3
	evtFeedbackTrancheTarget     = 4
	evtFeedbackTrancheFormats    = 5
	evtFeedbackTrancheFlags      = 6

	opBufferParamsDestroy = 0
)

// fourccARGB8888 / fourccXRGB8888 are the DRM_FORMAT_* values spec.md
// §6 lists as the only two supported formats, each only at
// modLinear.
const (
	fourccARGB8888 = 0x34325241
	fourccXRGB8888 = 0x34325258
	modLinear      = 0
)

// dmabufFormatTable is the 16-bytes-per-entry {u32 format; u32 pad;
// u64 modifier} table spec.md §6 specifies, built once at startup since
// kiln's supported format set never changes at runtime.
func dmabufFormatTable() []byte {
	formats := []uint32{fourccARGB8888, fourccXRGB8888}
	buf := make([]byte, 16*len(formats))
	for i, f := range formats {
		off := i * 16
		binary.LittleEndian.PutUint32(buf[off:], f)
		binary.LittleEndian.PutUint32(buf[off+4:], 0)
		binary.LittleEndian.PutUint64(buf[off+8:], modLinear)
	}
	return buf
}

func memfdTable(data []byte) (int, error) {
	fd, err := unix.MemfdCreate("kiln-dmabuf-formats", 0)
	if err != nil {
		return -1, err
	}
	if err := unix.Ftruncate(fd, int64(len(data))); err != nil {
		unix.Close(fd)
		return -1, err
	}
	mem, err := unix.Mmap(fd, 0, len(data), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return -1, err
	}
	copy(mem, data)
	unix.Munmap(mem)
	return fd, nil
}

// dmabufManager owns the zwp_linux_dmabuf_v1 global and the DRM device
// id every feedback object advertises as its main_device.
type dmabufManager struct {
	display *wire.Display
	devID   []byte
}

func newDmabufManager(display *wire.Display, handle *drm.Handle) (*dmabufManager, error) {
	devID, err := handle.DevID()
	if err != nil {
		return nil, err
	}
	dm := &dmabufManager{display: display, devID: devID}
	iface := wire.LinuxDmabufInterface()
	wire.NewGlobal(display, iface, func(client wire.Client, ver, id uint32) {
		wire.NewResource(client, iface, ver, id, &dmabufDispatcher{dm: dm})
	})
	return dm, nil
}

type dmabufDispatcher struct{ dm *dmabufManager }

func (d *dmabufDispatcher) Destroy() {}

func (d *dmabufDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	switch opcode {
	case opDmabufDestroy:
		r.Destroy()
	case opDmabufCreateParams:
		if len(args) < 1 {
			return
		}
		// zwp_linux_buffer_params_v1.add/create remain stubbed: real
		// dmabuf import needs a GBM import path not specified here
		// (spec.md §9 Open Question).
		wire.NewResource(r.Client(), wire.LinuxBufferParamsInterface(), r.Version(), args[0].Uint, &bufferParamsDispatcher{})
	case opDmabufGetDefaultFeedback, opDmabufGetSurfaceFeedback:
		idIdx := 0
		if opcode == opDmabufGetSurfaceFeedback {
			if len(args) < 2 {
				return
			}
			idIdx = 1
		} else if len(args) < 1 {
			return
		}
		fres := wire.NewResource(r.Client(), wire.LinuxDmabufFeedbackInterface(), r.Version(), args[idIdx].Uint, &feedbackDispatcher{})
		if fres == nil {
			return
		}
		d.dm.sendFeedback(fres)
	}
}

// sendFeedback emits the full feedback sequence spec.md §6 specifies,
// in the order named there: main_device, format_table, then a single
// tranche (every format kiln supports lives on the same DRM node, so
// one tranche covers all of it), then done.
func (dm *dmabufManager) sendFeedback(res *wire.Resource) {
	table := dmabufFormatTable()
	fd, err := memfdTable(table)
	if err != nil {
		log.Warn("dmabuf format table memfd failed", "err", err)
		return
	}
	res.SendEvent(evtFeedbackMainDevice, []wire.Argument{wire.ArgArray(dm.devID)})
	res.SendEvent(evtFeedbackFormatTable, []wire.Argument{wire.ArgFD(fd), wire.ArgUint(uint32(len(table)))})
	res.SendEvent(evtFeedbackTrancheTarget, []wire.Argument{wire.ArgArray(dm.devID)})
	res.SendEvent(evtFeedbackTrancheFlags, []wire.Argument{wire.ArgUint(0)})

	indices := make([]byte, 2*2) // two entries, index 0 and 1
	binary.LittleEndian.PutUint16(indices[0:], 0)
	binary.LittleEndian.PutUint16(indices[2:], 1)
	res.SendEvent(evtFeedbackTrancheFormats, []wire.Argument{wire.ArgArray(indices)})
	res.SendEvent(evtFeedbackTrancheDone, nil)
	res.SendEvent(evtFeedbackDone, nil)
}

type feedbackDispatcher struct{}

func (feedbackDispatcher) Destroy() {}
func (feedbackDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	if opcode == 0 {
		r.Destroy()
	}
}

type bufferParamsDispatcher struct{}

func (bufferParamsDispatcher) Destroy() {}
func (bufferParamsDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	if opcode == opBufferParamsDestroy {
		r.Destroy()
	}
}
