// Package shm implements the wl_shm / wl_shm_pool / wl_buffer trio of
// spec.md §3 "SHM pool" / "Buffer", a direct port of original_source's
// shm_t/shm_pool_t/shm_buffer_t
// (original_source/include/barock/core/shm.hpp,
// include/barock/core/shm_pool.hpp and their .cpp files) onto
// internal/wire's generic resource dispatcher.
package shm

import (
	"unsafe"

	"github.com/kilnwm/kiln/internal/glrender"
	"github.com/kilnwm/kiln/internal/klog"
	"github.com/kilnwm/kiln/internal/wire"
	"golang.org/x/sys/unix"
)

var log = klog.For("shm")

// wl_shm format enum values actually sent by shm_t::bind
// (WL_SHM_FORMAT_XRGB8888 = 1, WL_SHM_FORMAT_RGBA8888 is the
// fourcc-derived 'RA24'/0x34324152 value — wl_shm's own enum has no
// small reserved slot for it).
const (
	formatXRGB8888 = 1
	formatRGBA8888 = 0x34324152
)

// wl_shm_pool request opcodes.
const (
	opPoolCreateBuffer = 0
	opPoolDestroy      = 1
	opPoolResize       = 2
)

// wl_shm / wl_buffer request opcodes and the one wl_buffer event.
const (
	opShmCreatePool = 0
	opShmRelease    = 1
	opBufferDestroy = 0
	evtFormat       = 0
	evtBufferRelease = 0
)

// Pool is a memory-mapped region shared with a client, matching
// shm_pool_t. It is destroyed only once both the client has issued
// pool.destroy *and* every buffer created from it has been destroyed —
// the same marked_delete flag the original uses.
type Pool struct {
	resource     *wire.Resource
	data         []byte
	markedDelete bool
	buffers      []*Buffer
}

// Buffer is one wl_buffer created from a Pool, matching shm_buffer_t.
// Offset/width/height/stride/format describe the view into Pool.data;
// Buffer never copies the mapping.
type Buffer struct {
	pool     *Pool
	resource *wire.Resource

	Offset, Width, Height, Stride int32
	Format                        uint32

	// released tracks whether wl_buffer.release has already been sent
	// for the buffer's current attachment, so the compositor never
	// double-releases a buffer shared by two surfaces in sequence.
	released bool
}

// Data returns the buffer's backing bytes, starting at Offset, sized
// Height*Stride — what internal/glrender uploads as a texture source.
func (b *Buffer) Data() []byte {
	end := int(b.Offset) + int(b.Height)*int(b.Stride)
	if end > len(b.pool.data) {
		end = len(b.pool.data)
	}
	return b.pool.data[b.Offset:end]
}

// Resource returns the wl_buffer protocol resource.
func (b *Buffer) Resource() *wire.Resource { return b.resource }

// PixelSource exposes the buffer's mapped bytes as a renderer upload
// source, the bridge between wl_shm's memory model and
// internal/glrender's texture upload path.
func (b *Buffer) PixelSource() glrender.PixelSource {
	data := b.Data()
	if len(data) == 0 {
		return glrender.PixelSource{Width: b.Width, Height: b.Height, StrideBytes: b.Stride}
	}
	return glrender.PixelSource{
		Width: b.Width, Height: b.Height, StrideBytes: b.Stride,
		Pixels: unsafe.Pointer(&data[0]),
	}
}

// Buffer satisfies internal/surface's bufferHolder interface, letting
// wl_surface.attach resolve a wl_buffer object argument back to its
// payload through Resource.Dispatcher without a second lookup table.
func (d *bufferDispatcher) Buffer() *Buffer { return d.buf }

// Release sends wl_buffer.release to the client, matching the
// frame-done flush step of spec.md §4.11 ("release happens only after
// the compositor has actually consumed a buffer via scanout").
func (b *Buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.resource.SendEvent(evtBufferRelease, nil)
}

// Shm is the wl_shm global, matching shm_t.
type Shm struct {
	global *wire.Global
}

// New installs the wl_shm global on display, matching shm_t's
// constructor (wl_global_create(display, &wl_shm_interface, VERSION,
// nullptr, bind)).
func New(display *wire.Display) *Shm {
	s := &Shm{}
	iface := wire.ShmInterface()
	s.global = wire.NewGlobal(display, iface, func(client wire.Client, ver, id uint32) {
		res := wire.NewResource(client, iface, ver, id, &shmDispatcher{})
		if res == nil {
			return
		}
		res.SendEvent(evtFormat, []wire.Argument{wire.ArgUint(formatXRGB8888)})
		res.SendEvent(evtFormat, []wire.Argument{wire.ArgUint(formatRGBA8888)})
	})
	return s
}

type shmDispatcher struct{}

func (d *shmDispatcher) Destroy() {}

func (d *shmDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	switch opcode {
	case opShmCreatePool:
		if len(args) < 3 {
			return
		}
		handleCreatePool(r, args[0].Uint, args[1].FD, args[2].Int)
	case opShmRelease:
		r.Destroy()
	}
}

func handleCreatePool(r *wire.Resource, id uint32, fd int, size int32) {
	client := r.Client()
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		client.PostNoMemory()
		return
	}

	pool := &Pool{data: data}
	poolIface := wire.ShmPoolInterface()
	poolRes := wire.NewResource(client, poolIface, r.Version(), id, &poolDispatcher{pool: pool})
	if poolRes == nil {
		unix.Munmap(data)
		return
	}
	pool.resource = poolRes
	log.Debug("created pool", "size", size, "fd", fd)
}

type poolDispatcher struct{ pool *Pool }

func (d *poolDispatcher) Destroy() {
	p := d.pool
	if len(p.buffers) == 0 {
		unix.Munmap(p.data)
	} else {
		p.markedDelete = true
	}
}

func (d *poolDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	p := d.pool
	switch opcode {
	case opPoolCreateBuffer:
		if len(args) < 6 {
			return
		}
		id := args[0].Uint
		buf := &Buffer{
			pool:   p,
			Offset: args[1].Int, Width: args[2].Int, Height: args[3].Int, Stride: args[4].Int,
			Format: args[5].Uint,
		}
		bufIface := wire.BufferInterface()
		res := wire.NewResource(r.Client(), bufIface, r.Version(), id, &bufferDispatcher{buf: buf})
		if res == nil {
			return
		}
		buf.resource = res
		p.buffers = append(p.buffers, buf)
		log.Debug("create buffer", "offset", buf.Offset, "w", buf.Width, "h", buf.Height, "stride", buf.Stride, "format", buf.Format)
	case opPoolDestroy:
		r.Destroy()
	case opPoolResize:
		log.Warn("pool resize unsupported")
	}
}

type bufferDispatcher struct{ buf *Buffer }

func (d *bufferDispatcher) Destroy() {
	buf, p := d.buf, d.buf.pool
	for i, b := range p.buffers {
		if b == buf {
			p.buffers = append(p.buffers[:i], p.buffers[i+1:]...)
			break
		}
	}
	if p.markedDelete && len(p.buffers) == 0 {
		unix.Munmap(p.data)
	}
}

func (d *bufferDispatcher) Dispatch(r *wire.Resource, opcode uint32, args []wire.Argument) {
	if opcode == opBufferDestroy {
		r.Destroy()
	}
}
