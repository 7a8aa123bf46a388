package compositor

import (
	"github.com/kilnwm/kiln/internal/clock"
	"github.com/kilnwm/kiln/internal/shm"
	"github.com/kilnwm/kiln/internal/surface"
	"github.com/kilnwm/kiln/internal/wire"
)

// frameQueueCapacity bounds the frame-done FIFO (spec.md §4.11: "a
// bounded queue, not an unbounded one — a client that never drains its
// own event queue must not grow compositor memory without limit").
const frameQueueCapacity = 256

// frameDone is one deferred job flushed once this frame's scanout has
// actually reached the display: a wl_callback.done (cb nil if this
// entry is a release-only job) optionally followed by a wl_buffer.release
// for buf (nil if nothing needs releasing).
type frameDone struct {
	cb        *wire.Resource
	timestamp uint32
	buf       *shm.Buffer
}

// queueFrameCallbacks drains any frame callback and buffer release armed
// by drawing surf this frame, called once per surface the renderer
// visited (internal/xdgshell.SetPaintedSink's sink, which also fires for
// a visited surface with no current buffer), mirroring
// spec.md §4.11's "a surface is only ever queued once per frame, at the
// point the renderer actually draws it."
//
// Two distinct release jobs can be armed by a single draw:
//   - a buffer a later commit replaced since the last draw (spec.md
//     §8 scenario 6's B1): released as soon as it is known superseded,
//     with no done paired against it.
//   - the buffer actually drawn this frame, gated on a pending frame
//     callback and released only alongside that callback's done — a
//     direct port of original_source/src/render/opengl.cpp's
//     gl_renderer_t::draw, which sends wl_callback_send_done then
//     wl_buffer_send_release(surface.state.buffer) together.
//
// Both jobs are pushed through the same FIFO c.drainFrameQueue empties
// after Present, so a release is never observed before the done (or lack
// of one) it is paired with.
func (c *Compositor) queueFrameCallbacks(surf *surface.Surface) {
	if buf, ok := surf.TakePreviousBuffer(); ok {
		c.enqueueFrameJob(frameDone{buf: buf})
	}
	cb, ok := surf.TakeFrameCallback()
	if !ok {
		return
	}
	c.enqueueFrameJob(frameDone{cb: cb, timestamp: clock.NowMsec(), buf: surf.CurrentBuffer()})
}

func (c *Compositor) enqueueFrameJob(job frameDone) {
	select {
	case c.frameQueue <- job:
	default:
		log.Warn("frame-done queue full, dropping job", "capacity", frameQueueCapacity)
		if job.cb != nil {
			job.cb.Destroy()
		}
	}
}

// drainFrameQueue flushes every job queued by this frame's paint pass,
// called once per main-loop tick after every output has presented —
// "clients only see done after the frame is actually on screen"
// (spec.md §4.11), which is why this runs after Present, not inline
// with DrawQuad. Each job's done (if any) is sent strictly before its
// release (if any), matching spec.md §8's "release for S's buffer is
// emitted no earlier than done."
func (c *Compositor) drainFrameQueue() {
	for {
		select {
		case f := <-c.frameQueue:
			if f.cb != nil {
				surface.FlushDone(f.cb, f.timestamp)
			}
			if f.buf != nil {
				f.buf.Release()
			}
		default:
			return
		}
	}
}
