// Package glrender implements the GLES2 renderer described in spec.md
// §4.4: bind/clear/draw/commit against a surface's current buffer and a
// cursor image, through one shared textured-quad shader. It is a direct
// port of original_source's gl_renderer_t / gl_shader_t
// (original_source/src/render/opengl.cpp), binding libGLESv2 with cgo
// the way the teacher binds it in app/internal/gl/functions.go, rather
// than through a hand-rolled GL loader.
package glrender

/*
#cgo pkg-config: glesv2
#include <GLES2/gl2.h>
#include <GLES2/gl2ext.h>
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/kilnwm/kiln/internal/klog"
)

var log = klog.For("glrender")

const vertexShaderSrc = `
precision mediump float;
attribute vec2 a_position;
attribute vec2 a_texcoord;
varying vec2 uv;
uniform vec2 u_screen_size;
uniform vec2 u_surface_size;
uniform vec2 u_surface_position;
vec2 to_ndc(vec2 screenspace) {
  return (screenspace / u_screen_size * 2.0 - 1.0) * vec2(1, -1);
}
void main() {
  uv = a_texcoord;
  gl_Position = vec4(to_ndc(u_surface_position + a_position * u_surface_size), 0.0, 1.0);
}
`

const fragmentShaderSrc = `
precision mediump float;
varying vec2 uv;
uniform sampler2D u_texture;
void main() {
  gl_FragColor = texture2D(u_texture, uv);
}
`

// quadVertices is the unit quad both the surface and the cursor images
// are drawn against; u_surface_position/u_surface_size place and scale
// it in the vertex shader, matching quad()'s CPU-pointer vertex stream
// in the original (no VBO — glVertexAttribPointer straight off this
// array, valid because array buffer 0 is bound).
var quadVertices = [...]float32{
	0, 0, 0, 0,
	1, 0, 1, 0,
	0, 1, 0, 1,
	1, 1, 1, 1,
}

// QuadShader wraps a linked GLES2 program exposing the uniform() family
// the original's gl_shader_t provides.
type QuadShader struct {
	program C.GLuint
}

func compileShader(kind C.GLenum, src string) (C.GLuint, error) {
	shader := C.glCreateShader(kind)
	csrc := C.CString(src)
	defer C.free(unsafe.Pointer(csrc))
	C.glShaderSource(shader, 1, &csrc, nil)
	C.glCompileShader(shader)

	var ok C.GLint
	C.glGetShaderiv(shader, C.GL_COMPILE_STATUS, &ok)
	if ok == 0 {
		var buf [512]C.char
		C.glGetShaderInfoLog(shader, 512, nil, &buf[0])
		return 0, fmt.Errorf("glrender: shader compile error: %s", C.GoString(&buf[0]))
	}
	return shader, nil
}

// NewQuadShader compiles and links the textured-quad program used for
// every surface and cursor paint, the original's "quad shader" entry in
// gl_shader_storage_t.
func NewQuadShader() (*QuadShader, error) {
	vs, err := compileShader(C.GL_VERTEX_SHADER, vertexShaderSrc)
	if err != nil {
		return nil, err
	}
	fs, err := compileShader(C.GL_FRAGMENT_SHADER, fragmentShaderSrc)
	if err != nil {
		return nil, err
	}
	program := C.glCreateProgram()
	C.glAttachShader(program, vs)
	C.glAttachShader(program, fs)
	C.glLinkProgram(program)

	var ok C.GLint
	C.glGetProgramiv(program, C.GL_LINK_STATUS, &ok)
	if ok == 0 {
		var buf [512]C.char
		C.glGetProgramInfoLog(program, 512, nil, &buf[0])
		return nil, fmt.Errorf("glrender: program link error: %s", C.GoString(&buf[0]))
	}
	C.glDeleteShader(vs)
	C.glDeleteShader(fs)
	return &QuadShader{program: program}, nil
}

// Bind makes this the active program.
func (s *QuadShader) Bind() { C.glUseProgram(s.program) }

// Uniform2f sets a vec2 uniform by name.
func (s *QuadShader) Uniform2f(name string, v0, v1 float32) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	loc := C.glGetUniformLocation(s.program, cname)
	C.glUniform2f(loc, C.GLfloat(v0), C.GLfloat(v1))
}

func (s *QuadShader) attrib(name string) C.GLint {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.glGetAttribLocation(s.program, cname)
}

func (s *QuadShader) uniformLoc(name string) C.GLint {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.glGetUniformLocation(s.program, cname)
}

func checkGL(where string) error {
	if err := C.glGetError(); err != C.GL_NO_ERROR {
		return fmt.Errorf("glrender: GL error 0x%x at %s", uint32(err), where)
	}
	return nil
}

// Renderer binds a QuadShader to one output's mode dimensions and draws
// surfaces/cursor images into it — the Go analogue of gl_renderer_t,
// minus DRM/EGL ownership (internal/drm.Scanout owns that half; an
// output pairs a Scanout with a Renderer).
type Renderer struct {
	shader        *QuadShader
	screenW, screenH float32
}

// New creates a Renderer bound to a screen of screenW x screenH pixels.
// The EGL context for the target output must already be current
// (internal/drm.Scanout.MakeCurrent) before calling this or Bind/Draw.
func New(screenW, screenH int32) (*Renderer, error) {
	shader, err := NewQuadShader()
	if err != nil {
		return nil, err
	}
	return &Renderer{shader: shader, screenW: float32(screenW), screenH: float32(screenH)}, nil
}

// Resize updates the screen dimensions used for NDC conversion, called
// whenever an output's mode changes.
func (r *Renderer) Resize(w, h int32) { r.screenW, r.screenH = float32(w), float32(h) }

// Bind prepares GL state for a new frame: enables straight
// (non-premultiplied) alpha blending (SRC_ALPHA, ONE_MINUS_SRC_ALPHA)
// and sets the viewport to the full output, matching
// gl_renderer_t::bind.
func (r *Renderer) Bind() error {
	C.glEnable(C.GL_BLEND)
	C.glBlendFunc(C.GL_SRC_ALPHA, C.GL_ONE_MINUS_SRC_ALPHA)
	C.glViewport(0, 0, C.GLsizei(r.screenW), C.GLsizei(r.screenH))
	return checkGL("Bind")
}

// Clear clears the color buffer, matching gl_renderer_t::clear.
func (r *Renderer) Clear(rr, g, b, a float32) error {
	C.glClearColor(C.GLfloat(rr), C.GLfloat(g), C.GLfloat(b), C.GLfloat(a))
	C.glClear(C.GL_COLOR_BUFFER_BIT)
	return checkGL("Clear")
}

// PixelSource is whatever holds CPU-side pixel bytes to upload —
// satisfied by an SHM buffer (internal/shm) or an Xcursor image
// (internal/cursor).
type PixelSource struct {
	Width, Height int32
	StrideBytes   int32 // 0 if tightly packed (cursor images)
	Pixels        unsafe.Pointer
}

func uploadTexture(src PixelSource) C.GLuint {
	var tex C.GLuint
	C.glGenTextures(1, &tex)
	C.glBindTexture(C.GL_TEXTURE_2D, tex)
	C.glTexParameteri(C.GL_TEXTURE_2D, C.GL_TEXTURE_MIN_FILTER, C.GL_NEAREST)
	C.glTexParameteri(C.GL_TEXTURE_2D, C.GL_TEXTURE_MAG_FILTER, C.GL_NEAREST)
	if src.StrideBytes > 0 {
		C.glPixelStorei(C.GL_UNPACK_ROW_LENGTH_EXT, C.GLint(src.StrideBytes/4))
	}
	C.glTexImage2D(C.GL_TEXTURE_2D, 0, C.GL_RGBA, C.GLsizei(src.Width), C.GLsizei(src.Height),
		0, C.GL_BGRA_EXT, C.GL_UNSIGNED_BYTE, src.Pixels)
	if src.StrideBytes > 0 {
		C.glPixelStorei(C.GL_UNPACK_ROW_LENGTH_EXT, 0)
	}
	return tex
}

// DrawQuad uploads src as a BGRA texture and draws it as a quad at
// (x,y) sized (w,h) in screenspace pixels, the shared body of the
// original's gl_renderer_t::draw(surface_t&, ...) and
// draw(_XcursorImage*, ...) overloads — collapsed into one function
// since both ultimately do the same upload-then-quad dance.
func (r *Renderer) DrawQuad(src PixelSource, x, y float32, w, h int32) error {
	tex := uploadTexture(src)
	defer C.glDeleteTextures(1, &tex)

	r.shader.Bind()
	r.shader.Uniform2f("u_surface_position", x, y)
	r.shader.Uniform2f("u_surface_size", float32(w), float32(h))
	r.shader.Uniform2f("u_screen_size", r.screenW, r.screenH)

	C.glActiveTexture(C.GL_TEXTURE0)
	C.glBindTexture(C.GL_TEXTURE_2D, tex)
	C.glUniform1i(r.shader.uniformLoc("u_texture"), 0)

	posAttr := r.shader.attrib("a_position")
	texAttr := r.shader.attrib("a_texcoord")
	C.glBindBuffer(C.GL_ARRAY_BUFFER, 0)
	C.glEnableVertexAttribArray(C.GLuint(posAttr))
	C.glEnableVertexAttribArray(C.GLuint(texAttr))
	stride := C.GLsizei(4 * 4)
	C.glVertexAttribPointer(C.GLuint(posAttr), 2, C.GL_FLOAT, 0, stride, unsafe.Pointer(&quadVertices[0]))
	C.glVertexAttribPointer(C.GLuint(texAttr), 2, C.GL_FLOAT, 0, stride, unsafe.Pointer(&quadVertices[2]))

	C.glDrawArrays(C.GL_TRIANGLE_STRIP, 0, 4)

	C.glDisableVertexAttribArray(C.GLuint(posAttr))
	C.glDisableVertexAttribArray(C.GLuint(texAttr))

	return checkGL("DrawQuad")
}

// Commit flushes the GL command stream before internal/drm.Scanout
// swaps buffers, the renderer-side half of spec.md §4.4's
// bind/clear/draw/commit contract — the actual presentation (EGL
// buffer swap, page-flip) belongs to Scanout.Present, not here.
func (r *Renderer) Commit() error {
	C.glFlush()
	return checkGL("Commit")
}
