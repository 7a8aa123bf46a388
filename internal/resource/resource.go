// Package resource implements the reference-counted handle that ties a
// protocol resource (a client-owned wire handle) to a compositor object,
// as specified in spec.md §4.1. It is a direct port of the original
// compositor's shared_t<T>/weak_t<T>/resource_t<T> templates
// (original_source/include/barock/resource.hpp), replacing manual
// atomic refcounting with a mutex (Go's garbage collector already frees
// the payload once nothing references it; what this package actually
// provides is the *protocol-visible* lifetime: "has this been
// destroyed" independent of whether the GC has gotten to it yet).
package resource

import (
	"errors"
	"sync"
)

// ErrExpired is returned by Weak.Upgrade once the payload has been
// disposed — the original's weak_t<T>::lock() returning a null shared_t.
var ErrExpired = errors.New("resource: expired")

// control is the shared control block, identity of which is what Shared
// equality compares (not the payload), matching the original's
// shared_t<T>::operator==(comparing control pointers).
type control[T any] struct {
	mu     sync.Mutex
	strong int
	data   *T
}

// Shared is a strong, reference-counted handle to a compositor object.
// Strong references keep the payload alive; when the last one is
// released the payload pointer is cleared and further Weak.Upgrade
// calls fail.
type Shared[T any] struct {
	ctrl *control[T]
}

// New wraps payload in a fresh Shared handle with one strong reference.
func New[T any](payload *T) Shared[T] {
	return Shared[T]{ctrl: &control[T]{strong: 1, data: payload}}
}

// Nil reports whether the handle holds no control block (the zero
// value), equivalent to the original's shared_t<T>::operator bool.
func (s Shared[T]) Nil() bool { return s.ctrl == nil }

// Get dereferences the handle. Calling Get on a disposed handle panics;
// callers that might race disposal should hold a Weak and Upgrade it
// instead.
func (s Shared[T]) Get() *T {
	s.ctrl.mu.Lock()
	defer s.ctrl.mu.Unlock()
	if s.ctrl.data == nil {
		panic("resource: Get on disposed Shared")
	}
	return s.ctrl.data
}

// Ref increments the strong count and returns a new handle sharing the
// same control block.
func (s Shared[T]) Ref() Shared[T] {
	s.ctrl.mu.Lock()
	s.ctrl.strong++
	s.ctrl.mu.Unlock()
	return Shared[T]{ctrl: s.ctrl}
}

// Release decrements the strong count; at zero the payload is disposed
// via dispose (if non-nil) and cleared so outstanding Weak handles fail
// to upgrade. No double-free: dropping strong below zero is a no-op once
// the payload is already nil.
func (s Shared[T]) Release(dispose func(*T)) {
	s.ctrl.mu.Lock()
	defer s.ctrl.mu.Unlock()
	if s.ctrl.data == nil {
		return
	}
	s.ctrl.strong--
	if s.ctrl.strong <= 0 {
		data := s.ctrl.data
		s.ctrl.data = nil
		if dispose != nil {
			dispose(data)
		}
	}
}

// Equal compares control-block identity, matching the original's
// shared_t<T>::operator==.
func (s Shared[T]) Equal(o Shared[T]) bool { return s.ctrl == o.ctrl }

// Weak upgrades to Shared as long as a strong reference is outstanding.
func (s Shared[T]) Weak() Weak[T] { return Weak[T]{ctrl: s.ctrl} }

// Weak is a non-owning reference that may upgrade to Shared iff a
// strong reference is still outstanding, the original's weak_t<T>.
type Weak[T any] struct {
	ctrl *control[T]
}

// Nil reports whether the handle was never assigned.
func (w Weak[T]) Nil() bool { return w.ctrl == nil }

// Upgrade returns a new Shared handle sharing ownership, or ErrExpired
// if the payload has already been released.
func (w Weak[T]) Upgrade() (Shared[T], error) {
	if w.ctrl == nil {
		return Shared[T]{}, ErrExpired
	}
	w.ctrl.mu.Lock()
	defer w.ctrl.mu.Unlock()
	if w.ctrl.data == nil {
		return Shared[T]{}, ErrExpired
	}
	w.ctrl.strong++
	return Shared[T]{ctrl: w.ctrl}, nil
}

// Equal compares control-block identity against another weak handle.
func (w Weak[T]) Equal(o Weak[T]) bool { return w.ctrl == o.ctrl }

// EqualShared compares control-block identity against a strong handle.
func (w Weak[T]) EqualShared(o Shared[T]) bool { return w.ctrl == o.ctrl }

// Adapter bundles a payload with the protocol resource handle backing
// it, letting a protocol dispatch callback resolve in O(1) from the raw
// resource back to the typed payload (spec.md §4.1's "resource
// adapter"). ResourceID is whatever internal/wire hands back from
// wl_resource_create — opaque to this package.
type Adapter[T any] struct {
	Payload    Shared[T]
	ResourceID uint32
}
