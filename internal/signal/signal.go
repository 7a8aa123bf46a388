// Package signal implements the token-keyed multi-listener event bus
// described in spec.md §4.2, ported from the original compositor's
// signal_t<Args...> (original_source/include/barock/core/signal.hpp).
//
// Where the C++ version is a template specialized per argument list, Go's
// lack of variadic generics over listener shape makes the idiomatic port
// a single type parameter: Signal[T] holds listeners of func(T) Action.
// Multi-argument signals use a struct type for T (e.g. signal.Signal[libinput.ButtonEvent]).
package signal

// Action is a listener's return value: Keep to stay subscribed, or
// Delete to auto-unsubscribe immediately after this dispatch. This
// mirrors the original's signal_action_t::eOk / eDelete.
type Action int

const (
	Keep Action = iota
	Delete
)

// Token identifies a connected listener for later Disconnect calls.
type Token int

// Listener is a subscriber callback. Returning Delete auto-unsubscribes.
type Listener[T any] func(T) Action

// Signal is an ordered, move-only multi-listener dispatcher. The zero
// value is ready to use. Signal must not be copied after first use (the
// original forbids copying signal_t for the same reason: copying would
// duplicate listener ownership) — callers needing to move a Signal
// should pass it by pointer.
type Signal[T any] struct {
	listeners map[Token]Listener[T]
	order     []Token
	next      Token
}

// Connect registers cb and returns a token that Disconnect accepts.
// Listeners are dispatched in insertion order.
func (s *Signal[T]) Connect(cb Listener[T]) Token {
	if s.listeners == nil {
		s.listeners = make(map[Token]Listener[T])
	}
	tok := s.next
	s.next++
	s.listeners[tok] = cb
	s.order = append(s.order, tok)
	return tok
}

// Disconnect removes a previously connected listener. It is a no-op if
// the token is unknown (already disconnected, or from a different
// signal).
func (s *Signal[T]) Disconnect(tok Token) {
	if _, ok := s.listeners[tok]; !ok {
		return
	}
	delete(s.listeners, tok)
	for i, t := range s.order {
		if t == tok {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Emit dispatches value to every listener in insertion order. Listeners
// that return Delete are collected during iteration and disconnected
// only after every listener has run — mutating the listener map
// mid-iteration is never safe, per spec.md §9's design note.
func (s *Signal[T]) Emit(value T) {
	if len(s.order) == 0 {
		return
	}
	order := s.order
	var toRemove []Token
	for _, tok := range order {
		cb, ok := s.listeners[tok]
		if !ok {
			continue
		}
		if cb(value) == Delete {
			toRemove = append(toRemove, tok)
		}
	}
	for _, tok := range toRemove {
		s.Disconnect(tok)
	}
}

// Len reports the number of currently connected listeners.
func (s *Signal[T]) Len() int {
	return len(s.listeners)
}

// Bus is a layer-keyed, ascending-order collection of signals, used by
// an output's on_repaint map (spec.md §4.2): the xdg shell paints at
// layer 100, the cursor manager paints at LayerTop so it is always
// drawn last.
type Bus[T any] struct {
	layers map[int]*Signal[T]
	order  []int
}

// LayerTop is the layer index reserved for content that must always
// paint last (the cursor), matching the original's CURSOR_PAINT_LAYER =
// numeric_limits<size_t>::max().
const LayerTop = int(^uint(0) >> 1)

// At returns the signal for the given layer, creating it (and inserting
// it into ascending order) on first use.
func (b *Bus[T]) At(layer int) *Signal[T] {
	if b.layers == nil {
		b.layers = make(map[int]*Signal[T])
	}
	if sig, ok := b.layers[layer]; ok {
		return sig
	}
	sig := &Signal[T]{}
	b.layers[layer] = sig
	i := 0
	for ; i < len(b.order); i++ {
		if b.order[i] > layer {
			break
		}
	}
	b.order = append(b.order, 0)
	copy(b.order[i+1:], b.order[i:])
	b.order[i] = layer
	return sig
}

// Emit dispatches value to every layer's signal in ascending layer order.
func (b *Bus[T]) Emit(value T) {
	for _, layer := range b.order {
		b.layers[layer].Emit(value)
	}
}
