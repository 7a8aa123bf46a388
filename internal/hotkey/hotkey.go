// Package hotkey implements the chord matcher of spec.md §4.9, a direct
// port of original_source's hotkey_t (original_source/include/barock/hotkey.hpp,
// src/hotkey.cpp): a rolling buffer of recently pressed keysyms matched
// longest-sequence-first against registered actions.
//
// One deliberate deviation from the original: hotkey_t::feed checks a
// chord's required modifiers with
// `latched & xkb_keymap_layout_get_index(keymap, modifier_name)` —
// xkb_keymap_layout_get_index resolves a *layout* name to an index, not
// a modifier name to a bit, so that check was comparing a modifier mask
// against whatever small integer a layout lookup happened to return
// (frequently 0 or XKB_LAYOUT_INVALID). This port checks modifiers
// through internal/xkbkey.Context.ModActive, the correct
// xkb_state_mod_name_is_active-based query, instead of reproducing the
// bug.
package hotkey

import (
	"sort"

	"github.com/kilnwm/kiln/internal/clock"
	"github.com/kilnwm/kiln/internal/xkbkey"
)

// ModChecker reports whether a named modifier (e.g. "Mod4", "Control")
// is currently active. *xkbkey.Context satisfies this without any
// adapter; tests can supply a fake instead of driving real xkbcommon
// state through a key sequence.
type ModChecker interface {
	ModActive(name string) bool
}

// KeyEvent is one timestamped keysym appended to the chord buffer.
type KeyEvent struct {
	Timestamp uint32
	Key       xkbkey.Keysym
}

// Action is one registered hotkey: a keysym sequence, a set of required
// modifier names (all must be active), and the handler to run on match.
type Action struct {
	Sequence  []xkbkey.Keysym
	Modifiers []string
	Handler   func()
}

// Matcher is the chord buffer plus sorted action table, the Go
// analogue of hotkey_t.
type Matcher struct {
	mods    ModChecker
	chord   []KeyEvent
	actions []Action
	maxLen  int
}

// New creates a Matcher that checks modifier state against mods.
func New(mods ModChecker) *Matcher {
	return &Matcher{mods: mods}
}

// Add registers action, keeping the action table sorted longest-
// sequence-first so Feed always tries the most specific chord before a
// shorter one that happens to be its suffix — mirroring hotkey_t::add's
// std::sort by descending sequence size.
func (m *Matcher) Add(action Action) {
	m.actions = append(m.actions, action)
	if len(action.Sequence) > m.maxLen {
		m.maxLen = len(action.Sequence)
	}
	sort.SliceStable(m.actions, func(i, j int) bool {
		return len(m.actions[i].Sequence) > len(m.actions[j].Sequence)
	})
}

// Feed appends symbol to the chord buffer and attempts to match every
// registered action (longest first). On a match the matched suffix is
// consumed from the buffer and the handler runs; Feed returns true.
// Otherwise the buffer is trimmed to maxLen entries and Feed returns
// false, mirroring hotkey_t::feed.
func (m *Matcher) Feed(symbol xkbkey.Keysym) bool {
	m.chord = append(m.chord, KeyEvent{Timestamp: clock.NowMsec(), Key: symbol})

actions:
	for _, action := range m.actions {
		if len(m.chord) < len(action.Sequence) {
			continue
		}
		for _, name := range action.Modifiers {
			if !m.mods.ModActive(name) {
				continue actions
			}
		}
		offset := len(m.chord) - len(action.Sequence)
		for i, want := range action.Sequence {
			if m.chord[offset+i].Key != want {
				continue actions
			}
		}
		m.chord = m.chord[:offset]
		action.Handler()
		return true
	}

	if len(m.chord) > m.maxLen {
		m.chord = m.chord[1:]
	}
	return false
}

// Reset clears the chord buffer. Nothing in the compositor calls it on
// focus changes; the buffer persists across them.
func (m *Matcher) Reset() { m.chord = m.chord[:0] }
