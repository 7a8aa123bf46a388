package hotkey

import "github.com/kilnwm/kiln/internal/xkbkey"

import "testing"

type fakeMods struct{ active map[string]bool }

func (f *fakeMods) ModActive(name string) bool { return f.active[name] }

func TestFeedMatchesAndConsumesEachChord(t *testing.T) {
	mods := &fakeMods{active: map[string]bool{"Mod4": true}}
	m := New(mods)

	var fired []string
	m.Add(Action{
		Sequence:  []xkbkey.Keysym{1},
		Modifiers: []string{"Mod4"},
		Handler:   func() { fired = append(fired, "launch") },
	})
	m.Add(Action{
		Sequence:  []xkbkey.Keysym{2, 3},
		Modifiers: []string{"Mod4"},
		Handler:   func() { fired = append(fired, "logout") },
	})

	// Feeding 1 alone matches "launch" (single-key sequence).
	if !m.Feed(1) {
		t.Fatal("expected launch to match")
	}
	if len(fired) != 1 || fired[0] != "launch" {
		t.Fatalf("got %v, want [launch]", fired)
	}

	// Chord is consumed: feeding 2 then 3 matches "logout", not a stale
	// leftover buffer.
	m.Feed(2)
	if !m.Feed(3) {
		t.Fatal("expected logout to match")
	}
	if len(fired) != 2 || fired[1] != "logout" {
		t.Fatalf("got %v, want [launch logout]", fired)
	}
}

func TestFeedRequiresModifiers(t *testing.T) {
	mods := &fakeMods{active: map[string]bool{}}
	m := New(mods)
	fired := false
	m.Add(Action{Sequence: []xkbkey.Keysym{9}, Modifiers: []string{"Mod4"}, Handler: func() { fired = true }})

	if m.Feed(9) {
		t.Fatal("match should fail without the required modifier active")
	}
	if fired {
		t.Fatal("handler must not run when modifiers are unmet")
	}
}

func TestFeedNoMatchLeavesChordTrimmedToMaxLen(t *testing.T) {
	mods := &fakeMods{active: map[string]bool{}}
	m := New(mods)
	m.Add(Action{Sequence: []xkbkey.Keysym{1, 2}, Modifiers: nil, Handler: func() {}})

	m.Feed(5)
	m.Feed(6)
	m.Feed(7)

	if len(m.chord) > m.maxLen {
		t.Fatalf("chord buffer grew past maxLen: len=%d max=%d", len(m.chord), m.maxLen)
	}
}

func TestFeedConsumesOnlyMatchedSuffix(t *testing.T) {
	mods := &fakeMods{active: map[string]bool{}}
	m := New(mods)
	var fired int
	m.Add(Action{Sequence: []xkbkey.Keysym{2}, Modifiers: nil, Handler: func() { fired++ }})

	m.Feed(1)
	if !m.Feed(2) {
		t.Fatal("expected match on second feed")
	}
	if fired != 1 {
		t.Fatalf("got %d fires, want 1", fired)
	}
	// The unrelated leading "1" is left untouched by the match; only the
	// matched suffix is consumed.
	if len(m.chord) != 1 || m.chord[0].Key != 1 {
		t.Fatalf("chord after match = %v, want leftover [1]", m.chord)
	}
}

func TestReset(t *testing.T) {
	mods := &fakeMods{active: map[string]bool{}}
	m := New(mods)
	m.Add(Action{Sequence: []xkbkey.Keysym{1, 2}, Handler: func() {}})
	m.Feed(1)
	m.Reset()
	if len(m.chord) != 0 {
		t.Fatalf("chord not cleared by Reset: %v", m.chord)
	}
}
