package resource

import "testing"

type widget struct{ n int }

func TestSharedRefRelease(t *testing.T) {
	disposed := 0
	s := New(&widget{n: 7})
	r2 := s.Ref()

	if !s.Equal(r2) {
		t.Fatal("Ref should share the same control block")
	}

	s.Release(func(w *widget) { disposed++ })
	if disposed != 0 {
		t.Fatalf("payload disposed early: got %d releases", disposed)
	}
	if r2.Get().n != 7 {
		t.Fatalf("payload corrupted after partial release: got %d", r2.Get().n)
	}

	r2.Release(func(w *widget) { disposed++ })
	if disposed != 1 {
		t.Fatalf("want exactly one dispose, got %d", disposed)
	}

	// Releasing again must not double-dispose.
	r2.Release(func(w *widget) { disposed++ })
	if disposed != 1 {
		t.Fatalf("release after dispose double-fired: got %d", disposed)
	}
}

func TestWeakUpgradeAfterRelease(t *testing.T) {
	s := New(&widget{n: 1})
	w := s.Weak()

	upgraded, err := w.Upgrade()
	if err != nil {
		t.Fatalf("upgrade while strong outstanding: %v", err)
	}
	upgraded.Release(nil)

	s.Release(nil)

	if _, err := w.Upgrade(); err != ErrExpired {
		t.Fatalf("want ErrExpired after last strong release, got %v", err)
	}
}

func TestWeakNilUpgrade(t *testing.T) {
	var w Weak[widget]
	if !w.Nil() {
		t.Fatal("zero-value Weak should report Nil")
	}
	if _, err := w.Upgrade(); err != ErrExpired {
		t.Fatalf("upgrading a never-assigned Weak: got %v, want ErrExpired", err)
	}
}

func TestSharedNilGetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Get on a disposed Shared should panic")
		}
	}()
	s := New(&widget{})
	s.Release(nil)
	s.Get()
}
