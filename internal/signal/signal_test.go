package signal

import "testing"

func TestSignalConnectEmitOrder(t *testing.T) {
	var sig Signal[int]
	var got []int
	sig.Connect(func(v int) Action { got = append(got, v*10+1); return Keep })
	sig.Connect(func(v int) Action { got = append(got, v*10+2); return Keep })

	sig.Emit(5)

	want := []int{51, 52}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestSignalDeleteAutoUnsubscribes(t *testing.T) {
	var sig Signal[int]
	calls := 0
	sig.Connect(func(int) Action { calls++; return Delete })

	sig.Emit(0)
	sig.Emit(0)

	if calls != 1 {
		t.Fatalf("listener returning Delete fired %d times, want 1", calls)
	}
	if sig.Len() != 0 {
		t.Fatalf("want 0 listeners after auto-unsubscribe, got %d", sig.Len())
	}
}

func TestSignalDisconnect(t *testing.T) {
	var sig Signal[int]
	calls := 0
	tok := sig.Connect(func(int) Action { calls++; return Keep })
	sig.Disconnect(tok)
	sig.Emit(0)

	if calls != 0 {
		t.Fatalf("disconnected listener fired, calls=%d", calls)
	}

	// Disconnecting an unknown token is a no-op, not a panic.
	sig.Disconnect(tok)
}

func TestSignalDeleteDuringEmitDoesNotSkipLaterListeners(t *testing.T) {
	var sig Signal[int]
	var order []int
	sig.Connect(func(int) Action { order = append(order, 1); return Delete })
	sig.Connect(func(int) Action { order = append(order, 2); return Keep })
	sig.Connect(func(int) Action { order = append(order, 3); return Keep })

	sig.Emit(0)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("got %v, want all three listeners to run despite first returning Delete", order)
	}
	if sig.Len() != 2 {
		t.Fatalf("want 2 listeners remaining, got %d", sig.Len())
	}
}

func TestBusAscendingLayerOrder(t *testing.T) {
	var bus Bus[int]
	var order []int

	bus.At(100).Connect(func(int) Action { order = append(order, 100); return Keep })
	bus.At(LayerTop).Connect(func(int) Action { order = append(order, -1); return Keep })
	bus.At(5).Connect(func(int) Action { order = append(order, 5); return Keep })

	bus.Emit(0)

	if len(order) != 3 || order[0] != 5 || order[1] != 100 || order[2] != -1 {
		t.Fatalf("got %v, want [5 100 LayerTop] ascending with LayerTop painting last", order)
	}
}

func TestBusAtIsIdempotent(t *testing.T) {
	var bus Bus[int]
	a := bus.At(10)
	b := bus.At(10)
	if a != b {
		t.Fatal("At(layer) should return the same *Signal on repeated calls")
	}
}
