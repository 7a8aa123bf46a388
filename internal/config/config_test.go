package config

import "testing"

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Seat != "seat0" {
		t.Fatalf("default seat = %q, want seat0", cfg.Seat)
	}
	if cfg.CursorTheme != "Adwaita" {
		t.Fatalf("default cursor theme = %q, want Adwaita", cfg.CursorTheme)
	}
	if cfg.CursorSize != 32 {
		t.Fatalf("default cursor size = %d, want 32", cfg.CursorSize)
	}
	if cfg.DRMCard != "" || cfg.SocketName != "" {
		t.Fatal("DRMCard and SocketName should be unset by default")
	}
}

func TestLoadPrefersKilnSeatOverXDGSeat(t *testing.T) {
	t.Setenv("KILN_SEAT", "seat1")
	t.Setenv("XDG_SEAT", "seat2")

	cfg := Load()
	if cfg.Seat != "seat1" {
		t.Fatalf("got seat %q, want KILN_SEAT to win over XDG_SEAT", cfg.Seat)
	}
}

func TestLoadFallsBackToXDGSeat(t *testing.T) {
	t.Setenv("XDG_SEAT", "seat3")

	cfg := Load()
	if cfg.Seat != "seat3" {
		t.Fatalf("got seat %q, want fallback to XDG_SEAT", cfg.Seat)
	}
}

func TestLoadOverridesCursorThemeAndSize(t *testing.T) {
	t.Setenv("KILN_CURSOR_THEME", "breeze")
	t.Setenv("KILN_CURSOR_SIZE", "24")

	cfg := Load()
	if cfg.CursorTheme != "breeze" {
		t.Fatalf("got theme %q, want breeze", cfg.CursorTheme)
	}
	if cfg.CursorSize != 24 {
		t.Fatalf("got size %d, want 24", cfg.CursorSize)
	}
}

func TestLoadUnsetFallsBackToDefault(t *testing.T) {
	cfg := Load()
	if cfg.Seat != "seat0" {
		t.Fatalf("got seat %q, want default seat0 with no env set", cfg.Seat)
	}
	if cfg.CursorSize != 32 {
		t.Fatalf("got size %d, want default 32", cfg.CursorSize)
	}
}
