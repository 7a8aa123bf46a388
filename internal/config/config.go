// Package config holds the small set of runtime knobs the compositor
// needs before the embedded scripting environment (output layout,
// keybinds, window placement hooks — out of scope per spec) takes over.
// Populated from environment variables and CLI flags via viper, the
// config/CLI stack this pack's other Wayland-adjacent Go project
// (bnema-waymon) uses.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the compositor's ambient configuration: nothing here
// describes output layout, keybinds or window placement — those remain
// the embedded scripting environment's job and are exposed only as the
// event hooks documented in internal/compositor.
type Config struct {
	// Seat is the libinput seat id to open (XDG_SEAT in spec's external
	// interfaces, default "seat0").
	Seat string
	// DRMCard optionally overrides automatic /dev/dri/card<N> discovery.
	DRMCard string
	// CursorTheme is the Xcursor theme to load cursor images from.
	CursorTheme string
	// CursorSize is the fallback cursor pixel size (spec §4.7: "fixed
	// size 30-32").
	CursorSize int
	// SocketName, when non-empty, is passed to wl_display_add_socket
	// instead of library-default socket selection.
	SocketName string
}

// Default returns the baseline configuration before environment and flag
// overrides are applied.
func Default() Config {
	return Config{
		Seat:        "seat0",
		CursorTheme: "Adwaita",
		CursorSize:  32,
	}
}

// Load builds a Config from the process environment (KILN_* variables
// and the inherited XDG_SEAT), falling back to Default() for anything
// unset.
func Load() Config {
	v := viper.New()
	v.SetEnvPrefix("KILN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	cfg := Default()

	if seat := v.GetString("seat"); seat != "" {
		cfg.Seat = seat
	} else if xdgSeat := os.Getenv("XDG_SEAT"); xdgSeat != "" {
		cfg.Seat = xdgSeat
	}
	if card := v.GetString("drm_card"); card != "" {
		cfg.DRMCard = card
	}
	if theme := v.GetString("cursor_theme"); theme != "" {
		cfg.CursorTheme = theme
	}
	if size := v.GetInt("cursor_size"); size != 0 {
		cfg.CursorSize = size
	}
	if sock := v.GetString("wayland_socket_name"); sock != "" {
		cfg.SocketName = sock
	}
	return cfg
}
