// Command kilnd runs the compositor, spec.md §4.11's runtime entry
// point. Flag/config plumbing follows the cobra + viper shape this
// pack's other Wayland-adjacent Go project (bnema-waymon) uses rather
// than a bare flag.FlagSet, the ambient-stack library internal/config
// already imports.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/kilnwm/kiln/internal/compositor"
	"github.com/kilnwm/kiln/internal/config"
	"github.com/kilnwm/kiln/internal/klog"
	"github.com/spf13/cobra"
)

func main() {
	var verbose bool
	var seat, drmCard, cursorTheme string

	root := &cobra.Command{
		Use:   "kilnd",
		Short: "kiln Wayland compositor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				klog.SetLevel(log.DebugLevel)
			}

			cfg := config.Load()
			if seat != "" {
				cfg.Seat = seat
			}
			if drmCard != "" {
				cfg.DRMCard = drmCard
			}
			if cursorTheme != "" {
				cfg.CursorTheme = cursorTheme
			}

			c, err := compositor.New(cfg)
			if err != nil {
				return fmt.Errorf("kilnd: %w", err)
			}
			defer c.Close()
			return c.Run()
		},
	}

	flags := root.Flags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&seat, "seat", "", "libinput seat id (default seat0)")
	flags.StringVar(&drmCard, "drm-card", "", "DRM card device path override")
	flags.StringVar(&cursorTheme, "cursor-theme", "", "Xcursor theme name")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
