// Package klog centralizes structured logging for kiln's components.
// gio (the ambient-stack teacher) never needed a logging library — it's
// a client toolkit embedded in a host application's own logger. The
// compositor's own ancestor (original_source/src/log.hpp) rolls its own
// spdlog-style TRACE/INFO/WARN/ERROR macros per translation unit. The
// Go idiom for that shape, and the one already present in this pack's
// Wayland-adjacent Go project, is charmbracelet/log: a small leveled,
// structured logger with per-component instances instead of global
// macros.
package klog

import (
	"os"

	"github.com/charmbracelet/log"
)

var base = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05.000",
})

// For returns a logger scoped to a named component (e.g. "output",
// "xdgshell"), analogous to the per-file logger instances original_source
// built with its log.hpp macros.
func For(component string) *log.Logger {
	l := base.With("component", component)
	return l
}

// SetLevel adjusts the global verbosity, wired to --verbose on the CLI.
func SetLevel(lvl log.Level) {
	base.SetLevel(lvl)
}
