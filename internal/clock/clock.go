// Package clock provides the monotonic millisecond clock used for
// frame-callback timestamps and hotkey chord timestamps, ported from the
// original compositor's current_time_msec() (src/util.cpp), which reads
// CLOCK_MONOTONIC directly. Go's runtime monotonic clock (time.Now, when
// never formatted to wall-clock) gives the same guarantee without cgo.
package clock

import "time"

var start = time.Now()

// NowMsec returns milliseconds since process start on a monotonic clock,
// matching the original's CLOCK_MONOTONIC-based current_time_msec().
func NowMsec() uint32 {
	return uint32(time.Since(start).Milliseconds())
}
