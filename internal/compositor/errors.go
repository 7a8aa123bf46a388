package compositor

import "errors"

// Sentinel errors, the Go analogue of the exceptions
// original_source/src/compositor.cpp throws out of its own startup
// sequence (missing CRTC, kernel mode-set rejection, OOM during scanout
// allocation). Only ErrNoCompatibleCRTC is returned (by New);
// ErrKernelReject and ErrNoMemory are declared but nothing in this
// module returns them.
var (
	ErrNoCompatibleCRTC = errors.New("compositor: no connector has a compatible free CRTC")
	ErrKernelReject      = errors.New("compositor: kernel rejected mode-set")
	ErrNoMemory          = errors.New("compositor: out of memory setting up scanout")
)
