package drm

import "fmt"

// CRTCPlanner assigns each connector a free CRTC, a direct port of
// original_source's mode_set_allocator_t: walk each connector's
// possible CRTCs and take the first unclaimed one.
type CRTCPlanner struct {
	taken map[uint32]bool
	plan  map[uint32]uint32 // connector id -> crtc id
}

// NewCRTCPlanner returns an empty planner ready for Adopt calls.
func NewCRTCPlanner() *CRTCPlanner {
	return &CRTCPlanner{taken: map[uint32]bool{}, plan: map[uint32]uint32{}}
}

// Adopt claims the first CRTC compatible with connector and not already
// taken by an earlier Adopt call, mirroring mode_set_allocator_t::adopt.
func (p *CRTCPlanner) Adopt(connector Connector) bool {
	for _, crtc := range connector.possibleCRTCs {
		if p.taken[crtc] {
			continue
		}
		p.taken[crtc] = true
		p.plan[connector.ID] = crtc
		return true
	}
	return false
}

// CRTCFor returns the CRTC planned for connector, set by a prior Adopt
// call, mirroring mode_set_allocator_t::mode_set's lookup (and its
// "wasn't adopted before" error when absent).
func (p *CRTCPlanner) CRTCFor(connector Connector) (uint32, error) {
	crtc, ok := p.plan[connector.ID]
	if !ok {
		return 0, fmt.Errorf("drm: connector %d was never adopted by the CRTC planner", connector.ID)
	}
	return crtc, nil
}
