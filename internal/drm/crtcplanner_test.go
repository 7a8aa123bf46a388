package drm

import "testing"

func TestAdoptTakesLowestFreeCRTC(t *testing.T) {
	p := NewCRTCPlanner()
	a := Connector{ID: 1, possibleCRTCs: []uint32{0, 1}}
	b := Connector{ID: 2, possibleCRTCs: []uint32{0, 1}}

	if !p.Adopt(a) {
		t.Fatal("first connector should adopt successfully")
	}
	if !p.Adopt(b) {
		t.Fatal("second connector should adopt the remaining CRTC")
	}

	ca, err := p.CRTCFor(a)
	if err != nil || ca != 0 {
		t.Fatalf("connector a: got crtc=%d err=%v, want 0, nil", ca, err)
	}
	cb, err := p.CRTCFor(b)
	if err != nil || cb != 1 {
		t.Fatalf("connector b: got crtc=%d err=%v, want 1, nil", cb, err)
	}
}

func TestAdoptFailsWhenNoCompatibleCRTCFree(t *testing.T) {
	p := NewCRTCPlanner()
	a := Connector{ID: 1, possibleCRTCs: []uint32{0}}
	b := Connector{ID: 2, possibleCRTCs: []uint32{0}}

	if !p.Adopt(a) {
		t.Fatal("first connector should adopt")
	}
	if p.Adopt(b) {
		t.Fatal("second connector shares the only CRTC with the first and must fail to adopt")
	}
}

func TestCRTCForUnadoptedConnectorErrors(t *testing.T) {
	p := NewCRTCPlanner()
	unrelated := Connector{ID: 99, possibleCRTCs: []uint32{0}}

	if _, err := p.CRTCFor(unrelated); err == nil {
		t.Fatal("expected an error for a connector that was never adopted")
	}
}
