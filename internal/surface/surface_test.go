package surface

import (
	"testing"

	"github.com/kilnwm/kiln/internal/shm"
)

func TestAssignRoleExclusivity(t *testing.T) {
	s := &Surface{}
	r1 := &Subsurface{surface: s}
	if err := s.AssignRole(r1); err != nil {
		t.Fatalf("first role assignment should succeed, got %v", err)
	}

	r2 := &Subsurface{surface: s}
	if err := s.AssignRole(r2); err != ErrHasRole {
		t.Fatalf("second assignment should fail with ErrHasRole, got %v", err)
	}
	if s.Role() != r1 {
		t.Fatal("a failed AssignRole must not mutate the surface's role")
	}
}

func TestReleaseRoleAllowsReassignment(t *testing.T) {
	s := &Surface{}
	r1 := &Subsurface{surface: s}
	_ = s.AssignRole(r1)
	s.ReleaseRole()
	if s.Role() != nil {
		t.Fatal("ReleaseRole should clear the role")
	}
	r2 := &Subsurface{surface: s}
	if err := s.AssignRole(r2); err != nil {
		t.Fatalf("reassignment after release should succeed, got %v", err)
	}
}

func TestCommitPromotesPendingBufferAndTracksPrevious(t *testing.T) {
	s := &Surface{}
	b1 := &shm.Buffer{}
	b2 := &shm.Buffer{}

	s.pending.buffer = b1
	s.pending.bufferAttached = true
	s.Commit()

	if s.CurrentBuffer() != b1 {
		t.Fatalf("expected current buffer b1, got %v", s.CurrentBuffer())
	}
	if _, ok := s.TakePreviousBuffer(); ok {
		t.Fatal("first commit should have no previous buffer to release")
	}

	s.pending.buffer = b2
	s.pending.bufferAttached = true
	s.Commit()

	if s.CurrentBuffer() != b2 {
		t.Fatalf("expected current buffer b2, got %v", s.CurrentBuffer())
	}
	prev, ok := s.TakePreviousBuffer()
	if !ok || prev != b1 {
		t.Fatalf("expected b1 as the superseded buffer, got %v ok=%v", prev, ok)
	}
	// Taking it again must not return it twice.
	if _, ok := s.TakePreviousBuffer(); ok {
		t.Fatal("previous buffer must be cleared after being taken once")
	}
}

func TestCommitWithoutAttachKeepsCurrentBuffer(t *testing.T) {
	s := &Surface{}
	b1 := &shm.Buffer{}
	s.pending.buffer = b1
	s.pending.bufferAttached = true
	s.Commit()

	// A commit cycle with no attach (e.g. damage-only) must not clobber
	// the current buffer.
	s.Commit()
	if s.CurrentBuffer() != b1 {
		t.Fatalf("buffer should be unchanged across a no-attach commit, got %v", s.CurrentBuffer())
	}
}

func TestCommitEmptiesPending(t *testing.T) {
	s := &Surface{}
	s.pending.buffer = &shm.Buffer{}
	s.pending.bufferAttached = true
	s.Commit()

	if s.pending.bufferAttached {
		t.Fatal("pending.bufferAttached should be cleared after commit")
	}
	if s.pending.buffer != nil {
		t.Fatal("pending.buffer should be cleared after commit")
	}
}

func TestSubsurfaceCommitDoesNotApplyUntilParentCommits(t *testing.T) {
	parent := &Surface{}
	child := &Surface{}
	sub := &Subsurface{surface: child, parent: parent}
	if err := child.AssignRole(sub); err != nil {
		t.Fatalf("assigning subsurface role: %v", err)
	}
	parent.pending.newChildren = append(parent.pending.newChildren, sub)

	childBuf := &shm.Buffer{}
	child.pending.buffer = childBuf
	child.pending.bufferAttached = true

	// The subsurface's own commit must not promote its pending state,
	// and must not yet appear in the parent's committed children.
	child.Commit()
	if child.CurrentBuffer() != nil {
		t.Fatal("subsurface commit alone must not apply its own pending state")
	}
	if len(parent.Children()) != 0 {
		t.Fatal("parent must not see the child until parent itself commits")
	}

	// Parent's commit walks down and applies the child.
	parent.Commit()
	if len(parent.Children()) != 1 || parent.Children()[0] != sub {
		t.Fatalf("expected parent to adopt the subsurface after its own commit, got %+v", parent.Children())
	}
	if child.CurrentBuffer() != childBuf {
		t.Fatal("parent commit should have applied the child's pending state too")
	}
}

func TestSubsurfacePositionIsDoubleBuffered(t *testing.T) {
	parent := &Surface{}
	child := &Surface{}
	sub := &Subsurface{surface: child, parent: parent}
	_ = child.AssignRole(sub)
	parent.current.children = append(parent.current.children, sub)

	sub.pendingX, sub.pendingY = 10, 20
	if x, y := sub.Offset(); x != 0 || y != 0 {
		t.Fatalf("position must not change before a parent commit, got (%d,%d)", x, y)
	}

	parent.Commit()
	if x, y := sub.Offset(); x != 10 || y != 20 {
		t.Fatalf("expected offset (10,20) after parent commit, got (%d,%d)", x, y)
	}
}
