package surface

// RoleID is a type-id marker for a role kind, compared by pointer
// identity — the Go analogue of original_source's
// surface_role_t<CRTP>::id() (a function-local static int whose address
// is unique per instantiation), since Go has no template instantiation
// to hang a per-type static on. Each role package (internal/xdgshell,
// this package's Subsurface) declares exactly one package-level RoleID
// value. Surface.Commit itself recognises a subsurface role by a type
// assertion, not by RoleID.
type RoleID *int

// NewRoleID allocates a fresh role marker. Each role-bearing package
// (internal/xdgshell, this package's Subsurface) calls this exactly
// once at init and stores the result in a package-level var.
func NewRoleID() RoleID {
	return new(int)
}

// Role is anything a Surface can have exactly one of at a time (an xdg
// surface, a subsurface), matching base_surface_role_t's one required
// operation restated for Go: identify which marker it is.
type Role interface {
	RoleID() RoleID
}
