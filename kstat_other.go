//go:build !solaris

package kstat

// Open opens the system's kstat facility. Only Solaris and illumos
// have one, so here it always fails with an *OpenError wrapping
// ErrUnsupported. Readers can still be built on another Control with
// WithControl.
func Open() (Control, error) {
	return nil, &OpenError{Err: ErrUnsupported}
}
