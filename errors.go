package kstat

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned by Open on systems without kstats.
	ErrUnsupported = errors.New("kstats are not supported on this platform")

	// ErrClosed is returned by operations on a closed Reader.
	ErrClosed = errors.New("kstat reader is closed")

	// ErrStale is returned for a Descriptor taken from a chain
	// snapshot that a later Update has since replaced.
	ErrStale = errors.New("kstat descriptor is stale")

	// ErrNotFound is the Control.Lookup error for a kstat that does
	// not exist. Reader.Lookup turns it into a NotFound Record.
	ErrNotFound = errors.New("invalid kstat")

	// ErrUpdate matches every *UpdateError via errors.Is.
	ErrUpdate = errors.New("failed to update kstat chain")

	// ErrDecode matches every *DecodeError via errors.Is.
	ErrDecode = errors.New("failed to decode kstat data")
)

// OpenError reports that the kstat facility could not be opened.
type OpenError struct {
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("could not open kstat: %v", e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// UpdateError reports that kstat_chain_update() failed. The Reader
// remains usable and the update can be retried.
type UpdateError struct {
	Err error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUpdate, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }

func (e *UpdateError) Is(target error) bool { return target == ErrUpdate }

// DecodeError reports that a kstat's data did not match what we know
// about its layout: an unrecognized named statistic type, a payload
// too short for its layout, or a string pointer outside the payload.
//
// Any of these means our idea of the kernel's binary layout is out of
// date, so by default a DecodeError fails the whole Reader.Read.
type DecodeError struct {
	Module   string
	Class    string
	Name     string
	Instance int

	// Field is the named statistic being decoded, if any.
	Field string
	// DataType is the unrecognized named data type, or -1.
	DataType NamedTypes
	Reason   string
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s for member %q in instance %d of stat %q (module %q, class %q)",
			e.Reason, e.Field, e.Instance, e.Name, e.Module, e.Class)
	}
	return fmt.Sprintf("%s in instance %d of stat %q (module %q, class %q)",
		e.Reason, e.Instance, e.Name, e.Module, e.Class)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Context returns the error's diagnostic fields for structured logging.
func (e *DecodeError) Context() map[string]any {
	ctx := map[string]any{
		"module":   e.Module,
		"class":    e.Class,
		"name":     e.Name,
		"instance": e.Instance,
	}
	if e.Field != "" {
		ctx["field"] = e.Field
	}
	if e.DataType >= 0 {
		ctx["data_type"] = int(e.DataType)
	}
	return ctx
}

func newDecodeError(ks *KStat, field string, dt NamedTypes, format string, args ...any) *DecodeError {
	return &DecodeError{
		Module:   ks.Module,
		Class:    ks.Class,
		Name:     ks.Name,
		Instance: ks.Instance,
		Field:    field,
		DataType: dt,
		Reason:   fmt.Sprintf(format, args...),
	}
}
