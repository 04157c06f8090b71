package kstat

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
)

// Control is a connection to the kernel's kstat facility, ie a
// kstat_ctl_t. On Solaris and illumos Open returns one backed by
// libkstat; package kstattest provides an in-memory one.
//
// A Control is not safe for concurrent use. Reader serializes all
// calls into the Control it owns.
type Control interface {
	// ChainUpdate brings the kstat chain up to date. It returns
	// the new chain ID if the chain changed and 0 if it did not,
	// just like kstat_chain_update().
	ChainUpdate() (int, error)

	// ChainID returns the current chain ID (kc_chain_id).
	ChainID() int

	// Chain returns every kstat in the chain, in chain order. The
	// Entries are valid until the next ChainUpdate that changes
	// the chain.
	Chain() []Entry

	// Lookup finds a particular kstat, like kstat_lookup(). module
	// and name may be "" and instance may be -1 to mean 'any'. It
	// returns ErrNotFound if there is no such kstat.
	Lookup(module string, instance int, name string) (Entry, error)

	// Close releases the connection. It is safe to call twice.
	Close() error
}

// Entry is one kstat in a Control's chain.
type Entry interface {
	// KStat returns the kstat's metadata as the kernel currently
	// has it; Snaptime reflects the most recent Read.
	KStat() KStat

	// Read re-reads the kstat's data from the kernel, like
	// kstat_read(), and returns a copy of it.
	Read() (*Payload, error)
}

// Payload is a copy of a kstat's data (ks_data) as of one read. It
// belongs to the caller and stays valid after chain updates.
type Payload struct {
	Type  Type
	Ndata int
	Data  []byte

	// Base is the address ks_data had when it was read. The kernel
	// stores named KSTAT_DATA_STRING values inside the data buffer
	// and points at them with absolute addresses, so they are found
	// at (pointer - Base) in Data.
	Base uint64

	Snaptime int64
	Crtime   int64
}

// CopyTo copies the payload into the struct that ptr points to,
// which must be exactly the size of the data. Fields are decoded as
// little-endian; blank (_) fields are skipped.
//
// This is the typed alternative to the generic decoding done by
// Decoder, eg:
//
//	var si kstat.Sysinfo
//	err := p.CopyTo(&si)
func (p *Payload) CopyTo(ptr any) error {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("CopyTo needs a non-nil pointer, not %T", ptr)
	}
	sz := binary.Size(ptr)
	if sz < 0 {
		return fmt.Errorf("CopyTo: %T is not a fixed-size type", ptr)
	}
	if sz != len(p.Data) {
		return fmt.Errorf("CopyTo: size of %T is %d, data is %d bytes", ptr, sz, len(p.Data))
	}
	return binary.Read(bytes.NewReader(p.Data), binary.LittleEndian, ptr)
}

// CFieldString converts a (null-terminated) C string embedded in an
// []int8 slice to a Go string. The C string must be null-terminated
// or fill the slice exactly.
func CFieldString(src []int8) string {
	buf := make([]byte, len(src))
	for i, c := range src {
		buf[i] = byte(c)
	}
	return cString(buf)
}

// cString is CFieldString for bytes.
func cString(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		src = src[:i]
	}
	return string(src)
}
