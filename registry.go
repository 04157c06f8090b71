package kstat

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Field is one statistic of a raw kstat layout: its name and how to
// extract it from the raw data.
type Field struct {
	Name string
	// End is the offset just past the last byte Extract looks at.
	End uintptr
	// Extract is only ever called on data at least End bytes long.
	Extract func(data []byte) Value
}

// Int32At is a Field holding the int32 at offset off.
func Int32At(name string, off uintptr) Field {
	return Field{Name: name, End: off + 4, Extract: func(b []byte) Value {
		return Num(float64(int32(binary.LittleEndian.Uint32(b[off:]))))
	}}
}

// Uint32At is a Field holding the uint32 at offset off.
func Uint32At(name string, off uintptr) Field {
	return Field{Name: name, End: off + 4, Extract: func(b []byte) Value {
		return Num(float64(binary.LittleEndian.Uint32(b[off:])))
	}}
}

// Int64At is a Field holding the int64 at offset off.
func Int64At(name string, off uintptr) Field {
	return Field{Name: name, End: off + 8, Extract: func(b []byte) Value {
		return Num(float64(int64(binary.LittleEndian.Uint64(b[off:]))))
	}}
}

// Uint64At is a Field holding the uint64 at offset off.
func Uint64At(name string, off uintptr) Field {
	return Field{Name: name, End: off + 8, Extract: func(b []byte) Value {
		return Num(float64(binary.LittleEndian.Uint64(b[off:])))
	}}
}

// CStringAt is a Field holding the C string in the n byte char array
// at offset off.
func CStringAt(name string, off, n uintptr) Field {
	return Field{Name: name, End: off + n, Extract: func(b []byte) Value {
		return Str(cString(b[off : off+n]))
	}}
}

// Layout describes how to decode one kind of raw kstat.
type Layout struct {
	// Module and Name identify the kstat. Name may be "*" to match
	// every kstat of the module.
	Module string
	Name   string
	Fields []Field
}

// Size is the minimum data size the layout needs.
func (l *Layout) Size() uintptr {
	var sz uintptr
	for _, f := range l.Fields {
		if f.End > sz {
			sz = f.End
		}
	}
	return sz
}

// Decode extracts every field of the layout from data, which must be
// at least Size() bytes long.
func (l *Layout) Decode(data []byte) (Data, error) {
	if sz := l.Size(); uintptr(len(data)) < sz {
		return nil, fmt.Errorf("raw data is %d bytes, %s:%s layout needs %d", len(data), l.Module, l.Name, sz)
	}
	d := make(Data, len(l.Fields))
	for _, f := range l.Fields {
		d[f.Name] = f.Extract(data)
	}
	return d, nil
}

type layoutKey struct {
	module, name string
}

// Registry maps raw kstats to the Layout used to decode them. It is
// built once and read-only afterwards, so it may be shared freely.
type Registry struct {
	layouts map[layoutKey]*Layout
}

// NewRegistry builds a Registry from layouts. A later layout for the
// same module and name replaces an earlier one.
func NewRegistry(layouts ...Layout) *Registry {
	r := &Registry{layouts: make(map[layoutKey]*Layout, len(layouts))}
	for i := range layouts {
		l := layouts[i]
		r.layouts[layoutKey{l.Module, l.Name}] = &l
	}
	return r
}

// Lookup returns the layout for module:name, falling back to a
// module:* layout.
func (r *Registry) Lookup(module, name string) (*Layout, bool) {
	if r == nil {
		return nil, false
	}
	if l, ok := r.layouts[layoutKey{module, name}]; ok {
		return l, true
	}
	l, ok := r.layouts[layoutKey{module, "*"}]
	return l, ok
}

// Len returns the number of layouts in r.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.layouts)
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the Registry of every raw kstat layout this
// package knows about (see DefaultLayouts).
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry(DefaultLayouts()...)
	})
	return defaultRegistry
}
