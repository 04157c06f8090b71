package kstat

// #cgo LDFLAGS: -lkstat
//
// #include <sys/types.h>
// #include <stdlib.h>
// #include <strings.h>
// #include <kstat.h>
//
import "C"

import (
	"errors"
	"runtime"
	"unsafe"
)

// kstatCtl is a Control backed by libkstat's kstat_ctl_t.
type kstatCtl struct {
	kc *C.struct_kstat_ctl
}

// Open opens the system's kstat facility. It corresponds to
// kstat_open(). The error is an *OpenError.
//
// Most people want NewReader, which calls this for them.
func Open() (Control, error) {
	r, err := C.kstat_open()
	if r == nil {
		if err == nil {
			err = errors.New("kstat_open failed")
		}
		return nil, &OpenError{Err: err}
	}
	c := &kstatCtl{kc: r}
	runtime.SetFinalizer(c, (*kstatCtl).Close)
	return c, nil
}

// Close corresponds to kstat_close(). After it, every Entry obtained
// through the control is unusable.
func (c *kstatCtl) Close() error {
	if c.kc == nil {
		return nil
	}
	res, err := C.kstat_close(c.kc)
	c.kc = nil
	runtime.SetFinalizer(c, nil)
	if res != 0 {
		return err
	}
	return nil
}

func (c *kstatCtl) ChainUpdate() (int, error) {
	if c.kc == nil {
		return -1, ErrClosed
	}
	kid, err := C.kstat_chain_update(c.kc)
	if kid == -1 {
		return -1, err
	}
	return int(kid), nil
}

func (c *kstatCtl) ChainID() int {
	if c.kc == nil {
		return 0
	}
	return int(c.kc.kc_chain_id)
}

func (c *kstatCtl) Chain() []Entry {
	n := []Entry{}
	if c.kc == nil {
		return n
	}
	for r := c.kc.kc_chain; r != nil; r = r.ks_next {
		n = append(n, &kstatEntry{ctl: c, ksp: r})
	}
	return n
}

// allocate a C string for a non-blank string
func maybeCString(src string) *C.char {
	if src == "" {
		return nil
	}
	return C.CString(src)
}

// free a non-nil C string
func maybeFree(cs *C.char) {
	if cs != nil {
		C.free(unsafe.Pointer(cs))
	}
}

func (c *kstatCtl) Lookup(module string, instance int, name string) (Entry, error) {
	if c.kc == nil {
		return nil, ErrClosed
	}
	ms := maybeCString(module)
	ns := maybeCString(name)
	r := C.kstat_lookup(c.kc, ms, C.int(instance), ns)
	maybeFree(ms)
	maybeFree(ns)

	if r == nil {
		return nil, ErrNotFound
	}
	return &kstatEntry{ctl: c, ksp: r}, nil
}

// kstatEntry is a kstat_t in a kstatCtl's chain.
type kstatEntry struct {
	ctl *kstatCtl
	ksp *C.struct_kstat
}

// invalid is a desperate attempt to keep usage errors from causing
// memory corruption. Don't count on it.
func (e *kstatEntry) invalid() bool {
	return e == nil || e.ksp == nil || e.ctl == nil || e.ctl.kc == nil
}

func (e *kstatEntry) KStat() KStat {
	if e.invalid() {
		return KStat{}
	}
	ks := e.ksp
	return KStat{
		Module:   C.GoString((*C.char)(unsafe.Pointer(&ks.ks_module))),
		Class:    C.GoString((*C.char)(unsafe.Pointer(&ks.ks_class))),
		Name:     C.GoString((*C.char)(unsafe.Pointer(&ks.ks_name))),
		Instance: int(ks.ks_instance),
		Type:     Type(ks.ks_type),
		Snaptime: int64(ks.ks_snaptime),
		Crtime:   int64(ks.ks_crtime),
	}
}

// Read does a kstat_read() and copies out ks_data, which libkstat
// reuses on the next read.
func (e *kstatEntry) Read() (*Payload, error) {
	if e.invalid() {
		return nil, errors.New("invalid kstat or closed control")
	}
	res, err := C.kstat_read(e.ctl.kc, e.ksp, unsafe.Pointer(nil))
	if res == -1 {
		return nil, err
	}
	ks := e.ksp
	p := &Payload{
		Type:     Type(ks.ks_type),
		Ndata:    int(ks.ks_ndata),
		Base:     uint64(uintptr(ks.ks_data)),
		Snaptime: int64(ks.ks_snaptime),
		Crtime:   int64(ks.ks_crtime),
	}
	if ks.ks_data != nil && ks.ks_data_size > 0 {
		p.Data = C.GoBytes(ks.ks_data, C.int(ks.ks_data_size))
	}
	return p, nil
}
