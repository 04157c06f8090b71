// Package kstattest provides an in-memory kstat.Control, so that code
// built on package kstat can be tested (and demonstrated) anywhere,
// not just on Solaris and illumos.
//
// A Chain behaves like libkstat: kstats added to or removed from it
// only become visible after the next ChainUpdate, which then reports
// a new chain ID. Payloads are built with Named, IO, Intr and Raw,
// which produce the same binary layouts the kernel does.
package kstattest

import (
	"errors"
	"fmt"
	"sync"

	kstat "github.com/illumos/go-kstat"
)

// ErrRemoved is returned by Read on an Entry whose kstat has since
// been removed from the chain (libkstat gives ENXIO).
var ErrRemoved = errors.New("kstat has been removed from the chain")

// errClosed is what the Control methods return after Close.
var errClosed = errors.New("kstat control is closed")

type stat struct {
	ks      kstat.KStat
	payload *kstat.Payload
	readErr error
	removed bool
}

// Chain is an in-memory kstat.Control. The setup methods (Add,
// Remove, SetPayload, FailRead, FailUpdate, Bump) may be called at
// any time, including while a Reader is using the Chain.
type Chain struct {
	mu sync.Mutex

	id        int
	opened    bool
	dirty     bool
	closed    bool
	pending   []*stat
	visible   []*stat
	updateErr error
	clock     int64
	reads     int
}

var _ kstat.Control = (*Chain)(nil)

// New returns an empty Chain with chain ID 1. Whatever has been
// added by the time the Chain is first used is the chain as
// kstat_open() would have found it, with no pending change.
func New() *Chain {
	return &Chain{id: 1, clock: 1_000_000}
}

func (c *Chain) tick() int64 {
	c.clock += 1000
	return c.clock
}

// Add appends a kstat to the chain. If p is not nil, its Type
// overrides ks.Type. A nil p (eg for a timer kstat) reads as an empty
// payload.
func (c *Chain) Add(ks kstat.KStat, p *kstat.Payload) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p != nil {
		ks.Type = p.Type
	}
	ks.Crtime = c.tick()
	ks.Snaptime = 0
	c.pending = append(c.pending, &stat{ks: ks, payload: p})
	c.dirty = true
	return c
}

// Remove takes module:instance:name out of the chain. Entries for it
// that were already handed out fail to Read with ErrRemoved once the
// chain has been updated.
func (c *Chain) Remove(module string, instance int, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, st := range c.pending {
		if st.ks.Module == module && st.ks.Instance == instance && st.ks.Name == name {
			c.pending = append(c.pending[:i:i], c.pending[i+1:]...)
			c.dirty = true
			return true
		}
	}
	return false
}

func (c *Chain) find(module string, instance int, name string) *stat {
	for _, st := range c.pending {
		if st.ks.Module == module && st.ks.Instance == instance && st.ks.Name == name {
			return st
		}
	}
	return nil
}

// SetPayload replaces the data of module:instance:name, as a kernel
// module updating its counters would. This is not a chain change.
func (c *Chain) SetPayload(module string, instance int, name string, p *kstat.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.find(module, instance, name)
	if st == nil {
		return fmt.Errorf("no kstat %s:%d:%s", module, instance, name)
	}
	st.payload = p
	return nil
}

// FailRead makes every Read of module:instance:name fail with err. A
// nil err makes it readable again.
func (c *Chain) FailRead(module string, instance int, name string, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.find(module, instance, name)
	if st == nil {
		return fmt.Errorf("no kstat %s:%d:%s", module, instance, name)
	}
	st.readErr = err
	return nil
}

// FailUpdate makes every ChainUpdate fail with err until it is called
// again with nil.
func (c *Chain) FailUpdate(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateErr = err
}

// Bump marks the chain as changed without changing its contents, so
// the next ChainUpdate reports a new chain ID.
func (c *Chain) Bump() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = true
}

// Reads returns how many Entry reads have been attempted.
func (c *Chain) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Closed reports whether Close has been called.
func (c *Chain) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// open publishes the initial chain. c.mu must be held.
func (c *Chain) open() {
	if c.opened {
		return
	}
	c.opened = true
	c.visible = append([]*stat(nil), c.pending...)
	c.dirty = false
}

// ChainUpdate publishes pending changes. It returns the new chain ID
// if there were any and 0 if not.
func (c *Chain) ChainUpdate() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return -1, errClosed
	}
	if c.updateErr != nil {
		return -1, c.updateErr
	}
	c.open()
	if !c.dirty {
		return 0, nil
	}
	keep := make(map[*stat]bool, len(c.pending))
	for _, st := range c.pending {
		keep[st] = true
	}
	for _, st := range c.visible {
		if !keep[st] {
			st.removed = true
		}
	}
	c.visible = append([]*stat(nil), c.pending...)
	c.dirty = false
	c.id++
	return c.id, nil
}

func (c *Chain) ChainID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *Chain) Chain() []kstat.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.open()
	es := make([]kstat.Entry, len(c.visible))
	for i, st := range c.visible {
		es[i] = &entry{c: c, st: st}
	}
	return es
}

// Lookup follows kstat_lookup(): "" and -1 match anything and the
// first match in chain order wins.
func (c *Chain) Lookup(module string, instance int, name string) (kstat.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errClosed
	}
	c.open()
	for _, st := range c.visible {
		ks := st.ks
		if (module == "" || module == ks.Module) &&
			(instance == kstat.AnyInstance || instance == ks.Instance) &&
			(name == "" || name == ks.Name) {
			return &entry{c: c, st: st}, nil
		}
	}
	return nil, kstat.ErrNotFound
}

func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type entry struct {
	c  *Chain
	st *stat
}

func (e *entry) KStat() kstat.KStat {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	return e.st.ks
}

func (e *entry) Read() (*kstat.Payload, error) {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	e.c.reads++
	switch {
	case e.c.closed:
		return nil, errClosed
	case e.st.removed:
		return nil, ErrRemoved
	case e.st.readErr != nil:
		return nil, e.st.readErr
	}

	e.st.ks.Snaptime = e.c.tick()
	p := &kstat.Payload{Type: e.st.ks.Type}
	if e.st.payload != nil {
		*p = *e.st.payload
		p.Data = append([]byte(nil), e.st.payload.Data...)
	}
	p.Snaptime = e.st.ks.Snaptime
	p.Crtime = e.st.ks.Crtime
	return p, nil
}
