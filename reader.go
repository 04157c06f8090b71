package kstat

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Change is the result of a successful Reader.Update.
type Change int

const (
	// Unchanged means the kstat chain was the same as last time and
	// the descriptor list was left alone.
	Unchanged Change = iota
	// Rebuilt means the descriptor list was rebuilt from the chain.
	Rebuilt
)

func (c Change) String() string {
	if c == Rebuilt {
		return "rebuilt"
	}
	return "unchanged"
}

// chain is one immutable filtered snapshot of the kstat chain. It is
// replaced, never modified, by Update.
type chain struct {
	id      int
	entries []Entry
	stats   []KStat
}

// Descriptor is one kstat of a Reader's filtered chain, as of the
// Update that produced it. The embedded KStat is a copy taken then.
// Once a later Update rebuilds the chain, the Descriptor is stale and
// ReadDescriptor refuses it with ErrStale.
type Descriptor struct {
	KStat

	chain *chain
	index int
}

// Reader gives a filtered, decoded view of the kstat chain. It owns
// its own connection to the kstat facility. All methods are safe for
// concurrent use; calls into the facility are serialized.
type Reader struct {
	mu  sync.Mutex
	ctl Control

	filter        Filter
	dec           *Decoder
	log           *slog.Logger
	metrics       *Metrics
	isolateDecode bool

	cur atomic.Pointer[chain]
}

// NewReader opens the kstat facility and returns a Reader for the
// kstats selected by f, which usually starts out as NewFilter().
// Nothing is read until the first Update, List
// or Read. The error is an *OpenError if the facility can't be opened.
//
// You should call Close when you're done; the Reader is also closed
// by a finalizer if it becomes unreachable.
func NewReader(f Filter, opts ...Option) (*Reader, error) {
	r := &Reader{
		filter: f,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dec == nil {
		r.dec = NewDecoder(nil)
	}
	if r.ctl == nil {
		c, err := Open()
		if err != nil {
			return nil, err
		}
		r.ctl = c
	}
	runtime.SetFinalizer(r, (*Reader).Close)
	return r, nil
}

// Filter returns the filter the Reader was created with.
func (r *Reader) Filter() Filter { return r.filter }

// Close releases the Reader's connection to the kstat facility. A
// closed Reader cannot be used for anything; Close itself may be
// called again.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctl == nil {
		return nil
	}
	err := r.ctl.Close()
	r.ctl = nil
	runtime.SetFinalizer(r, nil)
	return err
}

// Update brings the Reader's view of the kstat chain up to date. If
// the chain changed, or this is the first update, the filtered list
// of descriptors is rebuilt from scratch. A failure is returned as an
// *UpdateError and leaves the previous descriptors in place.
func (r *Reader) Update() (Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctl == nil {
		return Unchanged, ErrClosed
	}
	return r.update()
}

// update must be called with r.mu held.
func (r *Reader) update() (Change, error) {
	kid, err := r.ctl.ChainUpdate()
	if err != nil {
		r.metrics.chainUpdate("error")
		return Unchanged, &UpdateError{Err: err}
	}
	if kid == 0 && r.cur.Load() != nil {
		r.metrics.chainUpdate("unchanged")
		return Unchanged, nil
	}

	c := &chain{id: r.ctl.ChainID()}
	for _, e := range r.ctl.Chain() {
		ks := e.KStat()
		if !r.filter.Matches(ks) {
			continue
		}
		c.entries = append(c.entries, e)
		c.stats = append(c.stats, ks)
	}
	r.cur.Store(c)

	r.metrics.chainUpdate("rebuilt")
	r.metrics.setDescriptors(len(c.entries))
	r.log.Debug("rebuilt kstat chain",
		slog.Int("chain_id", c.id),
		slog.Int("count", len(c.entries)),
		slog.String("filter", r.filter.String()))
	return Rebuilt, nil
}

// ChainID returns the kstat chain ID, which changes whenever kstats
// are added to or removed from the chain. Callers can use it to
// invalidate their own caches.
func (r *Reader) ChainID() int {
	if c := r.cur.Load(); c != nil {
		return c.id
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctl == nil {
		return 0
	}
	return r.ctl.ChainID()
}

// Descriptors returns the filtered chain as of the last rebuild, in
// chain order. It is nil before the first Update.
func (r *Reader) Descriptors() []Descriptor {
	c := r.cur.Load()
	if c == nil {
		return nil
	}
	ds := make([]Descriptor, len(c.stats))
	for i, ks := range c.stats {
		ds[i] = Descriptor{KStat: ks, chain: c, index: i}
	}
	return ds
}

// List updates the chain and returns the metadata of every selected
// kstat. No kstat data is read, which makes this cheap.
func (r *Reader) List() ([]KStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctl == nil {
		return nil, ErrClosed
	}
	defer r.metrics.observe("list", time.Now())

	if _, err := r.update(); err != nil {
		return nil, err
	}
	c := r.cur.Load()
	out := make([]KStat, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.KStat()
	}
	return out, nil
}

// Read updates the chain, then re-reads and decodes every selected
// kstat, returning the records in chain order.
//
// A kstat that fails to re-read (some do under routine conditions;
// ACPI is one offender) gets a Record with Error set and no Data, and
// Read carries on. A *DecodeError, on the other hand, fails the whole
// Read unless the Reader was created WithIsolatedDecodeErrors.
func (r *Reader) Read() ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctl == nil {
		return nil, ErrClosed
	}
	defer r.metrics.observe("read", time.Now())

	if _, err := r.update(); err != nil {
		return nil, err
	}
	c := r.cur.Load()
	out := make([]Record, 0, len(c.entries))
	for _, e := range c.entries {
		rec, err := r.read(e)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Lookup reads and decodes one particular kstat, regardless of the
// Reader's filter and without touching its descriptors. module and
// name may be "" and instance may be -1 to mean 'the first one found'.
//
// A kstat that does not exist is not an error: the Record has
// NotFound set, an Error of "invalid kstat", and echoes module,
// instance and name.
func (r *Reader) Lookup(module string, instance int, name string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctl == nil {
		return nil, ErrClosed
	}
	defer r.metrics.observe("lookup", time.Now())

	e, err := r.ctl.Lookup(module, instance, name)
	if errors.Is(err, ErrNotFound) {
		return &Record{
			KStat:    KStat{Module: module, Instance: instance, Name: name},
			Error:    ErrNotFound.Error(),
			NotFound: true,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return r.read(e)
}

// ReadDescriptor re-reads and decodes the kstat behind d. It returns
// ErrStale if the chain has been rebuilt since d was obtained.
func (r *Reader) ReadDescriptor(d Descriptor) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctl == nil {
		return nil, ErrClosed
	}
	if d.chain == nil || d.chain != r.cur.Load() {
		return nil, ErrStale
	}
	return r.read(d.chain.entries[d.index])
}

// read must be called with r.mu held. The only error it returns is a
// *DecodeError, and only when those are not isolated.
func (r *Reader) read(e Entry) (*Record, error) {
	rec := &Record{KStat: e.KStat()}

	p, err := e.Read()
	if err != nil {
		r.metrics.readError()
		r.log.Warn("kstat read failed",
			slog.String("kstat", rec.KStat.String()),
			slog.String("error", err.Error()))
		rec.Error = err.Error()
		return rec, nil
	}
	rec.Snaptime = p.Snaptime
	rec.Crtime = p.Crtime

	data, err := r.dec.Decode(&rec.KStat, p)
	if err != nil {
		r.metrics.decodeError()
		if r.isolateDecode {
			r.log.Warn("kstat decode failed", slog.String("kstat", rec.KStat.String()), slog.String("error", err.Error()))
			rec.Error = err.Error()
			return rec, nil
		}
		r.log.Error("kstat decode failed, abandoning read", slog.String("error", err.Error()))
		return nil, err
	}
	rec.Data = data
	r.metrics.recordRead()
	return rec, nil
}
