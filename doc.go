//
// Package kstat provides a Go interface to the Solaris/illumos
// kstat(s) system for user-level access to a lot of kernel
// statistics. For more documentation on kstats, see kstat(1) and
// kstat(3kstat).
//
// General usage: start from NewFilter(), which selects every kstat,
// narrow it down and call NewReader() with it to obtain a Reader,
// then call .Read() on it to obtain a Record for every kstat the
// filter selects, in kstat chain order. Each Record has the kstat's
// module:instance:name, class, type and times, plus its statistics
// decoded into a generic name -> Value map (numbers are float64,
// strings stay strings). .List() gives you just the metadata without
// reading any data, and .Lookup() reads one particular kstat
// regardless of the filter.
//
//	f := kstat.NewFilter()
//	f.Module = "sd"
//	r, err := kstat.NewReader(f)
//
// Beware of Filter{Module: "sd"}: Instance is 0 there, so it selects
// sd:0:* only.
//
// Every call to .List() or .Read() first updates the kstat chain
// (kstat_chain_update()), so new kstats show up and vanished ones go
// away without you having to reopen anything. .ChainID() tells you
// when that happened, if you keep caches of your own.
//
// The short version: a kstat is a collection of some related
// statistics, eg disk IO stats for a disk or various network counters
// for a particular network interface. The chain is the collection of
// all of them. A Reader is a filtered window onto the chain.
//
// DECODING
//
// All four kinds of kstat data are decoded:
//
//	named   each named statistic, with char, int32, uint32, int64
//	        and uint64 values as numbers and strings as strings
//	io      the kstat_io_t fields (nread, nwritten, reads, ...)
//	intr    hard, soft, watchdog, spurious, multiple_service
//	raw     only for kstats with a known Layout, see below
//
// Raw kstats are just a C struct that some kernel module exports, so
// we can only decode the ones we have a Layout for. The default
// Registry knows the ones kstat(1) knows about: unix:0:ncstats,
// unix:0:var, unix:0:sysinfo, unix:0:vminfo, nfs:*:mntinfo and the
// cpu_stat:*:cpu_stat* family. Other raw kstats decode to empty Data.
// You can build your own Registry with extra layouts.
//
// If you'd rather have a struct, Payload.CopyTo() will fill in one
// of the types in this package (IO, Sysinfo, Vminfo, Var, Mntinfo,
// Ncstats, CPUStat) directly.
//
// ERRORS
//
// Some kstats fail to read under otherwise routine conditions. Such
// a kstat gets a Record with its Error set and Read() carries on. A
// named statistic of a type we don't recognize means our idea of the
// kernel's data layout is out of date; by default that fails the
// whole Read() with a *DecodeError (see WithIsolatedDecodeErrors).
//
// This is a cgo-based package on Solaris and illumos. Cross
// compilation is up to you. On other platforms NewReader() fails with
// ErrUnsupported unless you give it a Control of your own, such as
// the in-memory one from package kstattest.
//
// Readers are safe for concurrent use; all calls into the underlying
// C kstat library, which is not thread safe, are serialized.
//
// Copyright: standard Go copyright.
//
package kstat
