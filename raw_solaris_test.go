//
// Test raw access to KStats.

package kstat_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kstat "github.com/illumos/go-kstat"
)

// lookupEntry is Control.Lookup(); fail on error.
func lookupEntry(t *testing.T, ctl kstat.Control, module, name string) kstat.Entry {
	t.Helper()
	e, err := ctl.Lookup(module, -1, name)
	require.NoError(t, err, "lookup failure on %s:-1:%s", module, name)
	return e
}

func TestRawPayload(t *testing.T) {
	ctl, err := kstat.Open()
	require.NoError(t, err)

	e := lookupEntry(t, ctl, "sd", "sd0")
	p, err := e.Read()
	require.NoError(t, err)
	// This is an IoStat; it should be the same size as the IO struct.
	assert.Len(t, p.Data, int(unsafe.Sizeof(kstat.IO{})))
	// Should have only one element:
	assert.Equal(t, 1, p.Ndata)
	assert.Equal(t, p.Snaptime, e.KStat().Snaptime)

	// Named kstats have Ndata > 1. We're not going to hardcode an
	// Ndata value for cpu:0:sys, because who knows, it could change.
	e = lookupEntry(t, ctl, "cpu", "sys")
	p, err = e.Read()
	require.NoError(t, err)
	assert.Greater(t, p.Ndata, 1)
	assert.GreaterOrEqual(t, len(p.Data), p.Ndata*int(unsafe.Sizeof(kstat.Named{})))

	// KSTAT_TYPE_RAW has Ndata == sizeof the actual data chunk. SIGH.
	e = lookupEntry(t, ctl, "unix", "sysinfo")
	p, err = e.Read()
	require.NoError(t, err)
	si := int(unsafe.Sizeof(kstat.Sysinfo{}))
	assert.Len(t, p.Data, si)
	assert.Equal(t, si, p.Ndata)

	require.NoError(t, ctl.Close())

	// While we're here, test that Read fails after a Close
	_, err = e.Read()
	assert.Error(t, err, "Read did not fail after Close")
}

func ksshouldbe(t *testing.T, rec *kstat.Record, module string, instance int, name string) {
	t.Helper()
	if rec.Module != module || rec.Instance != instance || rec.Name != name {
		t.Fatalf("%s expected to be %s:%d:%s", rec.KStat, module, instance, name)
	}
}

// Test the unix:0:* raw layouts. It's hard to audit the returned
// results for sanity, so we mostly check that they decode.
func TestUnixStats(t *testing.T) {
	r := start(t, kstat.NewFilter())
	defer stop(t, r)

	rec := lookup(t, r, "unix", "sysinfo")
	ksshouldbe(t, rec, "unix", 0, "sysinfo")
	assert.NotZero(t, rec.Data["updates"].Float())

	rec = lookup(t, r, "unix", "vminfo")
	ksshouldbe(t, rec, "unix", 0, "vminfo")
	assert.NotZero(t, rec.Data["freemem"].Float())

	rec = lookup(t, r, "unix", "var")
	ksshouldbe(t, rec, "unix", 0, "var")
	assert.NotZero(t, rec.Data["v_proc"].Float())

	rec = lookup(t, r, "unix", "ncstats")
	assert.Len(t, rec.Data, 8)

	rec = lookup(t, r, "cpu_stat", "")
	assert.Len(t, rec.Data, 82)
	assert.NotZero(t, rec.Data["syscall"].Float())
}

// Test CopyTo by fetching unix:0:var directly with it and comparing
// against the generic decoding.
func TestCopyToLive(t *testing.T) {
	ctl, err := kstat.Open()
	require.NoError(t, err)
	defer ctl.Close()

	e := lookupEntry(t, ctl, "unix", "var")
	p, err := e.Read()
	require.NoError(t, err)
	var v kstat.Var
	require.NoError(t, p.CopyTo(&v))

	ks := e.KStat()
	d, err := kstat.NewDecoder(nil).Decode(&ks, p)
	require.NoError(t, err)
	assert.Equal(t, float64(v.Proc), d["v_proc"].Float())
	assert.Equal(t, float64(v.Maxup), d["v_maxup"].Float())
}

// Testing mntinfo is complicated by the fact that servers may not
// have any of them.
func TestMntinfo(t *testing.T) {
	r := start(t, kstat.NewFilter())
	defer stop(t, r)
	rec, err := r.Lookup("nfs", -1, "mntinfo")
	require.NoError(t, err)
	if rec.NotFound {
		t.Skip("skipping test due to lack of nfs:*:mntinfo kstat")
	}
	if rec.Data["mik_proto"].Text() == "" || rec.Data["mik_curserver"].Text() == "" {
		t.Fatalf("%s empty proto and/or curserv: %#v", rec.KStat, rec.Data)
	}
	// BUG: this may be a mistake to insist on narrow values here.
	if v := rec.Data["mik_vers"].Float(); v < 3 || v > 4 {
		t.Fatalf("%s Vers is not 3 or 4: %v", rec.KStat, v)
	}
}
