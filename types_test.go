package kstat_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kstat "github.com/illumos/go-kstat"
)

// Because we played a sleazy trick to generate the Mntinfo and
// CPUStat structs, we test that their sizes are exactly the same as
// the C versions. While we're here, we test the others as well.
// These sizes come from cgo on illumos amd64.
const (
	sizeofNamed   = 0x30
	sizeofIO      = 0x50
	sizeofIntr    = 0x14
	sizeofSI      = 0x18
	sizeofVI      = 0x30
	sizeofVar     = 0x3c
	sizeofNC      = 0x20
	sizeofKM      = 0x1ec
	sizeofCPUStat = 0x180
)

func TestStructSizes(t *testing.T) {
	for _, tc := range []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"Named", unsafe.Sizeof(kstat.Named{}), sizeofNamed},
		{"IO", unsafe.Sizeof(kstat.IO{}), sizeofIO},
		{"Intr", unsafe.Sizeof(kstat.Intr{}), sizeofIntr},
		{"Sysinfo", unsafe.Sizeof(kstat.Sysinfo{}), sizeofSI},
		{"Vminfo", unsafe.Sizeof(kstat.Vminfo{}), sizeofVI},
		{"Var", unsafe.Sizeof(kstat.Var{}), sizeofVar},
		{"Ncstats", unsafe.Sizeof(kstat.Ncstats{}), sizeofNC},
		{"Mntinfo", unsafe.Sizeof(kstat.Mntinfo{}), sizeofKM},
		{"CPUStat", unsafe.Sizeof(kstat.CPUStat{}), sizeofCPUStat},
	} {
		assert.Equal(t, tc.want, tc.got, "%s has the wrong size", tc.name)
	}
}

// The named value union starts right after the 31 byte name and the
// one byte type, and CopyTo sizes must agree with the C sizes too.
func TestNamedOffsets(t *testing.T) {
	assert.Equal(t, uintptr(31), unsafe.Offsetof(kstat.Named{}.DataType))
	assert.Equal(t, uintptr(32), unsafe.Offsetof(kstat.Named{}.Value))

	p := &kstat.Payload{Data: make([]byte, sizeofCPUStat)}
	var cs kstat.CPUStat
	require.NoError(t, p.CopyTo(&cs))
	p = &kstat.Payload{Data: make([]byte, sizeofKM)}
	var mi kstat.Mntinfo
	require.NoError(t, p.CopyTo(&mi))
}

func toint8(str string) *[256]int8 {
	var buf [256]int8
	for i := 0; i < len(str); i++ {
		buf[i] = int8(str[i])
	}
	// remaining buf is zeroed by implication.
	return &buf
}

// Given a string, this tests variants of buffer conversion: string
// with trailing 0's, string exactly filling the slice passed to
// CFieldString (simulating an exactly-full field), and first
// character (exactly filling the field).
func teststring(t *testing.T, s string) {
	t.Helper()
	buf := toint8(s)
	assert.Equal(t, s, kstat.CFieldString(buf[:]), "full buf mismatch")
	assert.Equal(t, s, kstat.CFieldString(buf[:len(s)]), "exact buf mismatch")
	assert.Equal(t, s, kstat.CFieldString(buf[:len(s)+1]), "string + one null mismatch")
	if len(s) > 1 {
		assert.Equal(t, s[:1], kstat.CFieldString(buf[:1]), "first character mismatch")
	}
}

// This function is sufficiently potentially tricky that I want to test
// it directly, including with some torture tests.
func TestCFieldString(t *testing.T) {
	teststring(t, "this is a test string")
	teststring(t, "")
	buf := toint8("abc\x00def")
	assert.Equal(t, "abc", kstat.CFieldString(buf[:]), "embedded null not properly handled")
}

func TestMntinfoStrings(t *testing.T) {
	var mi kstat.Mntinfo
	copy(mi.Proto[:], toint8("tcp")[:3])
	copy(mi.Curserver[:], toint8("fs1.example.com")[:15])
	assert.Equal(t, "tcp", mi.ProtoString())
	assert.Equal(t, "fs1.example.com", mi.CurserverString())
}
