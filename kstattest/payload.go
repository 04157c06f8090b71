package kstattest

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	kstat "github.com/illumos/go-kstat"
)

// DefaultBase is the ks_data address Named pretends the kernel used.
const DefaultBase uint64 = 0xfffffe00_12340000

// NamedValue is one statistic of a named kstat.
type NamedValue struct {
	Name string
	Type kstat.NamedTypes
	// Bits is the value union for numeric types, little-endian.
	Bits uint64
	Str  string
}

// Char is a KSTAT_DATA_CHAR statistic.
func Char(name string, v int8) NamedValue {
	return NamedValue{Name: name, Type: kstat.CharData, Bits: uint64(uint8(v))}
}

// Int32 is a KSTAT_DATA_INT32 statistic.
func Int32(name string, v int32) NamedValue {
	return NamedValue{Name: name, Type: kstat.Int32, Bits: uint64(uint32(v))}
}

// Uint32 is a KSTAT_DATA_UINT32 statistic.
func Uint32(name string, v uint32) NamedValue {
	return NamedValue{Name: name, Type: kstat.Uint32, Bits: uint64(v)}
}

// Int64 is a KSTAT_DATA_INT64 statistic.
func Int64(name string, v int64) NamedValue {
	return NamedValue{Name: name, Type: kstat.Int64, Bits: uint64(v)}
}

// Uint64 is a KSTAT_DATA_UINT64 statistic.
func Uint64(name string, v uint64) NamedValue {
	return NamedValue{Name: name, Type: kstat.Uint64, Bits: v}
}

// String is a KSTAT_DATA_STRING statistic.
func String(name, s string) NamedValue {
	return NamedValue{Name: name, Type: kstat.String, Str: s}
}

// Typed is a statistic of an arbitrary data type, including ones
// kstat.Decoder does not recognize.
func Typed(name string, dt kstat.NamedTypes, bits uint64) NamedValue {
	return NamedValue{Name: name, Type: dt, Bits: bits}
}

var (
	namedSize   = int(unsafe.Sizeof(kstat.Named{}))
	namedType   = int(unsafe.Offsetof(kstat.Named{}.DataType))
	namedVal    = int(unsafe.Offsetof(kstat.Named{}.Value))
	namedMaxLen = namedType - 1
)

// Named builds a KSTAT_TYPE_NAMED payload at DefaultBase.
func Named(vals ...NamedValue) *kstat.Payload {
	return NamedAt(DefaultBase, vals...)
}

// NamedAt builds a KSTAT_TYPE_NAMED payload as if ks_data were at
// base. String values are stored after the kstat_named_t array and
// pointed to with absolute addresses, the way the kernel does it.
// Names longer than KSTAT_STRLEN-1 are truncated.
func NamedAt(base uint64, vals ...NamedValue) *kstat.Payload {
	buf := make([]byte, len(vals)*namedSize)
	for i, v := range vals {
		nm := buf[i*namedSize : (i+1)*namedSize]
		name := v.Name
		if len(name) > namedMaxLen {
			name = name[:namedMaxLen]
		}
		copy(nm, name)
		nm[namedType] = byte(v.Type)
		if v.Type != kstat.String {
			binary.LittleEndian.PutUint64(nm[namedVal:], v.Bits)
			continue
		}
		if v.Str == "" {
			continue
		}
		off := len(buf)
		buf = append(buf, v.Str...)
		buf = append(buf, 0)
		// buf may have moved; nm must be re-sliced.
		nm = buf[i*namedSize : (i+1)*namedSize]
		binary.LittleEndian.PutUint64(nm[namedVal:], base+uint64(off))
		binary.LittleEndian.PutUint32(nm[namedVal+8:], uint32(len(v.Str)+1))
	}
	return &kstat.Payload{Type: kstat.NamedStat, Ndata: len(vals), Data: buf, Base: base}
}

// IO builds a KSTAT_TYPE_IO payload.
func IO(io kstat.IO) *kstat.Payload {
	return &kstat.Payload{Type: kstat.IoStat, Ndata: 1, Data: encode(io)}
}

// Intr builds a KSTAT_TYPE_INTR payload.
func Intr(hard, soft, watchdog, spurious, multsvc uint32) *kstat.Payload {
	var in kstat.Intr
	in.Intrs[kstat.IntrHard] = hard
	in.Intrs[kstat.IntrSoft] = soft
	in.Intrs[kstat.IntrWatchdog] = watchdog
	in.Intrs[kstat.IntrSpurious] = spurious
	in.Intrs[kstat.IntrMultSvc] = multsvc
	return &kstat.Payload{Type: kstat.IntrStat, Ndata: 1, Data: encode(in)}
}

// Raw builds a KSTAT_TYPE_RAW payload holding v, which must be a
// fixed-size value such as kstat.Sysinfo or kstat.CPUStat.
func Raw(v any) *kstat.Payload {
	return RawBytes(encode(v))
}

// RawBytes builds a KSTAT_TYPE_RAW payload holding b.
func RawBytes(b []byte) *kstat.Payload {
	return &kstat.Payload{Type: kstat.RawStat, Ndata: 1, Data: b}
}

func encode(v any) []byte {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		panic("kstattest: cannot encode " + err.Error())
	}
	return buf.Bytes()
}
