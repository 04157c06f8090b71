package kstat

import (
	"encoding/binary"
	"unsafe"
)

// Decoder turns kstat payloads into generic Data, dispatching on the
// kstat's Type. Raw kstats are decoded with the layouts in its
// Registry.
type Decoder struct {
	reg *Registry
}

// NewDecoder returns a Decoder that uses reg for raw kstats. A nil
// reg means DefaultRegistry().
func NewDecoder(reg *Registry) *Decoder {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Decoder{reg: reg}
}

// Registry returns the raw layout registry d uses.
func (d *Decoder) Registry() *Registry { return d.reg }

// Decode decodes p, the data of ks. It returns nil Data (and no
// error) for kstat types that have nothing to decode, and empty Data
// for raw kstats without a registered layout. Every error it returns
// is a *DecodeError.
func (d *Decoder) Decode(ks *KStat, p *Payload) (Data, error) {
	switch ks.Type {
	case NamedStat:
		return decodeNamed(ks, p)
	case IoStat:
		return decodeIO(ks, p)
	case IntrStat:
		return decodeIntr(ks, p)
	case RawStat:
		return d.decodeRaw(ks, p)
	default:
		return nil, nil
	}
}

var (
	namedSize = unsafe.Sizeof(Named{})
	namedType = unsafe.Offsetof(Named{}.DataType)
	namedVal  = unsafe.Offsetof(Named{}.Value)
	// KSTAT_NAMED_STR_PTR and KSTAT_NAMED_STR_BUFLEN, inside the
	// value union.
	namedStrPtr = namedVal
	namedStrLen = namedVal + 8
)

func decodeNamed(ks *KStat, p *Payload) (Data, error) {
	need := uintptr(p.Ndata) * namedSize
	if uintptr(len(p.Data)) < need {
		return nil, newDecodeError(ks, "", -1, "named data is %d bytes, %d statistics need %d", len(p.Data), p.Ndata, need)
	}

	data := make(Data, p.Ndata)
	for i := 0; i < p.Ndata; i++ {
		nm := p.Data[uintptr(i)*namedSize : uintptr(i+1)*namedSize]
		name := cString(nm[:namedType])
		dt := NamedTypes(nm[namedType])
		val := nm[namedVal:]

		switch dt {
		case CharData:
			data[name] = Num(float64(int8(val[0])))
		case Int32:
			data[name] = Num(float64(int32(binary.LittleEndian.Uint32(val))))
		case Uint32:
			data[name] = Num(float64(binary.LittleEndian.Uint32(val)))
		case Int64:
			data[name] = Num(float64(int64(binary.LittleEndian.Uint64(val))))
		case Uint64:
			data[name] = Num(float64(binary.LittleEndian.Uint64(val)))
		case String:
			s, ok := namedString(p, nm)
			if !ok {
				return nil, newDecodeError(ks, name, dt, "string value outside of kstat data")
			}
			data[name] = Str(s)
		default:
			return nil, newDecodeError(ks, name, dt, "unrecognized data type %d", int(dt))
		}
	}
	return data, nil
}

// namedString finds the value of a KSTAT_DATA_STRING statistic. A
// null pointer is an empty string.
func namedString(p *Payload, nm []byte) (string, bool) {
	ptr := binary.LittleEndian.Uint64(nm[namedStrPtr:])
	n := uint64(binary.LittleEndian.Uint32(nm[namedStrLen:]))
	if ptr == 0 || n == 0 {
		return "", true
	}
	if ptr < p.Base {
		return "", false
	}
	off := ptr - p.Base
	if off >= uint64(len(p.Data)) || n > uint64(len(p.Data))-off {
		return "", false
	}
	// The buffer length includes the terminating null.
	return cString(p.Data[off : off+n]), true
}

var (
	ioSize   = unsafe.Sizeof(IO{})
	intrSize = unsafe.Sizeof(Intr{})
)

func decodeIO(ks *KStat, p *Payload) (Data, error) {
	if uintptr(len(p.Data)) < ioSize {
		return nil, newDecodeError(ks, "", -1, "io data is %d bytes, need %d", len(p.Data), ioSize)
	}
	var io IO
	prefix := Payload{Data: p.Data[:ioSize]}
	if err := prefix.CopyTo(&io); err != nil {
		return nil, newDecodeError(ks, "", -1, "%v", err)
	}
	return Data{
		"nread":       Num(float64(io.Nread)),
		"nwritten":    Num(float64(io.Nwritten)),
		"reads":       Num(float64(io.Reads)),
		"writes":      Num(float64(io.Writes)),
		"wtime":       Num(float64(io.Wtime)),
		"wlentime":    Num(float64(io.Wlentime)),
		"wlastupdate": Num(float64(io.Wlastupdate)),
		"rtime":       Num(float64(io.Rtime)),
		"rlentime":    Num(float64(io.Rlentime)),
		"rlastupdate": Num(float64(io.Rlastupdate)),
		"wcnt":        Num(float64(io.Wcnt)),
		"rcnt":        Num(float64(io.Rcnt)),
	}, nil
}

func decodeIntr(ks *KStat, p *Payload) (Data, error) {
	if uintptr(len(p.Data)) < intrSize {
		return nil, newDecodeError(ks, "", -1, "intr data is %d bytes, need %d", len(p.Data), intrSize)
	}
	var in Intr
	for i := range in.Intrs {
		in.Intrs[i] = binary.LittleEndian.Uint32(p.Data[i*4:])
	}
	return Data{
		"hard":             Num(float64(in.Intrs[IntrHard])),
		"soft":             Num(float64(in.Intrs[IntrSoft])),
		"watchdog":         Num(float64(in.Intrs[IntrWatchdog])),
		"spurious":         Num(float64(in.Intrs[IntrSpurious])),
		"multiple_service": Num(float64(in.Intrs[IntrMultSvc])),
	}, nil
}

func (d *Decoder) decodeRaw(ks *KStat, p *Payload) (Data, error) {
	l, ok := d.reg.Lookup(ks.Module, ks.Name)
	if !ok {
		return Data{}, nil
	}
	data, err := l.Decode(p.Data)
	if err != nil {
		return nil, newDecodeError(ks, "", -1, "%v", err)
	}
	return data, nil
}
