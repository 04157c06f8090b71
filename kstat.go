package kstat

import (
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// Type is the type of a kstat, which determines how its data is laid
// out. It corresponds to ks_type.
type Type int

// Various kstat Types. These are the KSTAT_TYPE_* values from
// sys/kstat.h.
const (
	RawStat   Type = 0
	NamedStat Type = 1
	IntrStat  Type = 2
	IoStat    Type = 3
	TimerStat Type = 4
)

func (tp Type) String() string {
	switch tp {
	case RawStat:
		return "raw"
	case NamedStat:
		return "named"
	case IntrStat:
		return "intr"
	case IoStat:
		return "io"
	case TimerStat:
		return "timer"
	default:
		return fmt.Sprintf("type-%d", int(tp))
	}
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, error) {
	for tp := RawStat; tp <= TimerStat; tp++ {
		if tp.String() == s {
			return tp, nil
		}
	}
	return 0, fmt.Errorf("unknown kstat type %q", s)
}

// NamedTypes represents the various types of named kstat elements.
type NamedTypes int

// Various NamedTypes
const (
	CharData NamedTypes = 0
	Int32    NamedTypes = 1
	Uint32   NamedTypes = 2
	Int64    NamedTypes = 3
	Uint64   NamedTypes = 4
	String   NamedTypes = 9

	// Solaris sys/kstat.h also has _FLOAT (5) and _DOUBLE (6) types,
	// but labels them as obsolete. We treat them as unrecognized.
)

func (tp NamedTypes) String() string {
	switch tp {
	case CharData:
		return "char"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Int64:
		return "int64"
	case Uint64:
		return "uint64"
	case String:
		return "string"
	default:
		return fmt.Sprintf("type-%d", int(tp))
	}
}

// ParseNamedType is the inverse of NamedTypes.String. A bare number
// is accepted too, so that types this package does not recognize can
// still be named.
func ParseNamedType(s string) (NamedTypes, error) {
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		return NamedTypes(n), nil
	}
	for _, tp := range []NamedTypes{CharData, Int32, Uint32, Int64, Uint64, String} {
		if tp.String() == s {
			return tp, nil
		}
	}
	return 0, fmt.Errorf("unknown named kstat data type %q", s)
}

// KStat is the identity and metadata of a particular
// module:instance:name kstat, without any of its data.
type KStat struct {
	Module   string `json:"module" yaml:"module"`
	Class    string `json:"class" yaml:"class"`
	Name     string `json:"name" yaml:"name"`
	Instance int    `json:"instance" yaml:"instance"`
	Type     Type   `json:"type" yaml:"type"`

	// Snaptime is the time (in nanoseconds since some arbitrary
	// point, see gethrtime(3C)) that the data was last obtained.
	// It is only meaningful after the kstat has been read.
	Snaptime int64 `json:"snaptime" yaml:"snaptime"`
	// Creation time of the kstat, on the same clock as Snaptime.
	Crtime int64 `json:"crtime" yaml:"crtime"`
}

func (k KStat) String() string {
	return fmt.Sprintf("%s:%d:%s (%s)", k.Module, k.Instance, k.Name, k.Class)
}

// Value is one decoded statistic. Numeric statistics of every width
// are widened to float64; string statistics are kept verbatim.
type Value struct {
	num   float64
	str   string
	isStr bool
}

// Num returns a numeric Value.
func Num(v float64) Value { return Value{num: v} }

// Str returns a string Value.
func Str(s string) Value { return Value{str: s, isStr: true} }

// IsString reports whether v holds a string.
func (v Value) IsString() bool { return v.isStr }

// Float returns the numeric value, or 0 for a string Value.
func (v Value) Float() float64 { return v.num }

// Text returns the string value, or "" for a numeric Value.
func (v Value) Text() string { return v.str }

// Any returns the underlying float64 or string.
func (v Value) Any() any {
	if v.isStr {
		return v.str
	}
	return v.num
}

func (v Value) String() string {
	if v.isStr {
		return v.str
	}
	return strconv.FormatFloat(v.num, 'f', -1, 64)
}

// MarshalJSON renders v as a bare JSON number or string.
func (v Value) MarshalJSON() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v.Any())
}

// UnmarshalJSON accepts a bare JSON number or string.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case float64:
		*v = Num(t)
	case string:
		*v = Str(t)
	default:
		return fmt.Errorf("kstat value must be a number or a string, got %T", raw)
	}
	return nil
}

// MarshalYAML renders v as a bare YAML scalar.
func (v Value) MarshalYAML() (any, error) {
	return v.Any(), nil
}

// UnmarshalYAML accepts a YAML scalar; anything that parses as a
// number becomes numeric.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("kstat value must be a scalar, got YAML kind %d", node.Kind)
	}
	if node.Tag != "!!str" {
		if f, err := strconv.ParseFloat(node.Value, 64); err == nil {
			*v = Num(f)
			return nil
		}
	}
	*v = Str(node.Value)
	return nil
}

// Data is the decoded data of a single kstat, by statistic name.
type Data map[string]Value

// Record is one kstat as returned by Reader.Read and Reader.Lookup:
// its metadata plus either its decoded Data or the Error that kept it
// from being read.
type Record struct {
	KStat `yaml:",inline"`

	// Data is nil when Error is set or when the kstat's type has
	// nothing we know how to decode (eg timer kstats). A raw kstat
	// without a Layout gets empty, non-nil Data.
	Data Data `json:"data,omitempty" yaml:"data,omitempty"`
	// Error is the OS error text from re-reading the kstat.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
	// NotFound is set (along with Error) when Lookup found no such
	// kstat. Only Module, Instance and Name are meaningful then.
	NotFound bool `json:"-" yaml:"-"`
}

// record is how a found Record is marshalled. Data is a pointer so
// that an empty but present Data still renders as "data: {}".
type record struct {
	KStat `yaml:",inline"`
	Data  *Data  `json:"data,omitempty" yaml:"data,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// notFound is how a Lookup miss is marshalled; it carries no metadata
// beyond what was asked for.
type notFound struct {
	Error    string `json:"error" yaml:"error"`
	Module   string `json:"module" yaml:"module"`
	Instance int    `json:"instance" yaml:"instance"`
	Name     string `json:"name" yaml:"name"`
}

func (r Record) marshalled() any {
	if r.NotFound {
		return notFound{Error: r.Error, Module: r.Module, Instance: r.Instance, Name: r.Name}
	}
	out := record{KStat: r.KStat, Error: r.Error}
	if r.Data != nil {
		out.Data = &r.Data
	}
	return out
}

// MarshalJSON renders Data whenever it is non-nil, even if empty.
func (r Record) MarshalJSON() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(r.marshalled())
}

// MarshalYAML is the YAML form of MarshalJSON.
func (r Record) MarshalYAML() (any, error) {
	return r.marshalled(), nil
}
