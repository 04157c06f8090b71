package kstattest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	kstat "github.com/illumos/go-kstat"
	"gopkg.in/yaml.v3"
)

// FixtureStat is one kstat in a YAML fixture. Exactly one of Named,
// IO, Intr or Raw should be given, matching Type. For example:
//
//	- module: unix
//	  instance: 0
//	  name: system_misc
//	  class: misc
//	  type: named
//	  named:
//	    - {name: ncpus, type: uint32, value: 4}
//	    - {name: nodename, type: string, value: gozer}
//	- module: cpu_stat
//	  instance: 0
//	  name: cpu_stat0
//	  class: misc
//	  type: raw
//	  raw: "0100000002000000"
type FixtureStat struct {
	Module   string `yaml:"module"`
	Class    string `yaml:"class"`
	Name     string `yaml:"name"`
	Instance int    `yaml:"instance"`
	Type     string `yaml:"type"`

	Named []FixtureNamed `yaml:"named,omitempty"`
	// IO and Intr are keyed by the names kstat.Decoder produces.
	IO   map[string]int64  `yaml:"io,omitempty"`
	Intr map[string]uint32 `yaml:"intr,omitempty"`
	// Raw is the hex encoded ks_data.
	Raw string `yaml:"raw,omitempty"`

	// ReadError, if set, makes every read of the kstat fail.
	ReadError string `yaml:"read_error,omitempty"`
}

// FixtureNamed is one statistic of a named fixture kstat. Type is a
// kstat.NamedTypes name ("uint64", "string", ...) or number.
type FixtureNamed struct {
	Name  string    `yaml:"name"`
	Type  string    `yaml:"type"`
	Value yaml.Node `yaml:"value"`
}

// LoadFixtureFile is LoadFixture on the named file.
func LoadFixtureFile(path string) (*Chain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()
	return LoadFixture(f)
}

// LoadFixture builds a Chain from a YAML list of FixtureStats.
func LoadFixture(r io.Reader) (*Chain, error) {
	var stats []FixtureStat
	if err := yaml.NewDecoder(r).Decode(&stats); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	c := New()
	for i := range stats {
		fs := &stats[i]
		ks, p, err := fs.build()
		if err != nil {
			return nil, fmt.Errorf("fixture kstat %s:%d:%s: %w", fs.Module, fs.Instance, fs.Name, err)
		}
		c.Add(ks, p)
		if fs.ReadError != "" {
			_ = c.FailRead(ks.Module, ks.Instance, ks.Name, errors.New(fs.ReadError))
		}
	}
	return c, nil
}

func (fs *FixtureStat) build() (kstat.KStat, *kstat.Payload, error) {
	ks := kstat.KStat{Module: fs.Module, Class: fs.Class, Name: fs.Name, Instance: fs.Instance}
	tp, err := kstat.ParseType(fs.Type)
	if err != nil {
		return ks, nil, err
	}
	ks.Type = tp

	switch tp {
	case kstat.NamedStat:
		vals := make([]NamedValue, 0, len(fs.Named))
		for _, fn := range fs.Named {
			v, err := fn.value()
			if err != nil {
				return ks, nil, err
			}
			vals = append(vals, v)
		}
		return ks, Named(vals...), nil
	case kstat.IoStat:
		st, err := ioFromMap(fs.IO)
		return ks, IO(st), err
	case kstat.IntrStat:
		for k := range fs.Intr {
			if _, ok := intrIndex[k]; !ok {
				return ks, nil, fmt.Errorf("unknown intr counter %q", k)
			}
		}
		return ks, Intr(fs.Intr["hard"], fs.Intr["soft"], fs.Intr["watchdog"],
			fs.Intr["spurious"], fs.Intr["multiple_service"]), nil
	case kstat.RawStat:
		b, err := hex.DecodeString(strings.Join(strings.Fields(fs.Raw), ""))
		if err != nil {
			return ks, nil, fmt.Errorf("bad raw data: %w", err)
		}
		return ks, RawBytes(b), nil
	default:
		return ks, nil, nil
	}
}

var intrIndex = map[string]int{
	"hard":             kstat.IntrHard,
	"soft":             kstat.IntrSoft,
	"watchdog":         kstat.IntrWatchdog,
	"spurious":         kstat.IntrSpurious,
	"multiple_service": kstat.IntrMultSvc,
}

func ioFromMap(m map[string]int64) (kstat.IO, error) {
	var st kstat.IO
	for k, v := range m {
		switch k {
		case "nread":
			st.Nread = uint64(v)
		case "nwritten":
			st.Nwritten = uint64(v)
		case "reads":
			st.Reads = uint32(v)
		case "writes":
			st.Writes = uint32(v)
		case "wtime":
			st.Wtime = v
		case "wlentime":
			st.Wlentime = v
		case "wlastupdate":
			st.Wlastupdate = v
		case "rtime":
			st.Rtime = v
		case "rlentime":
			st.Rlentime = v
		case "rlastupdate":
			st.Rlastupdate = v
		case "wcnt":
			st.Wcnt = uint32(v)
		case "rcnt":
			st.Rcnt = uint32(v)
		default:
			return st, fmt.Errorf("unknown io statistic %q", k)
		}
	}
	return st, nil
}

func (fn *FixtureNamed) value() (NamedValue, error) {
	dt, err := kstat.ParseNamedType(fn.Type)
	if err != nil {
		return NamedValue{}, err
	}
	s := fn.Value.Value
	bad := func(err error) (NamedValue, error) {
		return NamedValue{}, fmt.Errorf("statistic %q: bad %s value %q: %w", fn.Name, dt, s, err)
	}
	switch dt {
	case kstat.String:
		return String(fn.Name, s), nil
	case kstat.CharData:
		n, err := strconv.ParseInt(s, 0, 8)
		if err != nil {
			return bad(err)
		}
		return Char(fn.Name, int8(n)), nil
	case kstat.Int32:
		n, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return bad(err)
		}
		return Int32(fn.Name, int32(n)), nil
	case kstat.Int64:
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return bad(err)
		}
		return Int64(fn.Name, n), nil
	case kstat.Uint32:
		n, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return bad(err)
		}
		return Uint32(fn.Name, uint32(n)), nil
	default:
		// Uint64 and anything unrecognized carry raw bits.
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil && s != "" {
			return bad(err)
		}
		return Typed(fn.Name, dt, n), nil
	}
}
