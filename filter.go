package kstat

import "fmt"

// AnyInstance is the Filter.Instance (and Lookup instance) value that
// matches every instance.
const AnyInstance = -1

// Filter selects which kstats a Reader works with. Empty strings and
// an Instance of AnyInstance are unconstrained; everything else must
// match exactly. All fields must match.
//
// Note that the zero Filter selects only instance 0; use NewFilter
// to start from a filter that selects everything.
type Filter struct {
	Module   string `json:"module,omitempty" yaml:"module,omitempty"`
	Class    string `json:"class,omitempty" yaml:"class,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Instance int    `json:"instance" yaml:"instance"`
}

// NewFilter returns a Filter that matches every kstat.
func NewFilter() Filter {
	return Filter{Instance: AnyInstance}
}

// Matches reports whether ks is selected by f.
func (f Filter) Matches(ks KStat) bool {
	if f.Module != "" && f.Module != ks.Module {
		return false
	}
	if f.Class != "" && f.Class != ks.Class {
		return false
	}
	if f.Name != "" && f.Name != ks.Name {
		return false
	}
	if f.Instance != AnyInstance && f.Instance != ks.Instance {
		return false
	}
	return true
}

func (f Filter) String() string {
	inst := "*"
	if f.Instance != AnyInstance {
		inst = fmt.Sprint(f.Instance)
	}
	return fmt.Sprintf("%s:%s:%s (%s)", orStar(f.Module), inst, orStar(f.Name), orStar(f.Class))
}

func orStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
