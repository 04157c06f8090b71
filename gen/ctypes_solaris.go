//
// This is the input for the kernel struct copies in ../types.go. It
// is processed with 'go tool cgo -godefs' on an illumos amd64 machine
// and the result is then hand edited (names, docs, and the types cgo
// can't convert; see below).
//
// According to a go-nuts mailing list thread, eg
//	http://grokbase.com/t/gg/golang-nuts/12cemmrhk5/go-nuts-cgo-cast-c-struct-to-go-struct
// these structures are directly compatible with the C structures.
//
//go:build ignore

package kstat

// #cgo LDFLAGS: -lkstat
//
// #include <kstat.h>
// #include <sys/kstat.h>
// #include <sys/sysinfo.h>
// #include <sys/var.h>
// #include <sys/dnlc.h>
// #include <nfs/nfs_clnt.h>
import "C"

// One named statistic (KSTAT_TYPE_NAMED has ks_ndata of these).
type Named C.kstat_named_t

const Sizeof_Named = C.sizeof_kstat_named_t

// Disk IO in general.
type IO C.kstat_io_t

const Sizeof_IO = C.sizeof_struct_kstat_io

// Interrupt counts (KSTAT_TYPE_INTR).
type Intr C.kstat_intr_t

const Sizeof_Intr = C.sizeof_kstat_intr_t

// unix:* stats:

// unix:0:sysinfo
type Sysinfo C.sysinfo_t

const Sizeof_SI = C.sizeof_sysinfo_t

// unix:0:vminfo
type Vminfo C.vminfo_t

const Sizeof_VI = C.sizeof_vminfo_t

// unix:0:var
type Var C.struct_var

const Sizeof_Var = C.sizeof_struct_var

// unix:0:ncstats
type Ncstats C.struct_ncstats

const Sizeof_NC = C.sizeof_struct_ncstats

// cpu_stat*:*:cpu_stat*
// One copy exists for each different CPU in the system.
type CPUSysinfo C.cpu_sysinfo_t
type CPUSyswait C.cpu_syswait_t
type CPUVminfo C.cpu_vminfo_t

// CPUStat embeds all three of the above structures. cgo renders the
// kmutex_t at its start as an opaque [8]byte; types.go calls it Lock.
type CPUStat C.cpu_stat_t

const Sizeof_CPU = C.sizeof_cpu_stat_t

// ----

// Types that don't get converted (well) by cgo -godefs yet.
// Probably https://github.com/golang/go/issues/5253
//
// struct mntinfo_kstat's mik_timers is an anonymous struct; there's
// no way to predeclare a Go struct for it, so types.go has a manually
// produced Mntinfo with an MITimer type. We only use this for its size.
type KMntinfo C.struct_mntinfo_kstat

const Sizeof_KM = C.sizeof_struct_mntinfo_kstat

// Although kstat defines KSTAT_TYPE_TIMER, there is nothing in the
// current illumos kernel source that actually sets up Timer kstats.
// Accordingly we decline to decode it.
//
// type Timer C.kstat_timer_t
