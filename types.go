//
// Initially created by
//	cgo -godefs ctypes_solaris.go
//
// Now contains edits for documentation and the cpu_stat, ncstats and
// kstat_intr structures that cgo could not convert for us.
//
// These are the illumos amd64 layouts. They are used for decoding on
// every platform (the data we decode is always an amd64 kernel's), so
// this file has no build constraints. Every field is naturally
// aligned, which keeps unsafe.Offsetof and encoding/binary agreeing
// with the C compiler.
//
//go:generate sh -c "go tool cgo -godefs gen/ctypes_solaris.go >new_types.go"

package kstat

// Named is a kstat_named_t, one statistic of a named kstat. Value
// is the raw union; how to read it depends on DataType.
type Named struct {
	Name     [31]int8
	DataType uint8
	Value    [16]byte
}

// IO represents the entire collection of KStat (disk) IO statistics
// exposed by an IoStat type KStat.
//
// Because IO is an exact copy of the C kstat_io_t structure from the
// kernel, it does not have a Snaptime or KStat field. You must save
// that information separately if you need it, perhaps by embedded the
// IO struct as an anonymous struct in an additional struct of your
// own.
type IO struct {
	Nread       uint64
	Nwritten    uint64
	Reads       uint32
	Writes      uint32
	Wtime       int64
	Wlentime    int64
	Wlastupdate int64
	Rtime       int64
	Rlentime    int64
	Rlastupdate int64
	Wcnt        uint32
	Rcnt        uint32
}

// Indexes into Intr.Intrs (KSTAT_INTR_*).
const (
	IntrHard = iota
	IntrSoft
	IntrWatchdog
	IntrSpurious
	IntrMultSvc
	numIntrs
)

// Intr is a kstat_intr_t, the data of an IntrStat kstat.
type Intr struct {
	Intrs [numIntrs]uint32
}

// Sysinfo is the data from unix:0:sysinfo, which is a sysinfo_t.
type Sysinfo struct {
	Updates uint32
	Runque  uint32
	Runocc  uint32
	Swpque  uint32
	Swpocc  uint32
	Waiting uint32
}

// Vminfo is the data from unix:0:vminfo, which is a vminfo_t
type Vminfo struct {
	Freemem uint64
	Resv    uint64
	Alloc   uint64
	Avail   uint64
	Free    uint64
	Updates uint64
}

// Var is the data from unix:0:var, which is a 'struct var'
type Var struct {
	Buf       int32
	Call      int32
	Proc      int32
	Maxupttl  int32
	Nglobpris int32
	Maxsyspri int32
	Clist     int32
	Maxup     int32
	Hbuf      int32
	Hmask     int32
	Pbuf      int32
	Sptmap    int32
	Maxpmem   int32
	Autoup    int32
	Bufhwm    int32
}

// Ncstats is the data from unix:0:ncstats, which is a 'struct
// ncstats'. It is marked obsolete in sys/dnlc.h but still exported.
type Ncstats struct {
	Hits        int32
	Misses      int32
	Enters      int32
	DblEnters   int32
	LongEnter   int32
	LongLook    int32
	MoveToFront int32
	Purges      int32
}

// MITimer is one of the round trip timers in a Mntinfo.
type MITimer struct {
	Srtt    uint32
	Deviate uint32
	Rtxcur  uint32
}

// Indexes into Mntinfo.Timers.
const (
	TimerLookup = iota
	TimerRead
	TimerWrite
)

// Mntinfo is the data from nfs:*:mntinfo, which is a 'struct
// mntinfo_kstat'.
type Mntinfo struct {
	Proto      [128]int8
	Vers       uint32
	Flags      uint32
	Secmod     uint32
	Curread    uint32
	Curwrite   uint32
	Timeo      int32
	Retrans    int32
	Acregmin   uint32
	Acregmax   uint32
	Acdirmin   uint32
	Acdirmax   uint32
	Timers     [4]MITimer
	Noresponse uint32
	Failover   uint32
	Remap      uint32
	Curserver  [257]int8
	_          [3]byte
}

// The Mntinfo type is not an exact conversion as produced by cgo;
// because the original struct mntinfo_kstat contains an embedded
// anonymously typed struct, it runs into
// https://github.com/golang/go/issues/5253. This version is manually
// produced from a cgo starting point and then verified to be the same
// size.

// ProtoString returns the NFS transport protocol name.
func (m *Mntinfo) ProtoString() string {
	return CFieldString(m.Proto[:])
}

// CurserverString returns the name of the NFS server currently in use.
func (m *Mntinfo) CurserverString() string {
	return CFieldString(m.Curserver[:])
}

// Indexes into CPUSysinfo.Cpu.
const (
	CPUIdle = iota
	CPUUser
	CPUKernel
	CPUWait
	cpuStates
)

// Indexes into CPUSysinfo.Wait.
const (
	WaitIO = iota
	WaitSwap
	WaitPIO
	waitStates
)

// CPUSysinfo is a cpu_sysinfo_t.
type CPUSysinfo struct {
	Cpu           [cpuStates]uint32
	Wait          [waitStates]uint32
	Bread         uint32
	Bwrite        uint32
	Lread         uint32
	Lwrite        uint32
	Phread        uint32
	Phwrite       uint32
	Pswitch       uint32
	Trap          uint32
	Intr          uint32
	Syscall       uint32
	Sysread       uint32
	Syswrite      uint32
	Sysfork       uint32
	Sysvfork      uint32
	Sysexec       uint32
	Readch        uint32
	Writech       uint32
	Rcvint        uint32
	Xmtint        uint32
	Mdmint        uint32
	Rawch         uint32
	Canch         uint32
	Outch         uint32
	Msg           uint32
	Sema          uint32
	Namei         uint32
	Ufsiget       uint32
	Ufsdirblk     uint32
	Ufsipage      uint32
	Ufsinopage    uint32
	Inodeovf      uint32
	Fileovf       uint32
	Procovf       uint32
	Intrthread    uint32
	Intrblk       uint32
	Idlethread    uint32
	InvSwtch      uint32
	Nthreads      uint32
	Cpumigrate    uint32
	Xcalls        uint32
	MutexAdenters uint32
	RwRdfails     uint32
	RwWrfails     uint32
	Modload       uint32
	Modunload     uint32
	Bawrite       uint32
	RwEnters      uint32
	WinUoCnt      uint32
	WinUuCnt      uint32
	WinSoCnt      uint32
	WinSuCnt      uint32
	WinSuoCnt     uint32
}

// CPUSyswait is a cpu_syswait_t.
type CPUSyswait struct {
	Iowait int32
	Swap   int32
	Physio int32
}

// CPUVminfo is a cpu_vminfo_t.
type CPUVminfo struct {
	Pgrec       uint32
	Pgfrec      uint32
	Pgin        uint32
	Pgpgin      uint32
	Pgout       uint32
	Pgpgout     uint32
	Swapin      uint32
	Pgswapin    uint32
	Swapout     uint32
	Pgswapout   uint32
	Zfod        uint32
	Dfree       uint32
	Scan        uint32
	Rev         uint32
	HatFault    uint32
	AsFault     uint32
	MajFault    uint32
	CowFault    uint32
	ProtFault   uint32
	Softlock    uint32
	KernelAsflt uint32
	Pgrrun      uint32
	Execpgin    uint32
	Execpgout   uint32
	Execfree    uint32
	Anonpgin    uint32
	Anonpgout   uint32
	Anonfree    uint32
	Fspgin      uint32
	Fspgout     uint32
	Fsfree      uint32
}

// CPUStat is what cpu_stat:*:cpu_stat* actually returns, a
// cpu_stat_t. These are an obsolete form of what is now surfaced as
// the named kstats cpu:*:sys and cpu:*:vm, but plenty of tools still
// read them.
//
// Just to be irritating, their names go cpu_stat:0:cpu_stat0,
// cpu_stat:1:cpu_stat1, etc.
type CPUStat struct {
	// cpu_stat_lock, a kmutex_t kept for compatibility.
	Lock    uint64
	Sysinfo CPUSysinfo
	Syswait CPUSyswait
	Vminfo  CPUVminfo
	_       [4]byte
}
