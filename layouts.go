package kstat

import "unsafe"

// These are the raw kstats that kstat(1) knows how to print (see
// ks_raw_lookup in cmd/stat/kstat/kstat.h), with the statistic names
// it uses. The offsets come from our Go copies of the kernel structs.
//
// Other currently mysterious kstats of KSTAT_TYPE_RAW, such as
// unix:0:kstat_headers, sockfs:0:sock_unix_list and
// unix:0:page_retire_list, have no layout and decode to empty Data.

var (
	nc  Ncstats
	va  Var
	si  Sysinfo
	vmi Vminfo
	mi  Mntinfo
	cs  CPUStat
)

// DefaultLayouts returns the raw kstat layouts used by
// DefaultRegistry. It returns a new slice each time, so callers may
// extend it to build their own Registry.
func DefaultLayouts() []Layout {
	return []Layout{
		ncstatsLayout(),
		varLayout(),
		sysinfoLayout(),
		vminfoLayout(),
		mntinfoLayout(),
		cpuStatLayout(),
	}
}

func ncstatsLayout() Layout {
	return Layout{Module: "unix", Name: "ncstats", Fields: []Field{
		Int32At("hits", unsafe.Offsetof(nc.Hits)),
		Int32At("misses", unsafe.Offsetof(nc.Misses)),
		Int32At("enters", unsafe.Offsetof(nc.Enters)),
		Int32At("dbl_enters", unsafe.Offsetof(nc.DblEnters)),
		Int32At("long_enter", unsafe.Offsetof(nc.LongEnter)),
		Int32At("long_look", unsafe.Offsetof(nc.LongLook)),
		Int32At("move_to_front", unsafe.Offsetof(nc.MoveToFront)),
		Int32At("purges", unsafe.Offsetof(nc.Purges)),
	}}
}

func varLayout() Layout {
	return Layout{Module: "unix", Name: "var", Fields: []Field{
		Int32At("v_buf", unsafe.Offsetof(va.Buf)),
		Int32At("v_call", unsafe.Offsetof(va.Call)),
		Int32At("v_proc", unsafe.Offsetof(va.Proc)),
		Int32At("v_maxupttl", unsafe.Offsetof(va.Maxupttl)),
		Int32At("v_nglobpris", unsafe.Offsetof(va.Nglobpris)),
		Int32At("v_maxsyspri", unsafe.Offsetof(va.Maxsyspri)),
		Int32At("v_clist", unsafe.Offsetof(va.Clist)),
		Int32At("v_maxup", unsafe.Offsetof(va.Maxup)),
		Int32At("v_hbuf", unsafe.Offsetof(va.Hbuf)),
		Int32At("v_hmask", unsafe.Offsetof(va.Hmask)),
		Int32At("v_pbuf", unsafe.Offsetof(va.Pbuf)),
		Int32At("v_sptmap", unsafe.Offsetof(va.Sptmap)),
		Int32At("v_maxpmem", unsafe.Offsetof(va.Maxpmem)),
		Int32At("v_autoup", unsafe.Offsetof(va.Autoup)),
		Int32At("v_bufhwm", unsafe.Offsetof(va.Bufhwm)),
	}}
}

func sysinfoLayout() Layout {
	return Layout{Module: "unix", Name: "sysinfo", Fields: []Field{
		Uint32At("updates", unsafe.Offsetof(si.Updates)),
		Uint32At("runque", unsafe.Offsetof(si.Runque)),
		Uint32At("runocc", unsafe.Offsetof(si.Runocc)),
		Uint32At("swpque", unsafe.Offsetof(si.Swpque)),
		Uint32At("swpocc", unsafe.Offsetof(si.Swpocc)),
		Uint32At("waiting", unsafe.Offsetof(si.Waiting)),
	}}
}

// vminfo_t also has an updates counter, but kstat(1) does not show it.
func vminfoLayout() Layout {
	return Layout{Module: "unix", Name: "vminfo", Fields: []Field{
		Uint64At("freemem", unsafe.Offsetof(vmi.Freemem)),
		Uint64At("swap_resv", unsafe.Offsetof(vmi.Resv)),
		Uint64At("swap_alloc", unsafe.Offsetof(vmi.Alloc)),
		Uint64At("swap_avail", unsafe.Offsetof(vmi.Avail)),
		Uint64At("swap_free", unsafe.Offsetof(vmi.Free)),
	}}
}

func mntinfoLayout() Layout {
	fields := []Field{
		CStringAt("mik_proto", unsafe.Offsetof(mi.Proto), uintptr(len(mi.Proto))),
		Uint32At("mik_vers", unsafe.Offsetof(mi.Vers)),
		Uint32At("mik_flags", unsafe.Offsetof(mi.Flags)),
		Uint32At("mik_secmod", unsafe.Offsetof(mi.Secmod)),
		Uint32At("mik_curread", unsafe.Offsetof(mi.Curread)),
		Uint32At("mik_curwrite", unsafe.Offsetof(mi.Curwrite)),
		Int32At("mik_timeo", unsafe.Offsetof(mi.Timeo)),
		Int32At("mik_retrans", unsafe.Offsetof(mi.Retrans)),
		Uint32At("mik_acregmin", unsafe.Offsetof(mi.Acregmin)),
		Uint32At("mik_acregmax", unsafe.Offsetof(mi.Acregmax)),
		Uint32At("mik_acdirmin", unsafe.Offsetof(mi.Acdirmin)),
		Uint32At("mik_acdirmax", unsafe.Offsetof(mi.Acdirmax)),
		Uint32At("mik_noresponse", unsafe.Offsetof(mi.Noresponse)),
		Uint32At("mik_failover", unsafe.Offsetof(mi.Failover)),
		Uint32At("mik_remap", unsafe.Offsetof(mi.Remap)),
		CStringAt("mik_curserver", unsafe.Offsetof(mi.Curserver), uintptr(len(mi.Curserver))),
	}
	// Only the first three of the four mik_timers are in use.
	timers := unsafe.Offsetof(mi.Timers)
	tsz := unsafe.Sizeof(mi.Timers[0])
	for i, prefix := range []string{"lookup_", "read_", "write_"} {
		base := timers + uintptr(i)*tsz
		fields = append(fields,
			Uint32At(prefix+"srtt", base+unsafe.Offsetof(mi.Timers[0].Srtt)),
			Uint32At(prefix+"deviate", base+unsafe.Offsetof(mi.Timers[0].Deviate)),
			Uint32At(prefix+"rtxcur", base+unsafe.Offsetof(mi.Timers[0].Rtxcur)),
		)
	}
	return Layout{Module: "nfs", Name: "mntinfo", Fields: fields}
}

func cpuStatLayout() Layout {
	sys := unsafe.Offsetof(cs.Sysinfo)
	wait := unsafe.Offsetof(cs.Syswait)
	vm := unsafe.Offsetof(cs.Vminfo)
	u32 := unsafe.Sizeof(uint32(0))

	s := func(name string, off uintptr) Field { return Uint32At(name, sys+off) }
	v := func(name string, off uintptr) Field { return Uint32At(name, vm+off) }

	cpu := unsafe.Offsetof(cs.Sysinfo.Cpu)
	wt := unsafe.Offsetof(cs.Sysinfo.Wait)

	return Layout{Module: "cpu_stat", Name: "*", Fields: []Field{
		s("idle", cpu+CPUIdle*u32),
		s("user", cpu+CPUUser*u32),
		s("kernel", cpu+CPUKernel*u32),
		s("wait", cpu+CPUWait*u32),
		s("wait_io", wt+WaitIO*u32),
		s("wait_swap", wt+WaitSwap*u32),
		s("wait_pio", wt+WaitPIO*u32),
		s("bread", unsafe.Offsetof(cs.Sysinfo.Bread)),
		s("bwrite", unsafe.Offsetof(cs.Sysinfo.Bwrite)),
		s("lread", unsafe.Offsetof(cs.Sysinfo.Lread)),
		s("lwrite", unsafe.Offsetof(cs.Sysinfo.Lwrite)),
		s("phread", unsafe.Offsetof(cs.Sysinfo.Phread)),
		s("phwrite", unsafe.Offsetof(cs.Sysinfo.Phwrite)),
		s("pswitch", unsafe.Offsetof(cs.Sysinfo.Pswitch)),
		s("trap", unsafe.Offsetof(cs.Sysinfo.Trap)),
		s("intr", unsafe.Offsetof(cs.Sysinfo.Intr)),
		s("syscall", unsafe.Offsetof(cs.Sysinfo.Syscall)),
		s("sysread", unsafe.Offsetof(cs.Sysinfo.Sysread)),
		s("syswrite", unsafe.Offsetof(cs.Sysinfo.Syswrite)),
		s("sysfork", unsafe.Offsetof(cs.Sysinfo.Sysfork)),
		s("sysvfork", unsafe.Offsetof(cs.Sysinfo.Sysvfork)),
		s("sysexec", unsafe.Offsetof(cs.Sysinfo.Sysexec)),
		s("readch", unsafe.Offsetof(cs.Sysinfo.Readch)),
		s("writech", unsafe.Offsetof(cs.Sysinfo.Writech)),
		s("rawch", unsafe.Offsetof(cs.Sysinfo.Rawch)),
		s("canch", unsafe.Offsetof(cs.Sysinfo.Canch)),
		s("outch", unsafe.Offsetof(cs.Sysinfo.Outch)),
		s("msg", unsafe.Offsetof(cs.Sysinfo.Msg)),
		s("sema", unsafe.Offsetof(cs.Sysinfo.Sema)),
		s("namei", unsafe.Offsetof(cs.Sysinfo.Namei)),
		s("ufsiget", unsafe.Offsetof(cs.Sysinfo.Ufsiget)),
		s("ufsdirblk", unsafe.Offsetof(cs.Sysinfo.Ufsdirblk)),
		s("ufsipage", unsafe.Offsetof(cs.Sysinfo.Ufsipage)),
		s("ufsinopage", unsafe.Offsetof(cs.Sysinfo.Ufsinopage)),
		s("inodeovf", unsafe.Offsetof(cs.Sysinfo.Inodeovf)),
		s("fileovf", unsafe.Offsetof(cs.Sysinfo.Fileovf)),
		s("procovf", unsafe.Offsetof(cs.Sysinfo.Procovf)),
		s("intrthread", unsafe.Offsetof(cs.Sysinfo.Intrthread)),
		s("intrblk", unsafe.Offsetof(cs.Sysinfo.Intrblk)),
		s("idlethread", unsafe.Offsetof(cs.Sysinfo.Idlethread)),
		s("inv_swtch", unsafe.Offsetof(cs.Sysinfo.InvSwtch)),
		s("nthreads", unsafe.Offsetof(cs.Sysinfo.Nthreads)),
		s("cpumigrate", unsafe.Offsetof(cs.Sysinfo.Cpumigrate)),
		s("xcalls", unsafe.Offsetof(cs.Sysinfo.Xcalls)),
		s("mutex_adenters", unsafe.Offsetof(cs.Sysinfo.MutexAdenters)),
		s("rw_rdfails", unsafe.Offsetof(cs.Sysinfo.RwRdfails)),
		s("rw_wrfails", unsafe.Offsetof(cs.Sysinfo.RwWrfails)),
		s("modload", unsafe.Offsetof(cs.Sysinfo.Modload)),
		s("modunload", unsafe.Offsetof(cs.Sysinfo.Modunload)),
		s("bawrite", unsafe.Offsetof(cs.Sysinfo.Bawrite)),

		Int32At("iowait", wait+unsafe.Offsetof(cs.Syswait.Iowait)),

		v("pgrec", unsafe.Offsetof(cs.Vminfo.Pgrec)),
		v("pgfrec", unsafe.Offsetof(cs.Vminfo.Pgfrec)),
		v("pgin", unsafe.Offsetof(cs.Vminfo.Pgin)),
		v("pgpgin", unsafe.Offsetof(cs.Vminfo.Pgpgin)),
		v("pgout", unsafe.Offsetof(cs.Vminfo.Pgout)),
		v("pgpgout", unsafe.Offsetof(cs.Vminfo.Pgpgout)),
		v("swapin", unsafe.Offsetof(cs.Vminfo.Swapin)),
		v("pgswapin", unsafe.Offsetof(cs.Vminfo.Pgswapin)),
		v("swapout", unsafe.Offsetof(cs.Vminfo.Swapout)),
		v("pgswapout", unsafe.Offsetof(cs.Vminfo.Pgswapout)),
		v("zfod", unsafe.Offsetof(cs.Vminfo.Zfod)),
		v("dfree", unsafe.Offsetof(cs.Vminfo.Dfree)),
		v("scan", unsafe.Offsetof(cs.Vminfo.Scan)),
		v("rev", unsafe.Offsetof(cs.Vminfo.Rev)),
		v("hat_fault", unsafe.Offsetof(cs.Vminfo.HatFault)),
		v("as_fault", unsafe.Offsetof(cs.Vminfo.AsFault)),
		v("maj_fault", unsafe.Offsetof(cs.Vminfo.MajFault)),
		v("cow_fault", unsafe.Offsetof(cs.Vminfo.CowFault)),
		v("prot_fault", unsafe.Offsetof(cs.Vminfo.ProtFault)),
		v("softlock", unsafe.Offsetof(cs.Vminfo.Softlock)),
		v("kernel_asflt", unsafe.Offsetof(cs.Vminfo.KernelAsflt)),
		v("pgrrun", unsafe.Offsetof(cs.Vminfo.Pgrrun)),
		v("execpgin", unsafe.Offsetof(cs.Vminfo.Execpgin)),
		v("execpgout", unsafe.Offsetof(cs.Vminfo.Execpgout)),
		v("execfree", unsafe.Offsetof(cs.Vminfo.Execfree)),
		v("anonpgin", unsafe.Offsetof(cs.Vminfo.Anonpgin)),
		v("anonpgout", unsafe.Offsetof(cs.Vminfo.Anonpgout)),
		v("anonfree", unsafe.Offsetof(cs.Vminfo.Anonfree)),
		v("fspgin", unsafe.Offsetof(cs.Vminfo.Fspgin)),
		v("fspgout", unsafe.Offsetof(cs.Vminfo.Fspgout)),
		v("fsfree", unsafe.Offsetof(cs.Vminfo.Fsfree)),
	}}
}
