package proc

import "fmt"

import "golang.org/x/arch/x86/x86asm"

import "kthreads/src/defs"

// usertrap is the kernel entry from user mode for trap intno.
func (kt *Kthread_t) usertrap(intno int) {
	inttime := kt.Atime.Now()
	kt.Atime.Utadd(inttime - kt.lastuser)
	kt.zombiecheck()
	if kt.Killed() {
		kt.Exit(-1)
	}

	tf := kt.Trapframe
	tf[defs.TF_TRAP] = uintptr(intno)
	switch intno {
	case defs.SYSCALL:
		kt.proc.ptable.Stats.Nsyscall.Inc()
		ret := kt.proc.ptable.syscall.Syscall(kt, tf)
		tf[defs.TF_RAX] = uintptr(ret)
	case defs.TIMER:
		kt.yield()
	case defs.DIVZERO, defs.UD, defs.GPFAULT, defs.PGFAULT:
		kt.fault(intno)
	default:
		panic(fmt.Sprintf("usertrap: unexpected trap %d", intno))
	}
	kt.usertrapret(inttime)
}

// usertrapret is the kernel exit to user mode.
func (kt *Kthread_t) usertrapret(inttime int) {
	kt.zombiecheck()
	if kt.Killed() {
		kt.Exit(-1)
	}
	kt.Atime.Finish(inttime)
	kt.lastuser = kt.Atime.Now()
}

// userrun calls the user function at the thread's pc.
func (kt *Kthread_t) userrun() {
	fn, ok := kt.proc.Text.Lookup(kt.Trapframe[defs.TF_RIP])
	if !ok {
		kt.usertrap(defs.GPFAULT)
		panic("survived bad pc")
	}
	fn(&Uctx_t{kt: kt})
}

// fault handles a fatal user trap: the process exits as signaled.
func (kt *Kthread_t) fault(intno int) {
	p := kt.proc
	p.ptable.Stats.Nfault.Inc()
	pc := kt.Trapframe[defs.TF_RIP]
	p.ptable.Log.Printf("pid %d tid %d: %s at %#x: %s\n", p.pid(), kt.Tid(),
		defs.Trapname(intno), pc, p.disasm(pc))
	kt.Exit_proc(defs.SIGNALED | defs.Mkexitsig(intno))
}

// disasm decodes the user instruction at pc.
func (p *Proc_t) disasm(pc uintptr) string {
	// longest x86 instruction; it may end before an unmapped page
	buf := make([]uint8, 15)
	n := 0
	for ; n < len(buf); n++ {
		if p.Vm.User2k(buf[n:n+1], int(pc)+n) != 0 {
			break
		}
	}
	if n == 0 {
		return "<unmapped>"
	}
	inst, err := x86asm.Decode(buf[:n], 64)
	if err != nil {
		return fmt.Sprintf("<bad instruction % x>", buf[:n])
	}
	return x86asm.GNUSyntax(inst, uint64(pc), nil)
}
