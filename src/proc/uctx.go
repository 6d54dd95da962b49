package proc

import "kthreads/src/defs"

/// Uctx_t is a user function's view of its thread: registers, memory and
/// the trap instructions.
type Uctx_t struct {
	kt *Kthread_t
}

/// Syscall traps into the kernel with system call no and returns its
/// result. Calls that end the thread do not return.
func (u *Uctx_t) Syscall(no int, args ...uintptr) int {
	if len(args) > len(defs.Sysargs) {
		panic("too many syscall args")
	}
	tf := u.kt.Trapframe
	tf[defs.TF_RAX] = uintptr(no)
	for i, a := range args {
		tf[defs.Sysargs[i]] = a
	}
	u.kt.usertrap(defs.SYSCALL)
	return int(tf[defs.TF_RAX])
}

/// Trap raises trap intno at the current pc.
func (u *Uctx_t) Trap(intno int) {
	u.kt.usertrap(intno)
}

/// Fault raises trap intno as if the instruction at pc caused it.
func (u *Uctx_t) Fault(intno int, pc uintptr) {
	u.kt.Trapframe[defs.TF_RIP] = pc
	u.kt.usertrap(intno)
}

/// Yield is a timer interrupt: the thread gives up its CPU for a round.
func (u *Uctx_t) Yield() {
	u.kt.usertrap(defs.TIMER)
}

/// Read loads n bytes of user memory at uva. An unmapped address is a page
/// fault.
func (u *Uctx_t) Read(uva uintptr, n int) []uint8 {
	buf := make([]uint8, n)
	ub := u.kt.proc.Vm.Mkuserbuf(int(uva), n)
	if c, err := ub.Uioread(buf); err != 0 || c != n {
		u.Trap(defs.PGFAULT)
	}
	return buf
}

/// Write stores b to user memory at uva. An unmapped or read-only address
/// is a page fault.
func (u *Uctx_t) Write(uva uintptr, b []uint8) {
	if err := u.kt.proc.Vm.K2user(b, int(uva)); err != 0 {
		u.Trap(defs.PGFAULT)
	}
}

/// Sp returns the user stack pointer the thread started with.
func (u *Uctx_t) Sp() uintptr {
	return u.kt.Trapframe[defs.TF_RSP]
}

/// Pc returns the entry of the running user function.
func (u *Uctx_t) Pc() uintptr {
	return u.kt.Trapframe[defs.TF_RIP]
}

/// Sym returns the user address of the program's function called name.
func (u *Uctx_t) Sym(name string) uintptr {
	pc, ok := u.kt.proc.Text.Sym(name)
	if !ok {
		panic("no symbol " + name)
	}
	return pc
}
