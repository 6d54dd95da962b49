// Package proc implements processes and their kernel threads: the
// per-process thread slot table, thread ids, trap frame binding, thread
// allocation, and the exit, kill, sleep and join protocol.
//
// Lock order: Proc_t.Waitlock, then Ptable_t.Tickslock, then Proc_t.lock,
// then a Kthread_t slot lock. Proc_t.tidlock and the address space lock
// are leaves. At most one slot lock is held at a time.
package proc

import "sync/atomic"
import "unsafe"

import "kthreads/src/accnt"
import "kthreads/src/arch"
import "kthreads/src/defs"
import "kthreads/src/hashtable"
import "kthreads/src/klog"
import "kthreads/src/limits"
import "kthreads/src/mem"
import "kthreads/src/spinlock"
import "kthreads/src/stats"
import "kthreads/src/ustr"
import "kthreads/src/vm"

/// Chan_t identifies what a sleeping thread waits for.
type Chan_t unsafe.Pointer

/// Syscall_i dispatches a system call for the calling thread. The call
/// number and arguments are in tf; the result is returned.
type Syscall_i interface {
	Syscall(kt *Kthread_t, tf *defs.Tf_t) int
}

/// Sched_i is told whenever a thread becomes RUNNABLE.
type Sched_i interface {
	Kick()
}

/// Pstate_t is the state of a process table slot.
type Pstate_t int

const (
	PUNUSED Pstate_t = iota
	PUSED
	PZOMBIE
)

/// Cpu_t is a CPU's scheduler context.
type Cpu_t struct {
	Id      int
	Context arch.Context_t
	// only touched by the CPU's own scheduler loop
	kt *Kthread_t
}

/// Mkcpu returns CPU id.
func Mkcpu(id int) *Cpu_t {
	return &Cpu_t{Id: id}
}

/// Running returns the thread the CPU is running, if any. It must only be
/// called from the CPU's scheduler loop.
func (c *Cpu_t) Running() *Kthread_t {
	return c.kt
}

/// Proc_t is a process: an address space and its thread slots.
type Proc_t struct {
	lock spinlock.Spinlock_t
	// protected by lock
	state   Pstate_t
	Pid     defs.Pid_t
	killed  bool
	xstate  int
	done    chan struct{}
	reaping bool
	// heap break
	sz int

	// set once the process starts exiting; readable without lock
	dying atomic.Bool

	Name   ustr.Ustr
	Text   *Text_t
	idx    int
	ptable *Ptable_t

	tidlock spinlock.Spinlock_t
	nexttid defs.Tid_t

	// the thread slot table; fixed for the life of the process table
	Kthreads []Kthread_t
	// trap frame region, one Tf_t per slot
	p_tfs mem.Pa_t

	// serializes thread exit with join
	Waitlock spinlock.Spinlock_t
	// signalled when a zombie leaves its cpu
	offcpu chan struct{}

	Vm    vm.Vm_t
	Atime accnt.Accnt_t
}

/// Pstats_t counts process table events.
type Pstats_t struct {
	Nalloc     stats.Counter_t
	Nallocfail stats.Counter_t
	Nfree      stats.Counter_t
	Njoin      stats.Counter_t
	Nkill      stats.Counter_t
	Nwakeup    stats.Counter_t
	Nsleep     stats.Counter_t
	Nswtch     stats.Counter_t
	Nsyscall   stats.Counter_t
	Nfault     stats.Counter_t
	Nproc      stats.Counter_t
	Joinwait   stats.Cycles_t
}

/// Ptable_t is the process table.
type Ptable_t struct {
	Procs []Proc_t
	ht    *hashtable.Hashtable_t

	pidlock spinlock.Spinlock_t
	nextpid defs.Pid_t

	Lim   *limits.Syslimit_t
	Phys  *mem.Physmem_t
	Log   *klog.Klog_t
	Stats Pstats_t

	syscall Syscall_i
	sched   Sched_i

	Tickslock spinlock.Spinlock_t
	// protected by Tickslock
	ticks int
}

/// Mkptable builds a process table sized by lim. Every process slot gets
/// its thread slot table here, once.
func Mkptable(lim *limits.Syslimit_t, phys *mem.Physmem_t, log *klog.Klog_t) *Ptable_t {
	pt := &Ptable_t{Lim: lim, Phys: phys, Log: log}
	pt.ht = hashtable.MkHash(lim.Nproc)
	pt.pidlock.Init("pid")
	pt.Tickslock.Init("time")
	pt.nextpid = 1
	pt.Procs = make([]Proc_t, lim.Nproc)
	for i := range pt.Procs {
		p := &pt.Procs[i]
		p.lock.Init("proc")
		p.Waitlock.Init("wait_lock")
		p.idx = i
		p.ptable = pt
		p.offcpu = make(chan struct{}, 1)
		kthreadinit(p, lim.Nkt)
	}
	return pt
}

/// Install connects the system call table and the scheduler. It must be
/// called before any process is created.
func (pt *Ptable_t) Install(sc Syscall_i, s Sched_i) {
	pt.syscall = sc
	pt.sched = s
}

func (pt *Ptable_t) kick() {
	if pt.sched != nil {
		pt.sched.Kick()
	}
}

func (pt *Ptable_t) allocpid() defs.Pid_t {
	pt.pidlock.Acquire()
	defer pt.pidlock.Release()
	pid := pt.nextpid
	pt.nextpid++
	return pid
}

/// Lookup returns the process with id pid.
func (pt *Ptable_t) Lookup(pid defs.Pid_t) (*Proc_t, bool) {
	v, ok := pt.ht.Get(pid)
	if !ok {
		return nil, false
	}
	return v.(*Proc_t), true
}

/// Nproc returns the number of processes in the table.
func (pt *Ptable_t) Nproc() int {
	return pt.ht.Size()
}

/// Tickchan is the channel sleeping threads wait on for the next tick.
func (pt *Ptable_t) Tickchan() Chan_t {
	return Chan_t(unsafe.Pointer(&pt.ticks))
}

/// Tick advances the clock and wakes every thread sleeping on it.
func (pt *Ptable_t) Tick() {
	pt.Tickslock.Acquire()
	defer pt.Tickslock.Release()
	pt.ticks++
	pt.Wakeup(pt.Tickchan())
}

/// Ticks returns the tick count. Tickslock must be held.
func (pt *Ptable_t) Ticks() int {
	if !pt.Tickslock.Holding() {
		panic("ticks without tickslock")
	}
	return pt.ticks
}

/// Uptime returns the tick count.
func (pt *Ptable_t) Uptime() int {
	pt.Tickslock.Acquire()
	defer pt.Tickslock.Release()
	return pt.ticks
}

/// Wakeup makes every thread in every process sleeping on c RUNNABLE.
func (pt *Ptable_t) Wakeup(c Chan_t) {
	pt.ht.Iter(func(_, v interface{}) bool {
		v.(*Proc_t).wakeup(c, nil)
		return false
	})
}

/// Kill marks every thread of process pid killed and wakes the ones that
/// sleep.
func (pt *Ptable_t) Kill(pid defs.Pid_t) defs.Err_t {
	p, ok := pt.Lookup(pid)
	if !ok {
		return -defs.ESRCH
	}
	return p.kill(pid)
}

func (p *Proc_t) kill(pid defs.Pid_t) defs.Err_t {
	p.lock.Acquire()
	defer p.lock.Release()
	if p.state != PUSED || p.Pid != pid {
		return -defs.ESRCH
	}
	p.killed = true
	for i := range p.Kthreads {
		p.Kthreads[i].killwake()
	}
	p.ptable.Stats.Nkill.Inc()
	p.ptable.kick()
	return 0
}

/// Killed reports whether the process has been killed.
func (p *Proc_t) Killed() bool {
	p.lock.Acquire()
	defer p.lock.Release()
	return p.killed
}

/// Pstate returns the process state and, for PZOMBIE, the exit status.
func (p *Proc_t) Pstate() (Pstate_t, int) {
	p.lock.Acquire()
	defer p.lock.Release()
	return p.state, p.xstate
}

/// Growproc moves the heap break by n bytes and returns the old break.
func (p *Proc_t) Growproc(n int) (int, defs.Err_t) {
	p.lock.Acquire()
	defer p.lock.Release()
	old := p.sz
	nsz := old + n
	if nsz < int(mem.USERHEAP) || nsz > int(mem.USTACKTOP)-p.ptable.Lim.Ustackpages*mem.PGSIZE {
		return 0, -defs.ENOMEM
	}
	switch {
	case n > 0:
		if err := p.Vm.Mmap(old, n, mem.PTE_W); err != 0 {
			return 0, err
		}
	case n < 0:
		lo := roundpg(nsz)
		if hi := roundpg(old); hi > lo {
			p.Vm.Munmap(lo, hi-lo)
		}
	}
	p.sz = nsz
	return old, 0
}

func roundpg(v int) int {
	return (v + mem.PGSIZE - 1) &^ (mem.PGSIZE - 1)
}
