package proc

import "sort"
import "unsafe"

import "kthreads/src/accnt"
import "kthreads/src/arch"
import "kthreads/src/defs"
import "kthreads/src/mem"
import "kthreads/src/spinlock"
import "kthreads/src/tinfo"

/// Tstate_t is the state of a thread slot.
type Tstate_t int

const (
	UNUSED Tstate_t = iota
	USED
	RUNNABLE
	RUNNING
	SLEEPING
	ZOMBIE
)

var tstates = [...]string{
	UNUSED:   "UNUSED",
	USED:     "USED",
	RUNNABLE: "RUNNABLE",
	RUNNING:  "RUNNING",
	SLEEPING: "SLEEPING",
	ZOMBIE:   "ZOMBIE",
}

func (s Tstate_t) String() string {
	if s < 0 || int(s) >= len(tstates) {
		return "???"
	}
	return tstates[s]
}

/// Kthread_t is one thread slot of a process.
type Kthread_t struct {
	lock spinlock.Spinlock_t
	// protected by lock
	state  Tstate_t
	tid    defs.Tid_t
	wchan  Chan_t
	killed bool
	xstate int
	cpu    *Cpu_t
	entry  uintptr

	// fixed by kthreadinit
	Kstack uintptr
	idx    int
	proc   *Proc_t

	// owned by whoever holds the slot while it is not RUNNING, and by the
	// thread itself while it is
	Context   arch.Context_t
	Trapframe *defs.Tf_t
	fxpg      mem.Pa_t

	Atime    accnt.Accnt_t
	lastuser int
}

// kthreadinit prepares the slot table of p. It runs once per process table
// slot; the kernel stack of a slot never changes afterwards.
func kthreadinit(p *Proc_t, nkt int) {
	p.tidlock.Init("tid")
	p.Kthreads = make([]Kthread_t, nkt)
	for i := range p.Kthreads {
		kt := &p.Kthreads[i]
		kt.lock.Init("kthread")
		kt.state = UNUSED
		kt.tid = defs.NOTID
		kt.idx = i
		kt.proc = p
		kt.Kstack = mem.KSTACK(p.idx*nkt + i)
	}
}

/// Proc returns the thread's process.
func (kt *Kthread_t) Proc() *Proc_t {
	return kt.proc
}

/// Slot returns the thread's index in its process's slot table.
func (kt *Kthread_t) Slot() int {
	return kt.idx
}

/// Tid returns the thread's id, or NOTID for a free slot.
func (kt *Kthread_t) Tid() defs.Tid_t {
	kt.lock.Acquire()
	defer kt.lock.Release()
	return kt.tid
}

/// State returns the slot's state.
func (kt *Kthread_t) State() Tstate_t {
	kt.lock.Acquire()
	defer kt.lock.Release()
	return kt.state
}

func (kt *Kthread_t) chanof() Chan_t {
	return Chan_t(unsafe.Pointer(kt))
}

// is reports whether the slot holds thread tid.
func (kt *Kthread_t) is(tid defs.Tid_t) bool {
	kt.lock.Acquire()
	defer kt.lock.Release()
	return kt.state != UNUSED && kt.tid == tid
}

// alive reports whether the slot holds a thread that has not exited.
func (kt *Kthread_t) alive() bool {
	kt.lock.Acquire()
	defer kt.lock.Release()
	return kt.state != UNUSED && kt.state != ZOMBIE
}

func (kt *Kthread_t) note(pid defs.Pid_t) (*tinfo.Tnote_t, bool) {
	kt.lock.Acquire()
	defer kt.lock.Release()
	if kt.state == UNUSED {
		return nil, false
	}
	u, s := kt.Atime.Snapshot()
	n := &tinfo.Tnote_t{
		Pid:    pid,
		Tid:    kt.tid,
		Slot:   kt.idx,
		State:  kt.state.String(),
		Killed: kt.killed,
		Chan:   uintptr(kt.wchan),
		Kstack: kt.Kstack,
		Entry:  kt.entry,
		Userns: u,
		Sysns:  s,
	}
	if kt.proc.Text != nil {
		n.Func = kt.proc.Text.Name(kt.entry)
	}
	return n, true
}

/// Threads returns a snapshot of p's live thread slots.
func (p *Proc_t) Threads() *tinfo.Threadinfo_t {
	ti := &tinfo.Threadinfo_t{}
	ti.Init()
	pid := p.pid()
	for i := range p.Kthreads {
		if n, ok := p.Kthreads[i].note(pid); ok {
			ti.Add(n)
		}
	}
	return ti
}

func (p *Proc_t) pid() defs.Pid_t {
	p.lock.Acquire()
	defer p.lock.Release()
	return p.Pid
}

/// Snapshot returns notes for every live thread of every process.
func (pt *Ptable_t) Snapshot() []*tinfo.Tnote_t {
	procs := pt.ht.Elems()
	sort.Slice(procs, func(i, j int) bool {
		return procs[i].Key.(defs.Pid_t) < procs[j].Key.(defs.Pid_t)
	})
	var ret []*tinfo.Tnote_t
	for _, e := range procs {
		p := e.Value.(*Proc_t)
		if st, _ := p.Pstate(); st == PUNUSED {
			continue
		}
		ret = append(ret, p.Threads().Sorted()...)
	}
	return ret
}

/// Dump prints every live thread to the console.
func (pt *Ptable_t) Dump() {
	pt.Log.Printf("%d procs, pid chain %d\n", pt.Nproc(), pt.ht.Maxchain())
	pt.Log.Printf("%5s %4s %4s %-8s %-6s %s\n", "pid", "tid", "slot", "state", "killed", "func")
	for _, n := range pt.Snapshot() {
		pt.Log.Printf("%5d %4d %4d %-8s %-6v %s\n", n.Pid, n.Tid, n.Slot, n.State, n.Killed, n.Func)
	}
}
