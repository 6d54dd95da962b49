// Package uthread is a cooperative user-level thread library. Threads run
// one at a time on the caller's kernel thread and switch only in Yield and
// Exit. The highest priority RUNNABLE thread runs next; threads of equal
// priority take turns.
package uthread

import "runtime"
import "unsafe"

import "kthreads/src/arch"

const MAX_UTHREADS = 4
const STACK_SIZE = 4000

type Prio_t int

const (
	LOW Prio_t = iota
	MEDIUM
	HIGH
)

type State_t int

const (
	FREE State_t = iota
	RUNNABLE
	RUNNING
)

type Uthread_t struct {
	tid     int
	state   State_t
	prio    Prio_t
	fn      func()
	lib     *Lib_t
	Context arch.Context_t
	stack   [STACK_SIZE]uint8
}

/// Lib_t is one library instance: its threads and the context that
/// Start_all returns to.
type Lib_t struct {
	threads [MAX_UTHREADS]Uthread_t
	cur     *Uthread_t
	main    arch.Context_t
	started bool
	nexttid int
}

var ustart_pc = arch.Kfunc("uthread_start", ustart)

func ctx2ut(c *arch.Context_t) *Uthread_t {
	off := unsafe.Offsetof(Uthread_t{}.Context)
	return (*Uthread_t)(unsafe.Add(unsafe.Pointer(c), -int(off)))
}

func ustart(c *arch.Context_t) {
	t := ctx2ut(c)
	t.fn()
	t.lib.Exit()
}

/// Mklib returns an empty library instance.
func Mklib() *Lib_t {
	l := &Lib_t{nexttid: 1}
	for i := range l.threads {
		l.threads[i].lib = l
	}
	return l
}

/// Create adds a thread running fn at priority prio and returns its id, or
/// -1 if every slot is taken.
func (l *Lib_t) Create(fn func(), prio Prio_t) int {
	for i := range l.threads {
		t := &l.threads[i]
		if t.state != FREE {
			continue
		}
		t.tid = l.nexttid
		l.nexttid++
		t.fn = fn
		t.prio = prio
		t.Context.Reset()
		t.Context.Ra = ustart_pc
		t.Context.Sp = uintptr(unsafe.Pointer(&t.stack[0])) + STACK_SIZE
		t.state = RUNNABLE
		return t.tid
	}
	return -1
}

// pick returns the next thread to run: the highest priority RUNNABLE one,
// searching round robin from the slot after the current thread.
func (l *Lib_t) pick() *Uthread_t {
	start := 0
	if l.cur != nil {
		start = l.slot(l.cur) + 1
	}
	var best *Uthread_t
	for i := 0; i < MAX_UTHREADS; i++ {
		t := &l.threads[(start+i)%MAX_UTHREADS]
		if t.state != RUNNABLE {
			continue
		}
		if best == nil || t.prio > best.prio {
			best = t
		}
	}
	return best
}

func (l *Lib_t) slot(t *Uthread_t) int {
	for i := range l.threads {
		if &l.threads[i] == t {
			return i
		}
	}
	panic("not a uthread")
}

/// Start_all runs the threads until all of them have exited. It returns
/// -1 if called more than once.
func (l *Lib_t) Start_all() int {
	if l.started {
		return -1
	}
	l.started = true
	t := l.pick()
	if t == nil {
		return 0
	}
	l.cur = t
	t.state = RUNNING
	if !arch.Swtch(&l.main, &t.Context) {
		panic("uthread: main context reset")
	}
	l.cur = nil
	return 0
}

/// Yield lets another thread of equal or higher priority run.
func (l *Lib_t) Yield() {
	cur := l.cur
	if cur == nil {
		return
	}
	cur.state = RUNNABLE
	next := l.pick()
	if next == cur {
		cur.state = RUNNING
		return
	}
	l.cur = next
	next.state = RUNNING
	if !arch.Swtch(&cur.Context, &next.Context) {
		panic("uthread: context reset")
	}
}

/// Exit ends the calling thread.
func (l *Lib_t) Exit() {
	cur := l.cur
	if cur == nil {
		panic("uthread: exit outside a thread")
	}
	cur.state = FREE
	next := l.pick()
	if next == nil {
		arch.Swtch_exit(&cur.Context, &l.main)
	} else {
		l.cur = next
		next.state = RUNNING
		arch.Swtch_exit(&cur.Context, &next.Context)
	}
	runtime.Goexit()
}

/// Set_priority changes the calling thread's priority and returns the old
/// one.
func (l *Lib_t) Set_priority(prio Prio_t) Prio_t {
	if l.cur == nil {
		panic("uthread: no current thread")
	}
	old := l.cur.prio
	l.cur.prio = prio
	return old
}

/// Get_priority returns the calling thread's priority.
func (l *Lib_t) Get_priority() Prio_t {
	if l.cur == nil {
		panic("uthread: no current thread")
	}
	return l.cur.prio
}

/// Self returns the calling thread's id, or -1 outside a thread.
func (l *Lib_t) Self() int {
	if l.cur == nil {
		return -1
	}
	return l.cur.tid
}
