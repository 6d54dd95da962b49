package proc

import "unsafe"

import "kthreads/src/arch"
import "kthreads/src/defs"

var forkret_pc = arch.Kfunc("forkret", forkret)
var kthreadstart_pc = arch.Kfunc("kthreadstart", kthreadstart)

// ctx2kt returns the thread whose saved context is c.
func ctx2kt(c *arch.Context_t) *Kthread_t {
	off := unsafe.Offsetof(Kthread_t{}.Context)
	return (*Kthread_t)(unsafe.Add(unsafe.Pointer(c), -int(off)))
}

// allocthread claims the first UNUSED slot of p for a thread whose kernel
// side starts at the kernel text entry. It returns with the slot lock held
// and the slot USED.
//
//kt:handoff
func (p *Proc_t) allocthread(entry uintptr) (*Kthread_t, defs.Err_t) {
	pt := p.ptable
	for i := range p.Kthreads {
		kt := &p.Kthreads[i]
		kt.lock.Acquire()
		if kt.state != UNUSED {
			kt.lock.Release()
			continue
		}
		if !pt.Lim.Kthreads.Take() {
			kt.lock.Release()
			pt.Stats.Nallocfail.Inc()
			return nil, -defs.EAGAIN
		}
		kt.tid = p.alloctid()
		kt.state = USED
		if err := kt.bind(); err != 0 {
			kt.rollback()
			pt.Stats.Nallocfail.Inc()
			return nil, err
		}
		kt.Context.Reset()
		kt.Context.Ra = entry
		kt.Context.Sp = kt.Kstacktop()
		kt.Atime.Reset()
		pt.Stats.Nalloc.Inc()
		return kt, 0
	}
	pt.Stats.Nallocfail.Inc()
	return nil, -defs.EAGAIN
}

// freethread returns a USED or ZOMBIE slot to UNUSED. The slot lock must be
// held and no CPU may still be running on the slot.
func (kt *Kthread_t) freethread() {
	if !kt.lock.Holding() {
		panic("freethread: lock not held")
	}
	if kt.state != USED && kt.state != ZOMBIE {
		panic("freethread: " + kt.state.String())
	}
	if kt.cpu != nil {
		panic("freethread: still on a cpu")
	}
	kt.tid = defs.NOTID
	kt.wchan = nil
	kt.killed = false
	kt.xstate = 0
	kt.entry = 0
	kt.unbind()
	kt.Context.Reset()
	kt.state = UNUSED
	kt.proc.ptable.Lim.Kthreads.Give()
	kt.proc.ptable.Stats.Nfree.Inc()
}

// rollback frees a slot claimed by allocthread and releases its lock. A
// joiner that looked the slot up by its fresh id sleeps on the slot, so it
// is woken to find the id gone.
func (kt *Kthread_t) rollback() {
	c := kt.chanof()
	kt.freethread()
	kt.lock.Release()
	p := kt.proc
	p.Waitlock.Acquire()
	defer p.Waitlock.Release()
	p.wakeup(c, nil)
}

// forkret is where a process's primary thread first runs. Returning from
// the entry function exits the process.
func forkret(c *arch.Context_t) {
	kt := ctx2kt(c)
	// handed over by Dispatch
	kt.lock.Release()
	kt.usertrapret(kt.Atime.Now())
	kt.userrun()
	kt.Exit_proc(0)
}

// kthreadstart is where a created thread first runs. Returning from the
// start routine exits the thread.
func kthreadstart(c *arch.Context_t) {
	kt := ctx2kt(c)
	kt.lock.Release()
	kt.usertrapret(kt.Atime.Now())
	kt.userrun()
	kt.Exit(0)
}

/// Kthread_create starts a thread in the caller's process that runs the
/// user function at start on the stack [stack, stack+stacksz). It returns
/// the new thread's id.
func (me *Kthread_t) Kthread_create(start, stack uintptr, stacksz int) (defs.Tid_t, defs.Err_t) {
	p := me.proc
	if stacksz <= 0 || stacksz > p.ptable.Lim.Maxstack {
		return defs.NOTID, -defs.EINVAL
	}
	kt, err := p.allocthread(kthreadstart_pc)
	if err != 0 {
		return defs.NOTID, err
	}
	// the creator's trap frame is only written by the creator
	*kt.Trapframe = *me.Trapframe
	kt.Trapframe[defs.TF_RIP] = start
	kt.Trapframe[defs.TF_RSP] = stack + uintptr(stacksz)
	kt.Trapframe[defs.TF_RAX] = 0
	kt.entry = start
	if p.dying.Load() {
		kt.rollback()
		return defs.NOTID, -defs.EAGAIN
	}
	tid := kt.tid
	kt.state = RUNNABLE
	kt.lock.Release()
	p.ptable.kick()
	return tid, 0
}
