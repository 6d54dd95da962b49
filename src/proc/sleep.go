package proc

import "runtime"

import "kthreads/src/arch"
import "kthreads/src/spinlock"

// sched switches from kt to its CPU's scheduler. The slot lock must be held
// and kt must have left RUNNING. It returns false if the slot was reclaimed
// while kt was switched out; the caller must then end its goroutine.
func (kt *Kthread_t) sched() bool {
	if !kt.lock.Holding() {
		panic("sched: lock not held")
	}
	if kt.state == RUNNING {
		panic("sched: running")
	}
	if kt.cpu == nil {
		panic("sched: no cpu")
	}
	kt.proc.ptable.Stats.Nswtch.Inc()
	return arch.Swtch(&kt.Context, &kt.cpu.Context)
}

// sched_exit leaves a ZOMBIE thread for good. The slot lock is handed to
// the scheduler.
func (kt *Kthread_t) sched_exit() {
	if !kt.lock.Holding() || kt.state != ZOMBIE {
		panic("sched_exit")
	}
	arch.Swtch_exit(&kt.Context, &kt.cpu.Context)
	runtime.Goexit()
}

// zombiecheck ends the calling thread if a process exit made it a ZOMBIE.
//
//kt:handoff
func (kt *Kthread_t) zombiecheck() {
	kt.lock.Acquire()
	if kt.state == ZOMBIE {
		kt.sched_exit()
	}
	kt.lock.Release()
}

// yield gives up the CPU for one round.
//
//kt:handoff
func (kt *Kthread_t) yield() {
	kt.lock.Acquire()
	if kt.state == ZOMBIE {
		kt.sched_exit()
	}
	kt.state = RUNNABLE
	kt.proc.ptable.kick()
	if !kt.sched() {
		runtime.Goexit()
	}
	kt.lock.Release()
}

/// Dispatch runs kt on c if it is RUNNABLE, and returns once kt switches
/// back to c. It reports whether kt ran. The slot lock is handed to kt for
/// the switch and handed back by kt when it switches out.
///
//kt:handoff
func (kt *Kthread_t) Dispatch(c *Cpu_t) bool {
	kt.lock.Acquire()
	if kt.state != RUNNABLE {
		kt.lock.Release()
		return false
	}
	kt.state = RUNNING
	kt.cpu = c
	c.kt = kt
	if !arch.Swtch(&c.Context, &kt.Context) {
		panic("cpu context reset")
	}
	c.kt = nil
	kt.cpu = nil
	if kt.state == ZOMBIE {
		kt.proc.zombieoff()
	}
	kt.lock.Release()
	return true
}

// zombieoff tells a reaper waiting in reap that a zombie left its cpu.
func (p *Proc_t) zombieoff() {
	select {
	case p.offcpu <- struct{}{}:
	default:
	}
}

/// Sleep atomically releases lk and sleeps on c. lk is held again when
/// Sleep returns. If the process exits while the thread sleeps the thread
/// ends inside Sleep, still holding lk, so callers release lk with defer.
///
//kt:handoff
func (kt *Kthread_t) Sleep(c Chan_t, lk *spinlock.Spinlock_t) {
	// with the slot lock held no wakeup can be lost between releasing lk
	// and the switch
	kt.lock.Acquire()
	if kt.state == ZOMBIE {
		kt.sched_exit()
	}
	lk.Release()
	kt.wchan = c
	kt.state = SLEEPING
	kt.proc.ptable.Stats.Nsleep.Inc()
	st := kt.Atime.Now()
	if !kt.sched() {
		lk.Acquire()
		runtime.Goexit()
	}
	kt.wchan = nil
	kt.lock.Release()
	kt.Atime.Sleep_time(st)
	lk.Acquire()
}

// wake makes kt RUNNABLE if it sleeps on c.
func (kt *Kthread_t) wake(c Chan_t) bool {
	kt.lock.Acquire()
	defer kt.lock.Release()
	if kt.state == SLEEPING && kt.wchan == c {
		kt.state = RUNNABLE
		return true
	}
	return false
}

// wakeup wakes every thread of p sleeping on c except self.
func (p *Proc_t) wakeup(c Chan_t, self *Kthread_t) int {
	n := 0
	for i := range p.Kthreads {
		kt := &p.Kthreads[i]
		if kt == self {
			continue
		}
		if kt.wake(c) {
			n++
		}
	}
	if n > 0 {
		p.ptable.Stats.Nwakeup.Inc()
		p.ptable.kick()
	}
	return n
}

/// Wakeup wakes every other thread of the caller's process sleeping on c
/// and returns how many it woke.
func (kt *Kthread_t) Wakeup(c Chan_t) int {
	return kt.proc.wakeup(c, kt)
}
