package proc

import "kthreads/src/defs"

// kill marks thread tid killed and wakes it if it sleeps.
func (kt *Kthread_t) kill(tid defs.Tid_t) bool {
	kt.lock.Acquire()
	defer kt.lock.Release()
	if kt.tid != tid || kt.state == UNUSED || kt.state == ZOMBIE {
		return false
	}
	kt.killed = true
	if kt.state == SLEEPING {
		kt.state = RUNNABLE
	}
	return true
}

// killwake marks any live thread in the slot killed and wakes it.
func (kt *Kthread_t) killwake() {
	kt.lock.Acquire()
	defer kt.lock.Release()
	switch kt.state {
	case UNUSED, ZOMBIE:
		return
	case SLEEPING:
		kt.state = RUNNABLE
	}
	kt.killed = true
}

/// Kthread_kill marks thread tid of the caller's process killed. A
/// sleeping target is made RUNNABLE so that it notices. The target exits
/// the next time it crosses the kernel boundary.
func (me *Kthread_t) Kthread_kill(tid defs.Tid_t) defs.Err_t {
	p := me.proc
	for i := range p.Kthreads {
		if p.Kthreads[i].kill(tid) {
			p.ptable.Stats.Nkill.Inc()
			p.ptable.kick()
			return 0
		}
	}
	return -defs.ESRCH
}

/// Killed reports whether kt or its whole process has been killed.
func (kt *Kthread_t) Killed() bool {
	p := kt.proc
	p.lock.Acquire()
	defer p.lock.Release()
	kt.lock.Acquire()
	defer kt.lock.Release()
	return kt.killed || p.killed
}

/// Set_killed marks kt killed.
func (kt *Kthread_t) Set_killed() {
	kt.lock.Acquire()
	defer kt.lock.Release()
	kt.killed = true
}
