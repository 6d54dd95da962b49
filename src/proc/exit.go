package proc

import "fmt"

import "kthreads/src/defs"

// lastalive reports whether every thread of p but self has exited. The
// caller holds p.Waitlock.
func (p *Proc_t) lastalive(self *Kthread_t) bool {
	for i := range p.Kthreads {
		kt := &p.Kthreads[i]
		if kt != self && kt.alive() {
			return false
		}
	}
	return true
}

/// Exit ends the calling thread with status and wakes its joiners. The
/// last thread of a process to exit ends the process instead. Exit never
/// returns.
///
//kt:handoff
func (kt *Kthread_t) Exit(status int) {
	p := kt.proc
	kt.zombiecheck()
	p.Waitlock.Acquire()
	if p.lastalive(kt) {
		p.Waitlock.Release()
		kt.Exit_proc(status)
	}
	kt.Wakeup(kt.chanof())
	kt.lock.Acquire()
	// a concurrent process exit keeps its own status
	if kt.state != ZOMBIE {
		kt.xstate = status
		kt.state = ZOMBIE
	}
	p.Waitlock.Release()
	kt.sched_exit()
}

// forcezombie ends the slot's thread without running its exit protocol.
func (kt *Kthread_t) forcezombie(status int) {
	kt.lock.Acquire()
	defer kt.lock.Release()
	switch kt.state {
	case UNUSED, ZOMBIE:
		return
	case USED:
		panic("forcezombie: slot being set up")
	}
	kt.xstate = status
	kt.state = ZOMBIE
}

// exit_threads makes every thread of p except self a ZOMBIE with status.
// Running ones notice at their next kernel boundary; sleeping and runnable
// ones are never run again. p.lock is held.
func (p *Proc_t) exit_threads(self *Kthread_t, status int) {
	if !p.lock.Holding() {
		panic("exit_threads: proc lock not held")
	}
	for i := range p.Kthreads {
		if kt := &p.Kthreads[i]; kt != self {
			kt.forcezombie(status)
		}
	}
}

/// Exit_proc ends the caller's whole process with status: every other
/// thread is stopped, the process becomes a zombie for Waitpid, and the
/// caller exits. Exit_proc never returns.
///
//kt:handoff
func (kt *Kthread_t) Exit_proc(status int) {
	p := kt.proc
	p.dying.Store(true)
	p.lock.Acquire()
	if p.state == PZOMBIE {
		// lost the race to another exiting thread, which made us a zombie
		p.lock.Release()
		kt.zombiecheck()
		panic("exit: not a zombie")
	}
	p.exit_threads(kt, status)
	p.xstate = status
	p.state = PZOMBIE
	close(p.done)
	pid := p.Pid
	p.lock.Release()
	p.ptable.Log.Printf("pid %d: exit %s\n", pid, Exitstring(status))

	kt.lock.Acquire()
	kt.xstate = status
	kt.state = ZOMBIE
	kt.sched_exit()
}

/// Exitstring renders an exit status for the console.
func Exitstring(status int) string {
	if status >= 0 && status&defs.SIGNALED != 0 {
		sig := (status &^ defs.SIGNALED) >> defs.SIGSHIFT
		return fmt.Sprintf("signal %d (%s)", sig, defs.Trapname(sig))
	}
	return fmt.Sprintf("status %d", status)
}
