package proc

import "kthreads/src/defs"
import "kthreads/src/stats"
import "kthreads/src/util"

// lookup returns the slot holding thread tid of p.
func (p *Proc_t) lookup(tid defs.Tid_t) *Kthread_t {
	for i := range p.Kthreads {
		if kt := &p.Kthreads[i]; kt.is(tid) {
			return kt
		}
	}
	return nil
}

// tryreap frees t if it is thread tid and a zombie no CPU still runs,
// copying its exit status to addr when addr is not zero. It reports whether
// the join is over. The caller holds p.Waitlock.
func (t *Kthread_t) tryreap(tid defs.Tid_t, addr uintptr) (bool, defs.Err_t) {
	t.lock.Acquire()
	defer t.lock.Release()
	if t.tid != tid || t.state == UNUSED {
		return true, -defs.ESRCH
	}
	if t.state != ZOMBIE || t.cpu != nil {
		return false, 0
	}
	p := t.proc
	if addr != 0 {
		buf := make([]uint8, 4)
		util.Writen(buf, 4, 0, t.xstate)
		ub := p.Vm.Mkuserbuf(int(addr), len(buf))
		if n, err := ub.Uiowrite(buf); err != 0 || n != len(buf) {
			return true, -defs.EFAULT
		}
	}
	p.Atime.Add(&t.Atime)
	t.freethread()
	return true, 0
}

/// Join waits for thread tid of the caller's process to exit, stores its
/// 32-bit exit status at the user address addr unless addr is zero, and
/// frees its slot.
func (kt *Kthread_t) Join(tid defs.Tid_t, addr uintptr) defs.Err_t {
	p := kt.proc
	if tid == kt.Tid() {
		return -defs.EDEADLK
	}
	p.Waitlock.Acquire()
	defer p.Waitlock.Release()

	t := p.lookup(tid)
	if t == nil {
		return -defs.ESRCH
	}
	st := stats.Rdtsc()
	defer func() {
		p.ptable.Stats.Joinwait.Add(st)
	}()
	for {
		if done, err := t.tryreap(tid, addr); done {
			if err == 0 {
				p.ptable.Stats.Njoin.Inc()
			}
			return err
		}
		if kt.Killed() || p.dying.Load() {
			return -defs.EINTR
		}
		kt.Sleep(t.chanof(), &p.Waitlock)
	}
}
