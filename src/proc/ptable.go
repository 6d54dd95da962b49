package proc

import "context"
import "time"

import "kthreads/src/defs"
import "kthreads/src/mem"
import "kthreads/src/ustr"

// claim takes p for a new process.
func (p *Proc_t) claim(pid defs.Pid_t) bool {
	p.lock.Acquire()
	defer p.lock.Release()
	if p.state != PUNUSED {
		return false
	}
	p.state = PUSED
	p.Pid = pid
	p.killed = false
	p.xstate = 0
	p.reaping = false
	p.done = make(chan struct{})
	p.sz = int(mem.USERHEAP)
	p.dying.Store(false)
	return true
}

func (pt *Ptable_t) allocproc() (*Proc_t, defs.Err_t) {
	pid := pt.allocpid()
	for i := range pt.Procs {
		if p := &pt.Procs[i]; p.claim(pid) {
			p.resettids()
			p.Atime.Reset()
			return p, 0
		}
	}
	return nil, -defs.EAGAIN
}

// unclaim undoes a partly built process.
func (p *Proc_t) unclaim() {
	p.freemem()
	p.lock.Acquire()
	defer p.lock.Release()
	p.state = PUNUSED
}

func (p *Proc_t) freemem() {
	p.Vm.Uvmfree()
	if p.p_tfs != 0 {
		p.ptable.Phys.Refdown(p.p_tfs)
		p.p_tfs = 0
	}
}

/// Proc_new creates a process running text's function entry on its primary
/// thread.
func (pt *Ptable_t) Proc_new(name string, text *Text_t, entry string) (*Proc_t, defs.Err_t) {
	pc, ok := text.Sym(entry)
	if !ok {
		return nil, -defs.EINVAL
	}
	p, err := pt.allocproc()
	if err != 0 {
		return nil, err
	}
	p.Name = ustr.MkName(name)
	p.Text = text
	if err := p.Vm.Vm_init(pt.Phys); err != 0 {
		p.unclaim()
		return nil, err
	}
	_, p_tfs, ok := pt.Phys.Refpg_new()
	if !ok {
		p.unclaim()
		return nil, -defs.ENOMEM
	}
	pt.Phys.Refup(p_tfs)
	p.p_tfs = p_tfs
	if err := p.Vm.Mmap_load(int(mem.USERTEXT), text.image(), 0); err != 0 {
		p.unclaim()
		return nil, err
	}
	stksz := pt.Lim.Ustackpages * mem.PGSIZE
	if err := p.Vm.Mmap(int(mem.USTACKTOP)-stksz, stksz, mem.PTE_W); err != 0 {
		p.unclaim()
		return nil, err
	}

	kt, err := p.allocthread(forkret_pc)
	if err != 0 {
		p.unclaim()
		return nil, err
	}
	kt.Trapframe[defs.TF_RIP] = pc
	kt.Trapframe[defs.TF_RSP] = mem.USTACKTOP
	kt.entry = pc
	pt.ht.Set(p.Pid, p)
	pt.Stats.Nproc.Inc()
	pt.Log.Printf("pid %d: %s\n", p.Pid, name)
	kt.state = RUNNABLE
	kt.lock.Release()
	pt.kick()
	return p, 0
}

/// Waitpid waits for process pid to exit, releases it and returns its exit
/// status. It returns -EINTR if ctx ends first.
func (pt *Ptable_t) Waitpid(ctx context.Context, pid defs.Pid_t) (int, defs.Err_t) {
	p, ok := pt.Lookup(pid)
	if !ok {
		return 0, -defs.ECHILD
	}
	select {
	case <-p.donech():
	case <-ctx.Done():
		return 0, -defs.EINTR
	}
	return p.reap(pid)
}

func (p *Proc_t) donech() chan struct{} {
	p.lock.Acquire()
	defer p.lock.Release()
	return p.done
}

// reapzombie frees the slot's thread once no CPU runs it. It reports
// whether the slot is free.
func (kt *Kthread_t) reapzombie() bool {
	kt.lock.Acquire()
	defer kt.lock.Release()
	switch kt.state {
	case UNUSED:
		return true
	case ZOMBIE:
		if kt.cpu != nil {
			return false
		}
		kt.proc.Atime.Add(&kt.Atime)
		kt.freethread()
		return true
	}
	panic("reap: live thread " + kt.state.String())
}

func (p *Proc_t) reapthreads() bool {
	done := true
	for i := range p.Kthreads {
		if !p.Kthreads[i].reapzombie() {
			done = false
		}
	}
	return done
}

func (p *Proc_t) startreap(pid defs.Pid_t) bool {
	p.lock.Acquire()
	defer p.lock.Release()
	if p.state != PZOMBIE || p.Pid != pid || p.reaping {
		return false
	}
	p.reaping = true
	return true
}

// reap tears down exited process pid once every thread has left its CPU.
func (p *Proc_t) reap(pid defs.Pid_t) (int, defs.Err_t) {
	if !p.startreap(pid) {
		return 0, -defs.ECHILD
	}
	// threads made zombies by the exit may still be finishing a system call
	for !p.reapthreads() {
		<-p.offcpu
	}
	p.lock.Acquire()
	defer p.lock.Release()
	p.freemem()
	p.ptable.ht.Del(pid)
	p.state = PUNUSED
	u, s := p.Atime.Snapshot()
	p.ptable.Log.Printf("pid %d: reaped, %s, user %v sys %v\n", pid,
		Exitstring(p.xstate), time.Duration(u), time.Duration(s))
	return p.xstate, 0
}
