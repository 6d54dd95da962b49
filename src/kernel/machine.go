// Package kernel boots a hosted machine: physical memory, the console, the
// process table, the system call table, the CPUs and the clock.
package kernel

import "context"
import "fmt"
import "io"
import "sync"
import "time"

import "github.com/google/pprof/profile"
import "golang.org/x/sync/errgroup"

import "kthreads/src/defs"
import "kthreads/src/klog"
import "kthreads/src/kprof"
import "kthreads/src/limits"
import "kthreads/src/mem"
import "kthreads/src/proc"
import "kthreads/src/sched"
import "kthreads/src/stats"
import "kthreads/src/sys"
import "kthreads/src/tinfo"

/// Machine_t is a running kernel.
type Machine_t struct {
	Lim   *limits.Syslimit_t
	Phys  *mem.Physmem_t
	Log   *klog.Klog_t
	Pt    *proc.Ptable_t
	Sched *sched.Sched_t
	Sys   *sys.Sys_t
	boot  time.Time

	sync.Mutex
	eg     *errgroup.Group
	cancel context.CancelFunc
}

/// Boot starts a machine configured by lim with console output to
/// console, which may be nil. The machine runs until Shutdown or until ctx
/// ends.
func Boot(ctx context.Context, lim *limits.Syslimit_t, console io.Writer) (*Machine_t, error) {
	if err := lim.Validate(); err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	m := &Machine_t{Lim: lim, boot: time.Now()}
	m.Phys = mem.Phys_init(lim.Physpages)
	m.Log = klog.Mkklog(console, m.Phys, lim.Klogsz)
	m.Pt = proc.Mkptable(lim, m.Phys, m.Log)
	m.Sched = sched.Mksched(m.Pt, lim.Ncpu, lim.Tick)
	m.Sys = sys.Mksys(m.Pt)
	m.Pt.Install(m.Sys, m.Sched)

	ctx, m.cancel = context.WithCancel(ctx)
	m.eg, ctx = errgroup.WithContext(ctx)
	m.Sched.Start(ctx)
	m.eg.Go(func() error {
		return m.clock(ctx)
	})
	m.Log.Printf("kthreads: %d cpus, %d procs, %d threads per proc, %d pages\n",
		lim.Ncpu, lim.Nproc, lim.Nkt, lim.Physpages)
	return m, nil
}

func (m *Machine_t) clock(ctx context.Context) error {
	t := time.NewTicker(m.Lim.Tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.Pt.Tick()
		}
	}
}

/// Spawn starts a process running the function entry of text.
func (m *Machine_t) Spawn(name string, text *proc.Text_t, entry string) (defs.Pid_t, error) {
	p, err := m.Pt.Proc_new(name, text, entry)
	if err != 0 {
		return 0, fmt.Errorf("spawn %s: %v", name, err)
	}
	return p.Pid, nil
}

/// Wait waits for process pid to exit and returns its exit status.
func (m *Machine_t) Wait(ctx context.Context, pid defs.Pid_t) (int, error) {
	st, err := m.Pt.Waitpid(ctx, pid)
	if err != 0 {
		if err == -defs.EINTR && ctx.Err() != nil {
			return 0, fmt.Errorf("wait %d: %w", pid, ctx.Err())
		}
		return 0, fmt.Errorf("wait %d: %v", pid, err)
	}
	return st, nil
}

/// Kill kills every thread of process pid.
func (m *Machine_t) Kill(pid defs.Pid_t) error {
	if err := m.Pt.Kill(pid); err != 0 {
		return fmt.Errorf("kill %d: %v", pid, err)
	}
	return nil
}

/// Threads returns a snapshot of every live thread.
func (m *Machine_t) Threads() []*tinfo.Tnote_t {
	return m.Pt.Snapshot()
}

/// Profile returns the current threads as a pprof profile.
func (m *Machine_t) Profile() *profile.Profile {
	p := kprof.Mkprofile(m.Threads(), time.Now())
	p.DurationNanos = time.Since(m.boot).Nanoseconds()
	return p
}

/// Stats renders the process table counters.
func (m *Machine_t) Stats() string {
	return stats.Stats2String(&m.Pt.Stats)
}

/// Dmesg returns recent console output.
func (m *Machine_t) Dmesg() string {
	return m.Log.Dmesg()
}

/// Shutdown stops the clock and the CPUs. Threads still alive are
/// abandoned where they stand.
func (m *Machine_t) Shutdown() error {
	m.Lock()
	defer m.Unlock()
	if m.cancel == nil {
		return nil
	}
	m.cancel()
	m.cancel = nil
	err := m.eg.Wait()
	if serr := m.Sched.Stop(); err == nil {
		err = serr
	}
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
