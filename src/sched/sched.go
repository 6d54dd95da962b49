// Package sched runs the CPUs. Each CPU is a goroutine that repeatedly
// scans every thread slot of every process and dispatches the RUNNABLE
// ones. An idle CPU sleeps until Kick or its idle timeout.
package sched

import "context"
import "sync"
import "time"

import "golang.org/x/sync/errgroup"

import "kthreads/src/proc"

/// Sched_t is the set of CPU scheduler loops.
type Sched_t struct {
	pt    *proc.Ptable_t
	Cpus  []*proc.Cpu_t
	kicks []chan struct{}
	idle  time.Duration

	sync.Mutex
	eg     *errgroup.Group
	cancel context.CancelFunc
}

/// Mksched returns a scheduler for pt with ncpu CPUs. An idle CPU rescans
/// at least every idle.
func Mksched(pt *proc.Ptable_t, ncpu int, idle time.Duration) *Sched_t {
	if ncpu <= 0 {
		panic("no cpus")
	}
	s := &Sched_t{pt: pt, idle: idle}
	for i := 0; i < ncpu; i++ {
		s.Cpus = append(s.Cpus, proc.Mkcpu(i))
		s.kicks = append(s.kicks, make(chan struct{}, 1))
	}
	return s
}

/// Kick tells every CPU that a thread became RUNNABLE.
func (s *Sched_t) Kick() {
	for _, k := range s.kicks {
		select {
		case k <- struct{}{}:
		default:
		}
	}
}

/// Start launches the CPU loops. They run until Stop or until ctx ends.
func (s *Sched_t) Start(ctx context.Context) {
	s.Lock()
	defer s.Unlock()
	if s.eg != nil {
		panic("scheduler already started")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.eg, ctx = errgroup.WithContext(ctx)
	for i := range s.Cpus {
		i := i
		s.eg.Go(func() error {
			return s.loop(ctx, i)
		})
	}
}

/// Stop ends the CPU loops and waits for them. A thread that is running
/// when Stop is called keeps its CPU until it next switches out.
func (s *Sched_t) Stop() error {
	s.Lock()
	eg, cancel := s.eg, s.cancel
	s.Unlock()
	if eg == nil {
		return nil
	}
	cancel()
	err := eg.Wait()
	if err == context.Canceled {
		err = nil
	}
	return err
}

// loop is CPU i's scheduler.
func (s *Sched_t) loop(ctx context.Context, i int) error {
	c := s.Cpus[i]
	t := time.NewTimer(s.idle)
	defer t.Stop()
	for {
		ran := s.scan(c)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ran {
			continue
		}
		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
		t.Reset(s.idle)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.kicks[i]:
		case <-t.C:
		}
	}
}

// scan offers c to every slot once and reports whether any thread ran.
func (s *Sched_t) scan(c *proc.Cpu_t) bool {
	ran := false
	for i := range s.pt.Procs {
		p := &s.pt.Procs[i]
		for j := range p.Kthreads {
			if p.Kthreads[j].Dispatch(c) {
				ran = true
			}
		}
	}
	return ran
}
