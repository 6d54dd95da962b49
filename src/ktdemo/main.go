// ktdemo boots a hosted machine, runs a process whose main thread starts
// workers, kills a sleeping thread and joins them all, then prints the
// results, the console and the kernel counters.
package main

import "context"
import "flag"
import "fmt"
import "io"
import "os"
import "sync"
import "time"

import "kthreads/src/defs"
import "kthreads/src/kernel"
import "kthreads/src/limits"
import "kthreads/src/mem"
import "kthreads/src/proc"
import "kthreads/src/ulib"

// result_t is what the demo process reports for one joined thread.
type result_t struct {
	tid    defs.Tid_t
	ret    int
	status int
}

// demo_t collects the demo process's results.
type demo_t struct {
	sync.Mutex
	results []result_t
	work    int
}

func (d *demo_t) add(r result_t) {
	d.Lock()
	d.results = append(d.results, r)
	d.Unlock()
}

// mktext builds the demo program: main starts nworkers workers that each
// sum 1..work while yielding, plus one sleeper that main kills, and joins
// them all.
//
// \param d       result sink
// \param nworker number of workers
func mktext(d *demo_t, nworker int) *proc.Text_t {
	text := proc.Mktext()
	text.Add("worker", func(u *proc.Uctx_t) {
		sum := 0
		for i := 1; i <= d.work; i++ {
			sum += i
			if i%16 == 0 {
				u.Yield()
			}
		}
		ulib.Kthread_exit(u, sum)
	})
	text.Add("sleeper", func(u *proc.Uctx_t) {
		ulib.Sleep(u, 1<<30)
	})
	text.Add("main", func(u *proc.Uctx_t) {
		heap := ulib.Sbrk(u, (nworker+1)*mem.PGSIZE+8)
		if heap == 0 {
			ulib.Exit(u, 1)
		}
		out := heap + uintptr((nworker+1)*mem.PGSIZE)
		var tids []defs.Tid_t
		for i := 0; i < nworker; i++ {
			stack := heap + uintptr(i*mem.PGSIZE)
			tid := ulib.Kthread_create(u, "worker", stack, mem.PGSIZE)
			if tid < 0 {
				break
			}
			tids = append(tids, tid)
		}
		s := ulib.Kthread_create(u, "sleeper", heap+uintptr(nworker*mem.PGSIZE), mem.PGSIZE)
		if s >= 0 {
			ulib.Sleep(u, 2)
			ulib.Kthread_kill(u, s)
			tids = append(tids, s)
		}
		for _, tid := range tids {
			r := ulib.Kthread_join(u, tid, out)
			d.add(result_t{tid: tid, ret: r, status: ulib.Readint(u, out)})
		}
	})
	return text
}

func main() {
	lim := limits.MkSysLimit()
	flag.IntVar(&lim.Ncpu, "ncpu", lim.Ncpu, "number of CPUs")
	flag.IntVar(&lim.Nproc, "nproc", lim.Nproc, "process table size")
	flag.IntVar(&lim.Nkt, "nkt", lim.Nkt, "thread slots per process")
	flag.IntVar(&lim.Physpages, "pages", lim.Physpages, "physical pages")
	flag.DurationVar(&lim.Tick, "tick", lim.Tick, "clock tick")
	nworker := flag.Int("workers", 4, "worker threads")
	work := flag.Int("work", 1<<12, "iterations per worker")
	pprof := flag.String("pprof", "", "write a thread profile to `file`")
	verbose := flag.Bool("v", false, "echo the console")
	timeout := flag.Duration("timeout", time.Minute, "give up after")
	flag.Parse()

	var console io.Writer
	if *verbose {
		console = os.Stdout
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	m, err := kernel.Boot(ctx, lim, console)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ktdemo: %v\n", err)
		os.Exit(1)
	}

	d := &demo_t{work: *work}
	pid, err := m.Spawn("demo", mktext(d, *nworker), "main")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ktdemo: %v\n", err)
		os.Exit(1)
	}
	if *pprof != "" || *verbose {
		time.Sleep(lim.Tick)
		m.Pt.Dump()
	}
	if *pprof != "" {
		if err := writeprof(m, *pprof); err != nil {
			fmt.Fprintf(os.Stderr, "ktdemo: %v\n", err)
		}
	}
	st, err := m.Wait(ctx, pid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ktdemo: %v\n", err)
		os.Exit(1)
	}
	for _, r := range d.results {
		fmt.Printf("tid %d: join %d status %d\n", r.tid, r.ret, r.status)
	}
	fmt.Printf("pid %d: %s\n", pid, proc.Exitstring(st))
	if !*verbose {
		fmt.Print(m.Dmesg())
	}
	fmt.Print(m.Stats())
	if err := m.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "ktdemo: %v\n", err)
		os.Exit(1)
	}
	m.Log.Close()
}

// writeprof saves the current threads as a pprof profile.
//
// \param m  running machine
// \param fn output file name
func writeprof(m *kernel.Machine_t, fn string) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err := m.Profile().Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
