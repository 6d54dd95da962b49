package kernel

import "context"
import "strings"
import "sync/atomic"
import "testing"
import "time"

import "kthreads/src/defs"
import "kthreads/src/limits"
import "kthreads/src/mem"
import "kthreads/src/proc"
import "kthreads/src/tinfo"
import "kthreads/src/ulib"

func boot(t *testing.T) *Machine_t {
	lim := limits.MkSysLimit()
	lim.Ncpu = 2
	lim.Nproc = 4
	lim.Nkt = 4
	lim.Physpages = 512
	lim.Tick = time.Millisecond
	m, err := Boot(context.Background(), lim, nil)
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Shutdown(); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})
	return m
}

func spawn(t *testing.T, m *Machine_t, text *proc.Text_t) defs.Pid_t {
	pid, err := m.Spawn("test", text, "main")
	if err != nil {
		t.Fatalf("%v", err)
	}
	return pid
}

func wait(t *testing.T, m *Machine_t, pid defs.Pid_t) int {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	st, err := m.Wait(ctx, pid)
	if err != nil {
		t.Fatalf("%v\n%s", err, m.Dmesg())
	}
	return st
}

func note(m *Machine_t, pid defs.Pid_t, tid defs.Tid_t) *tinfo.Tnote_t {
	for _, n := range m.Threads() {
		if n.Pid == pid && n.Tid == tid {
			return n
		}
	}
	return nil
}

func waitfor(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func sleeping(m *Machine_t, pid defs.Pid_t, tid defs.Tid_t) func() bool {
	return func() bool {
		n := note(m, pid, tid)
		return n != nil && n.State == "SLEEPING"
	}
}

func spin(u *proc.Uctx_t, b *atomic.Bool) {
	for !b.Load() {
		u.Yield()
	}
}

func TestScenario(t *testing.T) {
	m := boot(t)
	var release1, release2 atomic.Bool
	var tid1, tid2 defs.Tid_t
	var r1, r2, out1 int
	text := proc.Mktext()
	text.Add("worker", func(u *proc.Uctx_t) {
		spin(u, &release1)
		ulib.Kthread_exit(u, 7)
	})
	text.Add("worker2", func(u *proc.Uctx_t) {
		spin(u, &release2)
	})
	text.Add("main", func(u *proc.Uctx_t) {
		stack := ulib.Sbrk(u, mem.PGSIZE)
		out := ulib.Sbrk(u, 8)
		tid1 = ulib.Kthread_create(u, "worker", stack, 4096)
		r1 = ulib.Kthread_join(u, tid1, out)
		out1 = ulib.Readint(u, out)
		tid2 = ulib.Kthread_create(u, "worker2", stack, 4096)
		r2 = ulib.Kthread_join(u, tid2, 0)
	})
	pid := spawn(t, m, text)
	waitfor(t, "main to block in join", sleeping(m, pid, 0))
	release1.Store(true)
	waitfor(t, "second worker", func() bool {
		return note(m, pid, 2) != nil
	})
	if n := note(m, pid, 2); n.Slot != 1 || n.Func != "worker2" {
		t.Fatalf("second worker in slot %d running %s", n.Slot, n.Func)
	}
	release2.Store(true)
	if st := wait(t, m, pid); st != 0 {
		t.Fatalf("exit status %d", st)
	}
	if tid1 != 1 || r1 != 0 || out1 != 7 {
		t.Fatalf("first join: tid %d ret %d out %d", tid1, r1, out1)
	}
	if tid2 != 2 || r2 != 0 {
		t.Fatalf("second join: tid %d ret %d", tid2, r2)
	}
	if len(m.Threads()) != 0 {
		t.Fatalf("threads left behind")
	}
}

func TestLastThreadExits(t *testing.T) {
	m := boot(t)
	left := m.Lim.Kthreads.Left()
	text := proc.Mktext()
	text.Add("main", func(u *proc.Uctx_t) {
		ulib.Kthread_exit(u, 5)
	})
	pid := spawn(t, m, text)
	if st := wait(t, m, pid); st != 5 {
		t.Fatalf("exit status %d", st)
	}
	if m.Lim.Kthreads.Left() != left {
		t.Fatalf("thread budget leaked")
	}
}

func TestCapacity(t *testing.T) {
	m := boot(t)
	var release atomic.Bool
	var tids []defs.Tid_t
	var full, again defs.Tid_t
	text := proc.Mktext()
	text.Add("worker", func(u *proc.Uctx_t) {
		spin(u, &release)
	})
	text.Add("main", func(u *proc.Uctx_t) {
		stack := ulib.Sbrk(u, mem.PGSIZE)
		for i := 0; i < 3; i++ {
			tids = append(tids, ulib.Kthread_create(u, "worker", stack, 512))
		}
		full = ulib.Kthread_create(u, "worker", stack, 512)
		release.Store(true)
		for _, tid := range tids {
			ulib.Kthread_join(u, tid, 0)
		}
		again = ulib.Kthread_create(u, "worker", stack, 512)
		ulib.Kthread_join(u, again, 0)
	})
	if st := wait(t, m, spawn(t, m, text)); st != 0 {
		t.Fatalf("exit status %d", st)
	}
	for i, tid := range tids {
		if tid != defs.Tid_t(i+1) {
			t.Fatalf("tids %v", tids)
		}
	}
	if full != -1 || again != 4 {
		t.Fatalf("create on full table %d, after joins %d", full, again)
	}
}

func TestJoinOnce(t *testing.T) {
	m := boot(t)
	var release atomic.Bool
	var res, status [2]atomic.Int64
	text := proc.Mktext()
	text.Add("worker", func(u *proc.Uctx_t) {
		spin(u, &release)
		ulib.Kthread_exit(u, 42)
	})
	text.Add("joiner", func(u *proc.Uctx_t) {
		i := ulib.Kthread_id(u) - 2
		out := u.Sp() - 8
		r := ulib.Kthread_join(u, 1, out)
		res[i].Store(int64(r))
		if r == 0 {
			status[i].Store(int64(ulib.Readint(u, out)))
		}
	})
	text.Add("main", func(u *proc.Uctx_t) {
		heap := ulib.Sbrk(u, 3*mem.PGSIZE)
		ulib.Kthread_create(u, "worker", heap, mem.PGSIZE)
		j1 := ulib.Kthread_create(u, "joiner", heap+uintptr(mem.PGSIZE), mem.PGSIZE)
		j2 := ulib.Kthread_create(u, "joiner", heap+2*uintptr(mem.PGSIZE), mem.PGSIZE)
		ulib.Kthread_join(u, j1, 0)
		ulib.Kthread_join(u, j2, 0)
	})
	pid := spawn(t, m, text)
	waitfor(t, "joiners to sleep", func() bool {
		return sleeping(m, pid, 2)() && sleeping(m, pid, 3)()
	})
	release.Store(true)
	wait(t, m, pid)
	ok := 0
	for i := range res {
		switch res[i].Load() {
		case 0:
			ok++
			if status[i].Load() != 42 {
				t.Fatalf("status %d", status[i].Load())
			}
		case -1:
		default:
			t.Fatalf("join returned %d", res[i].Load())
		}
	}
	if ok != 1 {
		t.Fatalf("%d joins reaped the worker", ok)
	}
}

func TestKillSleeper(t *testing.T) {
	m := boot(t)
	var proceed atomic.Bool
	var rkill, rjoin, status, rkill2 int
	text := proc.Mktext()
	text.Add("sleeper", func(u *proc.Uctx_t) {
		ulib.Sleep(u, 1<<30)
		ulib.Kthread_exit(u, 1)
	})
	text.Add("main", func(u *proc.Uctx_t) {
		stack := ulib.Sbrk(u, mem.PGSIZE)
		out := ulib.Sbrk(u, 8)
		s := ulib.Kthread_create(u, "sleeper", stack, mem.PGSIZE)
		spin(u, &proceed)
		rkill = ulib.Kthread_kill(u, s)
		rjoin = ulib.Kthread_join(u, s, out)
		status = ulib.Readint(u, out)
		rkill2 = ulib.Kthread_kill(u, s)
	})
	pid := spawn(t, m, text)
	waitfor(t, "sleeper", sleeping(m, pid, 1))
	proceed.Store(true)
	wait(t, m, pid)
	if rkill != 0 || rjoin != 0 || status != -1 {
		t.Fatalf("kill %d join %d status %d", rkill, rjoin, status)
	}
	if rkill2 != -1 {
		t.Fatalf("kill of reaped thread %d", rkill2)
	}
}

func TestJoinKilled(t *testing.T) {
	m := boot(t)
	var proceed, release atomic.Bool
	var jstatus, wstatus int
	text := proc.Mktext()
	text.Add("worker", func(u *proc.Uctx_t) {
		spin(u, &release)
	})
	text.Add("joiner", func(u *proc.Uctx_t) {
		ulib.Kthread_join(u, 1, 0)
		ulib.Kthread_exit(u, 9)
	})
	text.Add("main", func(u *proc.Uctx_t) {
		heap := ulib.Sbrk(u, 2*mem.PGSIZE)
		out := ulib.Sbrk(u, 8)
		w := ulib.Kthread_create(u, "worker", heap, mem.PGSIZE)
		j := ulib.Kthread_create(u, "joiner", heap+uintptr(mem.PGSIZE), mem.PGSIZE)
		spin(u, &proceed)
		ulib.Kthread_kill(u, j)
		ulib.Kthread_join(u, j, out)
		jstatus = ulib.Readint(u, out)
		release.Store(true)
		ulib.Kthread_join(u, w, out)
		wstatus = ulib.Readint(u, out)
	})
	pid := spawn(t, m, text)
	waitfor(t, "joiner", sleeping(m, pid, 2))
	proceed.Store(true)
	wait(t, m, pid)
	if jstatus != -1 || wstatus != 0 {
		t.Fatalf("joiner %d worker %d", jstatus, wstatus)
	}
}

func TestProcessExit(t *testing.T) {
	m := boot(t)
	free0, _ := m.Phys.Pgcount()
	left0 := m.Lim.Kthreads.Left()
	var proceed atomic.Bool
	text := proc.Mktext()
	text.Add("sleeper", func(u *proc.Uctx_t) {
		ulib.Sleep(u, 1<<30)
	})
	text.Add("spinner", func(u *proc.Uctx_t) {
		for {
			u.Yield()
		}
	})
	text.Add("main", func(u *proc.Uctx_t) {
		heap := ulib.Sbrk(u, 3*mem.PGSIZE)
		ulib.Kthread_create(u, "sleeper", heap, mem.PGSIZE)
		ulib.Kthread_create(u, "sleeper", heap+uintptr(mem.PGSIZE), mem.PGSIZE)
		ulib.Kthread_create(u, "spinner", heap+2*uintptr(mem.PGSIZE), mem.PGSIZE)
		spin(u, &proceed)
		ulib.Exit(u, 3)
	})
	pid := spawn(t, m, text)
	waitfor(t, "sleepers", func() bool {
		return sleeping(m, pid, 1)() && sleeping(m, pid, 2)()
	})
	proceed.Store(true)
	if st := wait(t, m, pid); st != 3 {
		t.Fatalf("exit status %d", st)
	}
	if free, _ := m.Phys.Pgcount(); free != free0 {
		t.Fatalf("leaked %d pages", free0-free)
	}
	if m.Lim.Kthreads.Left() != left0 || len(m.Threads()) != 0 {
		t.Fatalf("threads leaked")
	}
}

func TestKillProcess(t *testing.T) {
	m := boot(t)
	text := proc.Mktext()
	text.Add("sleeper", func(u *proc.Uctx_t) {
		ulib.Sleep(u, 1<<30)
	})
	text.Add("main", func(u *proc.Uctx_t) {
		stack := ulib.Sbrk(u, mem.PGSIZE)
		s := ulib.Kthread_create(u, "sleeper", stack, mem.PGSIZE)
		ulib.Kthread_join(u, s, 0)
	})
	pid := spawn(t, m, text)
	waitfor(t, "threads to sleep", func() bool {
		return sleeping(m, pid, 0)() && sleeping(m, pid, 1)()
	})
	if err := m.Kill(pid); err != nil {
		t.Fatalf("%v", err)
	}
	if st := wait(t, m, pid); st != -1 {
		t.Fatalf("exit status %d", st)
	}
	if err := m.Kill(pid); err == nil {
		t.Fatalf("killed a reaped process")
	}
}

func TestFault(t *testing.T) {
	m := boot(t)
	text := proc.Mktext()
	text.Add("main", func(u *proc.Uctx_t) {
		code := ulib.Sbrk(u, 16)
		u.Write(code, []uint8{0x0f, 0x0b})
		u.Fault(defs.UD, code)
	})
	st := wait(t, m, spawn(t, m, text))
	if st != defs.SIGNALED|defs.Mkexitsig(defs.UD) {
		t.Fatalf("exit status %#x", st)
	}
	d := m.Dmesg()
	if !strings.Contains(d, "invalid opcode") || !strings.Contains(d, "ud2") {
		t.Fatalf("no fault diagnostic in:\n%s", d)
	}

	bad := proc.Mktext()
	bad.Add("main", func(u *proc.Uctx_t) {
		u.Read(0x10, 4)
	})
	st = wait(t, m, spawn(t, m, bad))
	if st != defs.SIGNALED|defs.Mkexitsig(defs.PGFAULT) {
		t.Fatalf("exit status %#x", st)
	}
}

func TestSyscalls(t *testing.T) {
	m := boot(t)
	var pid, gotpid defs.Pid_t
	var brk uintptr
	var t0, t1, unknown, badsize, self, id int
	text := proc.Mktext()
	text.Add("main", func(u *proc.Uctx_t) {
		gotpid = ulib.Getpid(u)
		brk = ulib.Sbrk(u, 0)
		t0 = ulib.Uptime(u)
		ulib.Sleep(u, 3)
		t1 = ulib.Uptime(u)
		unknown = u.Syscall(99)
		badsize = int(ulib.Kthread_create(u, "main", brk, 0))
		self = ulib.Kthread_join(u, 0, 0)
		id = int(ulib.Kthread_id(u))
		ulib.Exit(u, 11)
	})
	pid = spawn(t, m, text)
	if st := wait(t, m, pid); st != 11 {
		t.Fatalf("exit status %d", st)
	}
	if gotpid != pid || brk != mem.USERHEAP || id != 0 {
		t.Fatalf("getpid %d sbrk %#x id %d", gotpid, brk, id)
	}
	if t1-t0 < 3 {
		t.Fatalf("slept %d ticks", t1-t0)
	}
	if unknown != -1 || badsize != -1 || self != -1 {
		t.Fatalf("unknown %d badsize %d self join %d", unknown, badsize, self)
	}
	if !strings.Contains(m.Stats(), "#Nsyscall") {
		t.Fatalf("stats:\n%s", m.Stats())
	}
}

func TestProfile(t *testing.T) {
	m := boot(t)
	var release atomic.Bool
	text := proc.Mktext()
	text.Add("main", func(u *proc.Uctx_t) {
		spin(u, &release)
	})
	pid := spawn(t, m, text)
	waitfor(t, "main", func() bool {
		return note(m, pid, 0) != nil
	})
	p := m.Profile()
	if err := p.CheckValid(); err != nil {
		t.Fatalf("invalid profile: %v", err)
	}
	if len(p.Sample) != 1 || p.Sample[0].Location[0].Line[0].Function.Name != "main" {
		t.Fatalf("bad profile:\n%v", p)
	}
	release.Store(true)
	wait(t, m, pid)
}

func TestBootInvalid(t *testing.T) {
	lim := limits.MkSysLimit()
	lim.Nkt = 0
	if _, err := Boot(context.Background(), lim, nil); err == nil {
		t.Fatalf("booted with no thread slots")
	}
	lim = limits.MkSysLimit()
	lim.Nproc = 1
	lim.Physpages = 64
	m, err := Boot(context.Background(), lim, nil)
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	defer m.Shutdown()
	if _, err := m.Spawn("x", proc.Mktext(), "main"); err == nil {
		t.Fatalf("spawned a missing function")
	}
}
