package main

import "context"
import "testing"
import "time"

import "kthreads/src/kernel"
import "kthreads/src/limits"

func TestDemo(t *testing.T) {
	lim := limits.MkSysLimit()
	lim.Ncpu = 2
	lim.Nproc = 2
	lim.Nkt = 8
	lim.Physpages = 512
	lim.Tick = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	m, err := kernel.Boot(ctx, lim, nil)
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	defer m.Shutdown()

	d := &demo_t{work: 64}
	pid, err := m.Spawn("demo", mktext(d, 3), "main")
	if err != nil {
		t.Fatalf("%v", err)
	}
	st, err := m.Wait(ctx, pid)
	if err != nil {
		t.Fatalf("%v\n%s", err, m.Dmesg())
	}
	if st != 0 {
		t.Fatalf("exit status %d", st)
	}
	if len(d.results) != 4 {
		t.Fatalf("joined %d threads, want 4", len(d.results))
	}
	for i, r := range d.results {
		if r.ret != 0 {
			t.Errorf("join tid %d: %d", r.tid, r.ret)
		}
		want := 64 * 65 / 2
		if i == 3 {
			want = -1
		}
		if r.status != want {
			t.Errorf("tid %d: status %d, want %d", r.tid, r.status, want)
		}
	}
}
