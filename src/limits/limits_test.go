package limits

import "sync"
import "testing"

func TestDefaults(t *testing.T) {
	l := MkSysLimit()
	if err := l.Validate(); err != nil {
		t.Fatalf("default limits invalid: %v", err)
	}
	if l.Ncpu < 1 {
		t.Fatalf("ncpu %d", l.Ncpu)
	}
}

func TestValidate(t *testing.T) {
	bad := []func(*Syslimit_t){
		func(l *Syslimit_t) { l.Nproc = 0 },
		func(l *Syslimit_t) { l.Nkt = -1 },
		func(l *Syslimit_t) { l.Nkt = 1000 },
		func(l *Syslimit_t) { l.Ncpu = 0 },
		func(l *Syslimit_t) { l.Physpages = 1 },
		func(l *Syslimit_t) { l.Maxstack = 0 },
		func(l *Syslimit_t) { l.Tick = 0 },
		func(l *Syslimit_t) { l.Klogsz = 1 << 20 },
	}
	for i, f := range bad {
		l := MkSysLimit()
		f(l)
		if l.Validate() == nil {
			t.Fatalf("case %d: bad limits accepted", i)
		}
	}
}

func TestSysatomic(t *testing.T) {
	var s Sysatomic_t = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	got := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if s.Take() {
					mu.Lock()
					got++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	if got != 100 || s.Left() != 0 {
		t.Fatalf("took %d, left %d", got, s.Left())
	}
	if s.Take() {
		t.Fatalf("take from empty limit")
	}
	s.Give()
	if !s.Take() {
		t.Fatalf("take after give")
	}
}
