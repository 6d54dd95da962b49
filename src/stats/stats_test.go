package stats

import "strings"
import "sync"
import "testing"

type ctrs_t struct {
	Nthing  Counter_t
	Nother  Counter_t
	Waiting Cycles_t
	ignored int
}

func TestStats2String(t *testing.T) {
	var c ctrs_t
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Nthing.Inc()
			}
		}()
	}
	wg.Wait()
	c.Nother.Inc()
	if c.Nthing.Get() != 4000 {
		t.Fatalf("counter %d", c.Nthing.Get())
	}
	s := Stats2String(&c)
	if !strings.Contains(s, "#Nthing: 4,000") {
		t.Fatalf("no grouped counter in %q", s)
	}
	if !strings.Contains(s, "#Nother: 1") || !strings.Contains(s, "#Waiting: ") {
		t.Fatalf("missing fields in %q", s)
	}
	if strings.Contains(s, "ignored") {
		t.Fatalf("non-counter field printed")
	}
}

func TestCycles(t *testing.T) {
	var c Cycles_t
	st := Rdtsc()
	for i := 0; i < 1000; i++ {
		_ = i * i
	}
	c.Add(st)
	if c.Get() < 0 {
		t.Fatalf("negative elapsed time")
	}
}
