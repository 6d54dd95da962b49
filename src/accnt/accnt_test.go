package accnt

import "testing"

func TestMerge(t *testing.T) {
	var thr, proc Accnt_t
	thr.Utadd(100)
	thr.Systadd(50)
	start := thr.Now() - 1000
	thr.Finish(start)
	u, s := thr.Snapshot()
	if u != 100 || s < 1050 {
		t.Fatalf("thread record %d/%d", u, s)
	}
	proc.Add(&thr)
	proc.Add(&thr)
	pu, ps := proc.Snapshot()
	if pu != 200 || ps != 2*s {
		t.Fatalf("process record %d/%d", pu, ps)
	}
	thr.Reset()
	if u, s := thr.Snapshot(); u != 0 || s != 0 {
		t.Fatalf("reset left %d/%d", u, s)
	}
}
