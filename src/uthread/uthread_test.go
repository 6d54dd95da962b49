package uthread

import "strings"
import "testing"

func TestPriority(t *testing.T) {
	l := Mklib()
	var trace strings.Builder
	mk := func(name string) func() {
		return func() {
			for i := 0; i < 3; i++ {
				trace.WriteString(name)
				l.Yield()
			}
		}
	}
	if l.Create(mk("A"), LOW) < 0 || l.Create(mk("B"), HIGH) < 0 || l.Create(mk("C"), HIGH) < 0 {
		t.Fatalf("create failed")
	}
	if r := l.Start_all(); r != 0 {
		t.Fatalf("start_all: %v", r)
	}
	if s := trace.String(); s != "BCBCBCAAA" {
		t.Fatalf("trace %q", s)
	}
	if l.Start_all() != -1 {
		t.Fatalf("second start_all")
	}
}

func TestLimits(t *testing.T) {
	l := Mklib()
	for i := 0; i < MAX_UTHREADS; i++ {
		if tid := l.Create(func() {}, MEDIUM); tid != i+1 {
			t.Fatalf("tid %v", tid)
		}
	}
	if l.Create(func() {}, MEDIUM) != -1 {
		t.Fatalf("create past limit")
	}
	if l.Self() != -1 {
		t.Fatalf("self outside a thread")
	}
	l.Start_all()
	// exited slots are free again
	if l.Create(func() {}, LOW) != MAX_UTHREADS+1 {
		t.Fatalf("slot not reused")
	}
}

func TestSetPriority(t *testing.T) {
	l := Mklib()
	var trace strings.Builder
	var old, got Prio_t
	var self int
	l.Create(func() {
		trace.WriteString("a")
		self = l.Self()
		old = l.Set_priority(HIGH)
		got = l.Get_priority()
		l.Yield()
		trace.WriteString("a")
	}, MEDIUM)
	l.Create(func() {
		trace.WriteString("b")
		l.Yield()
		trace.WriteString("b")
		l.Exit()
		trace.WriteString("x")
	}, MEDIUM)
	l.Start_all()
	if old != MEDIUM || got != HIGH || self != 1 {
		t.Fatalf("old %v got %v self %v", old, got, self)
	}
	// without the raise a and b would alternate
	if s := trace.String(); s != "aabb" {
		t.Fatalf("trace %q", s)
	}
}
