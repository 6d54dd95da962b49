package spinlock

import "sync"
import "testing"

func TestHandoff(t *testing.T) {
	var lk Spinlock_t
	lk.Init("handoff")
	lk.Acquire()
	if !lk.Holding() {
		t.Fatalf("lock not held after acquire")
	}
	done := make(chan bool)
	go func() {
		lk.Release()
		done <- true
	}()
	<-done
	if lk.Holding() {
		t.Fatalf("lock still held after release by another goroutine")
	}
	if !lk.Tryacquire() {
		t.Fatalf("tryacquire of free lock failed")
	}
	if lk.Tryacquire() {
		t.Fatalf("tryacquire of held lock succeeded")
	}
	lk.Release()
}

func TestReleaseFree(t *testing.T) {
	var lk Spinlock_t
	lk.Init("free")
	defer func() {
		if recover() == nil {
			t.Fatalf("release of free lock did not panic")
		}
	}()
	lk.Release()
}

func TestCounter(t *testing.T) {
	var lk Spinlock_t
	n := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				lk.Acquire()
				n++
				lk.Release()
			}
		}()
	}
	wg.Wait()
	if n != 8000 {
		t.Fatalf("got %d, want 8000", n)
	}
}
