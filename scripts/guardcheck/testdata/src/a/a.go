package a

type Spinlock_t struct{ held bool }

func (l *Spinlock_t) Acquire() { l.held = true }
func (l *Spinlock_t) Release() { l.held = false }

type mutex_t struct{}

func (m *mutex_t) Acquire() {}
func (m *mutex_t) Release() {}

type thread_t struct {
	lock  Spinlock_t
	other Spinlock_t
	mu    mutex_t
	state int
}

func guarded(t *thread_t) int {
	t.lock.Acquire()
	defer t.lock.Release()
	return t.state
}

func unguarded(t *thread_t) int {
	t.lock.Acquire() // want `t.lock.Acquire\(\) without a deferred Release`
	s := t.state
	t.lock.Release()
	return s
}

func mismatched(t *thread_t) {
	t.lock.Acquire() // want `t.lock.Acquire\(\) without a deferred Release`
	defer t.other.Release()
}

func inloop(ts []thread_t) {
	for i := range ts {
		ts[i].lock.Acquire() // want `ts\[i\].lock.Acquire\(\) without a deferred Release`
		ts[i].state++
		ts[i].lock.Release()
	}
}

func inclosure(t *thread_t) {
	func() {
		t.other.Acquire()
		defer t.other.Release()
	}()
	func() {
		t.other.Acquire() // want `t.other.Acquire\(\) without a deferred Release`
	}()
}

func inswitch(t *thread_t) {
	switch t.state {
	case 1:
		t.lock.Acquire() // want `t.lock.Acquire\(\) without a deferred Release`
	}
}

// notspin uses a lock type the check does not cover.
func notspin(t *thread_t) {
	t.mu.Acquire()
	t.mu.Release()
}

// handoff returns with the lock held.
//
//kt:handoff
func handoff(t *thread_t) {
	t.lock.Acquire()
}
