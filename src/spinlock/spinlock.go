// Package spinlock provides the kernel's mutual-exclusion lock. A held
// Spinlock_t may be released by a different goroutine than the one that
// acquired it; the scheduler relies on this to hand a thread's slot lock
// across a context switch.
package spinlock

import "sync"
import "sync/atomic"

/// Spinlock_t is a named kernel lock.
type Spinlock_t struct {
	mu     sync.Mutex
	locked atomic.Bool
	name   string
}

/// Init names the lock. The zero Spinlock_t is an unlocked, unnamed lock.
func (lk *Spinlock_t) Init(name string) {
	if lk.locked.Load() {
		panic("init of held lock " + name)
	}
	lk.name = name
}

/// Name returns the lock's name.
func (lk *Spinlock_t) Name() string {
	return lk.name
}

/// Acquire takes the lock, waiting until it is available.
func (lk *Spinlock_t) Acquire() {
	lk.mu.Lock()
	lk.locked.Store(true)
}

/// Tryacquire takes the lock if it is free and reports whether it did.
func (lk *Spinlock_t) Tryacquire() bool {
	if !lk.mu.TryLock() {
		return false
	}
	lk.locked.Store(true)
	return true
}

/// Release drops the lock. Releasing a lock that is not held is fatal.
func (lk *Spinlock_t) Release() {
	if !lk.locked.Load() {
		panic("release of free lock " + lk.name)
	}
	lk.locked.Store(false)
	lk.mu.Unlock()
}

/// Holding reports whether the lock is currently held by anyone.
func (lk *Spinlock_t) Holding() bool {
	return lk.locked.Load()
}
