package limits

import "fmt"
import "time"
import "unsafe"
import "sync/atomic"

import "kthreads/src/defs"
import "kthreads/src/mem"

/// Lhits counts limit hits.
var Lhits int

/// Sysatomic_t is a numeric limit that can be atomically updated.
type Sysatomic_t int64

/// Syslimit_t holds the machine configuration and the system wide
/// resource limits.
type Syslimit_t struct {
	// process table slots
	Nproc int
	// thread slots per process
	Nkt int
	// scheduler CPUs
	Ncpu int
	// physical pages backing the machine
	Physpages int
	// pages mapped for a process's primary thread stack
	Ustackpages int
	// largest stack accepted by kthread_create
	Maxstack int
	// timer interrupt period
	Tick time.Duration
	// bytes of console history kept for dmesg
	Klogsz int
	// live kernel threads across all processes
	Kthreads Sysatomic_t
}

/// Syslimit describes the configured system wide limits.
var Syslimit *Syslimit_t = MkSysLimit()

/// MkSysLimit returns a pointer to the default set of limits.
func MkSysLimit() *Syslimit_t {
	return &Syslimit_t{
		Nproc:       16,
		Nkt:         8,
		Ncpu:        defncpu(),
		Physpages:   1 << 12,
		Ustackpages: 4,
		Maxstack:    1 << 16,
		Tick:        10 * time.Millisecond,
		Klogsz:      mem.PGSIZE,
		Kthreads:    1e4,
	}
}

/// Validate reports the first limit that the kernel cannot run with.
func (s *Syslimit_t) Validate() error {
	tfsz := int(unsafe.Sizeof(defs.Tf_t{}))
	switch {
	case s.Nproc <= 0:
		return fmt.Errorf("nproc %d: must be positive", s.Nproc)
	case s.Nkt <= 0:
		return fmt.Errorf("nkt %d: must be positive", s.Nkt)
	case s.Nkt*tfsz > mem.PGSIZE:
		return fmt.Errorf("nkt %d: trap frames exceed one page", s.Nkt)
	case s.Ncpu <= 0:
		return fmt.Errorf("ncpu %d: must be positive", s.Ncpu)
	case s.Physpages < s.Nproc:
		return fmt.Errorf("physpages %d: fewer than nproc", s.Physpages)
	case s.Ustackpages <= 0:
		return fmt.Errorf("ustackpages %d: must be positive", s.Ustackpages)
	case s.Maxstack <= 0:
		return fmt.Errorf("maxstack %d: must be positive", s.Maxstack)
	case s.Tick <= 0:
		return fmt.Errorf("tick %v: must be positive", s.Tick)
	case s.Klogsz <= 0 || s.Klogsz > mem.PGSIZE:
		return fmt.Errorf("klogsz %d: must be within one page", s.Klogsz)
	}
	return nil
}

func (s *Sysatomic_t) _aptr() *int64 {
	return (*int64)(unsafe.Pointer(s))
}

/// Given increases the limit by the provided amount.
func (s *Sysatomic_t) Given(_n uint) {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	atomic.AddInt64(s._aptr(), n)
}

/// Taken tries to decrement the limit by the provided amount.
/// It returns true on success.
func (s *Sysatomic_t) Taken(_n uint) bool {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	g := atomic.AddInt64(s._aptr(), -n)
	if g >= 0 {
		return true
	}
	atomic.AddInt64(s._aptr(), n)
	return false
}

/// Take decrements the limit and reports whether it succeeded.
func (s *Sysatomic_t) Take() bool {
	return s.Taken(1)
}

/// Give increments the limit by one.
func (s *Sysatomic_t) Give() {
	s.Given(1)
}

/// Left returns the remaining amount.
func (s *Sysatomic_t) Left() int64 {
	return atomic.LoadInt64(s._aptr())
}
