// Package arch implements the context switch. Every kernel context runs on
// its own goroutine; a switch resumes the target context and parks the
// caller until some other context switches back to it.
package arch

import "fmt"
import "sync"

/// Context_t holds the callee-saved registers of a stopped kernel context.
/// Ra is the kernel text address a fresh context starts at.
type Context_t struct {
	Ra uintptr
	Sp uintptr
	S  [12]uintptr
	g  *gctx_t
}

type gctx_t struct {
	// buffered so that a resume may precede the park
	wake chan struct{}
	// closed when the context is discarded while parked
	dead chan struct{}
}

func mkgctx() *gctx_t {
	return &gctx_t{wake: make(chan struct{}, 1), dead: make(chan struct{})}
}

/// Kfunc_t is a kernel text routine. It receives the context it runs on.
type Kfunc_t func(*Context_t)

type ktext_t struct {
	sync.Mutex
	funcs map[uintptr]Kfunc_t
	names map[uintptr]string
	next  uintptr
}

var ktext = ktext_t{
	funcs: make(map[uintptr]Kfunc_t),
	names: make(map[uintptr]string),
	next:  KTEXT,
}

/// KTEXT is the address of the first registered kernel routine.
const KTEXT uintptr = 0x80001000

/// Kfunc registers fn as kernel text and returns its address.
func Kfunc(name string, fn Kfunc_t) uintptr {
	ktext.Lock()
	defer ktext.Unlock()
	pc := ktext.next
	ktext.next += 0x10
	ktext.funcs[pc] = fn
	ktext.names[pc] = name
	return pc
}

/// Ksym returns the name registered for kernel text address pc.
func Ksym(pc uintptr) string {
	ktext.Lock()
	defer ktext.Unlock()
	if n, ok := ktext.names[pc]; ok {
		return n
	}
	return fmt.Sprintf("%#x", pc)
}

func kfunc(pc uintptr) Kfunc_t {
	ktext.Lock()
	defer ktext.Unlock()
	fn, ok := ktext.funcs[pc]
	if !ok {
		panic(fmt.Sprintf("no kernel text at %#x", pc))
	}
	return fn
}

func (c *Context_t) gctx() *gctx_t {
	if c.g == nil {
		c.g = mkgctx()
	}
	return c.g
}

// resume starts nc at its Ra if it has never run, otherwise wakes it.
func resume(nc *Context_t) {
	if nc.g == nil {
		nc.g = mkgctx()
		fn := kfunc(nc.Ra)
		go fn(nc)
		return
	}
	select {
	case nc.g.wake <- struct{}{}:
	default:
		panic("double resume")
	}
}

/// Swtch saves the caller in old and resumes new. It returns true when
/// another context switches back to old, and false if old was discarded by
/// Reset while parked; in that case the caller must not touch any kernel
/// state it was switched away with.
func Swtch(old, new *Context_t) bool {
	if old == new {
		panic("swtch to self")
	}
	og := old.gctx()
	resume(new)
	select {
	case <-og.wake:
		return true
	case <-og.dead:
		return false
	}
}

/// Swtch_exit resumes new and abandons the caller's context. The caller
/// must end its goroutine without returning into kernel code.
func Swtch_exit(old, new *Context_t) {
	if old == new {
		panic("swtch to self")
	}
	resume(new)
}

/// Reset discards a stopped context so that the next resume starts it
/// afresh. A goroutine parked on the context is told it is dead.
func (c *Context_t) Reset() {
	if c.g != nil {
		close(c.g.dead)
	}
	*c = Context_t{}
}

/// Started reports whether the context has ever been resumed.
func (c *Context_t) Started() bool {
	return c.g != nil
}
