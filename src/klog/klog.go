// Package klog is the kernel console. Every line printed goes to the
// console writer and into a ring of recent output that Dmesg returns.
package klog

import "fmt"
import "io"
import "sync"

import "kthreads/src/circbuf"
import "kthreads/src/defs"
import "kthreads/src/mem"

/// Klog_t is a console plus its history ring.
type Klog_t struct {
	sync.Mutex
	console io.Writer
	ring    circbuf.Circbuf_t
	dropped int
}

/// Mkklog returns a console writing to w, which may be nil, keeping the
/// last histsz bytes of output in a page from m.
func Mkklog(w io.Writer, m mem.Page_i, histsz int) *Klog_t {
	kl := &Klog_t{console: w}
	kl.ring.Cb_init(histsz, m)
	return kl
}

/// Printf formats a message to the console and the history ring.
func (kl *Klog_t) Printf(format string, args ...interface{}) {
	b := []uint8(fmt.Sprintf(format, args...))
	kl.Lock()
	defer kl.Unlock()
	if kl.console != nil {
		kl.console.Write(b)
	}
	if err := kl.ring.Overwrite(b); err != 0 {
		kl.dropped += len(b)
	}
}

/// Dmesg returns the retained console history, oldest first.
func (kl *Klog_t) Dmesg() string {
	kl.Lock()
	defer kl.Unlock()
	if kl.ring.Buf == nil {
		return ""
	}
	r1, r2 := kl.ring.Rawread(0)
	return string(r1) + string(r2)
}

/// Dropped returns the number of bytes that never reached the history
/// ring because no page was available for it.
func (kl *Klog_t) Dropped() int {
	kl.Lock()
	defer kl.Unlock()
	return kl.dropped
}

/// Close releases the history page.
func (kl *Klog_t) Close() {
	kl.Lock()
	defer kl.Unlock()
	kl.ring.Cb_release()
}

/// Errorf logs a failed kernel operation and returns err unchanged.
func (kl *Klog_t) Errorf(err defs.Err_t, format string, args ...interface{}) defs.Err_t {
	kl.Printf("%s: %v\n", fmt.Sprintf(format, args...), err)
	return err
}
