package accnt

import "sync"
import "sync/atomic"
import "time"

/**
 * Accnt_t accumulates CPU time for a thread or a process.
 *
 * Both Userns and Sysns store runtime in nanoseconds. A thread charges its
 * own record with the atomic adders; the embedded mutex serializes merges
 * of a finished thread's record into its process.
 */
type Accnt_t struct {
	/// Nanoseconds of user time consumed.
	Userns int64
	/// Nanoseconds of system time consumed.
	Sysns int64
	/// Protects merges and snapshots.
	sync.Mutex
}

/// Utadd adds delta nanoseconds to the user-time counter.
///
/// @param delta Amount to add in nanoseconds.
func (a *Accnt_t) Utadd(delta int) {
	atomic.AddInt64(&a.Userns, int64(delta))
}

/// Systadd adds delta nanoseconds to the system-time counter.
///
/// @param delta Amount to add in nanoseconds.
func (a *Accnt_t) Systadd(delta int) {
	atomic.AddInt64(&a.Sysns, int64(delta))
}

/// Now returns the current time in nanoseconds.
///
/// @return Current time since Unix epoch in nanoseconds.
func (a *Accnt_t) Now() int {
	return int(time.Now().UnixNano())
}

/// Sleep_time removes time spent sleeping from system time.
///
/// @param since Timestamp when the sleep began, in nanoseconds.
func (a *Accnt_t) Sleep_time(since int) {
	d := a.Now() - since
	a.Systadd(-d)
}

/// Finish charges the time since @p inttime to system time.
///
/// @param inttime Start time of the kernel entry in nanoseconds.
func (a *Accnt_t) Finish(inttime int) {
	a.Systadd(a.Now() - inttime)
}

/// Add merges another accounting record into this one.
///
/// @param n Record to merge.
func (a *Accnt_t) Add(n *Accnt_t) {
	u, s := n.Snapshot()
	a.Lock()
	a.Userns += u
	a.Sysns += s
	a.Unlock()
}

/// Snapshot returns the user and system nanoseconds recorded so far.
func (a *Accnt_t) Snapshot() (int64, int64) {
	a.Lock()
	defer a.Unlock()
	return atomic.LoadInt64(&a.Userns), atomic.LoadInt64(&a.Sysns)
}

/// Reset clears the record.
func (a *Accnt_t) Reset() {
	a.Lock()
	atomic.StoreInt64(&a.Userns, 0)
	atomic.StoreInt64(&a.Sysns, 0)
	a.Unlock()
}
