// Package tinfo describes threads to code outside the process table:
// the profiler and the console dump read snapshots instead of slots.
package tinfo

import "sort"
import "sync"

import "kthreads/src/defs"

/// Tnote_t is a point-in-time copy of one thread slot.
type Tnote_t struct {
	Pid    defs.Pid_t
	Tid    defs.Tid_t
	Slot   int
	State  string
	Killed bool
	// wait channel while sleeping, else zero
	Chan   uintptr
	Kstack uintptr
	// user pc the thread was started at and its text name
	Entry  uintptr
	Func   string
	Userns int64
	Sysns  int64
}

/// Threadinfo_t tracks thread notes by thread id.
type Threadinfo_t struct {
	Notes map[defs.Tid_t]*Tnote_t
	sync.Mutex
}

/// Init initializes the thread info map.
func (t *Threadinfo_t) Init() {
	t.Notes = make(map[defs.Tid_t]*Tnote_t)
}

/// Add records n, replacing any note with the same id.
func (t *Threadinfo_t) Add(n *Tnote_t) {
	t.Lock()
	defer t.Unlock()
	if t.Notes == nil {
		panic("nuts")
	}
	t.Notes[n.Tid] = n
}

/// Sorted returns the notes ordered by thread id.
func (t *Threadinfo_t) Sorted() []*Tnote_t {
	t.Lock()
	defer t.Unlock()
	ret := make([]*Tnote_t, 0, len(t.Notes))
	for _, n := range t.Notes {
		ret = append(ret, n)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Tid < ret[j].Tid
	})
	return ret
}
