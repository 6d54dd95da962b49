// Package sys is the system call table.
package sys

import "kthreads/src/defs"
import "kthreads/src/proc"

/// Sys_t dispatches system calls to the process table.
type Sys_t struct {
	pt *proc.Ptable_t
}

/// Mksys returns the system call table for pt.
func Mksys(pt *proc.Ptable_t) *Sys_t {
	return &Sys_t{pt: pt}
}

/// Syscall runs the call in tf for kt. Kernel errors are folded to -1.
func (s *Sys_t) Syscall(kt *proc.Kthread_t, tf *defs.Tf_t) int {
	sysno := int(tf[defs.TF_RAX])
	a1 := int(tf[defs.TF_RDI])
	a2 := int(tf[defs.TF_RSI])
	a3 := int(tf[defs.TF_RDX])

	ret := int(-defs.ENOSYS)
	switch sysno {
	case defs.SYS_EXIT:
		sys_exit(kt, a1)
	case defs.SYS_KILL:
		ret = s.sys_kill(a1)
	case defs.SYS_GETPID:
		ret = sys_getpid(kt)
	case defs.SYS_SBRK:
		ret = sys_sbrk(kt, a1)
	case defs.SYS_SLEEP:
		ret = s.sys_sleep(kt, a1)
	case defs.SYS_UPTIME:
		ret = s.pt.Uptime()
	case defs.SYS_KTHREAD_CREATE:
		ret = sys_kthread_create(kt, uintptr(a1), uintptr(a2), a3)
	case defs.SYS_KTHREAD_ID:
		ret = int(kt.Tid())
	case defs.SYS_KTHREAD_KILL:
		ret = int(kt.Kthread_kill(defs.Tid_t(a1)))
	case defs.SYS_KTHREAD_EXIT:
		kt.Exit(a1)
	case defs.SYS_KTHREAD_JOIN:
		ret = int(kt.Join(defs.Tid_t(a1), uintptr(a2)))
	default:
		ret = int(s.pt.Log.Errorf(-defs.ENOSYS, "pid %d: syscall %d", kt.Proc().Pid, sysno))
	}
	if ret < 0 {
		return -1
	}
	return ret
}

func sys_exit(kt *proc.Kthread_t, status int) {
	kt.Exit_proc(status)
}

func (s *Sys_t) sys_kill(pid int) int {
	return int(s.pt.Kill(defs.Pid_t(pid)))
}

func sys_getpid(kt *proc.Kthread_t) int {
	return int(kt.Proc().Pid)
}

func sys_sbrk(kt *proc.Kthread_t, n int) int {
	old, err := kt.Proc().Growproc(n)
	if err != 0 {
		return int(err)
	}
	return old
}

// sys_sleep sleeps for n ticks. It fails if the caller is killed first.
func (s *Sys_t) sys_sleep(kt *proc.Kthread_t, n int) int {
	if n < 0 {
		return int(-defs.EINVAL)
	}
	pt := s.pt
	pt.Tickslock.Acquire()
	defer pt.Tickslock.Release()
	t0 := pt.Ticks()
	for pt.Ticks()-t0 < n {
		if kt.Killed() {
			return int(-defs.EINTR)
		}
		kt.Sleep(pt.Tickchan(), &pt.Tickslock)
	}
	return 0
}

func sys_kthread_create(kt *proc.Kthread_t, start, stack uintptr, stacksz int) int {
	tid, err := kt.Kthread_create(start, stack, stacksz)
	if err != 0 {
		return int(err)
	}
	return int(tid)
}
