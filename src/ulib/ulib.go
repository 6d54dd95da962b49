// Package ulib is the user-side system call library: typed wrappers that
// user functions call through their Uctx_t.
package ulib

import "kthreads/src/defs"
import "kthreads/src/proc"
import "kthreads/src/util"

func Exit(u *proc.Uctx_t, status int) {
	u.Syscall(defs.SYS_EXIT, uintptr(status))
	panic("exit returned")
}

func Kill(u *proc.Uctx_t, pid defs.Pid_t) int {
	return u.Syscall(defs.SYS_KILL, uintptr(pid))
}

func Getpid(u *proc.Uctx_t) defs.Pid_t {
	return defs.Pid_t(u.Syscall(defs.SYS_GETPID))
}

// Sbrk grows the heap by n bytes and returns the old break, or 0.
func Sbrk(u *proc.Uctx_t, n int) uintptr {
	r := u.Syscall(defs.SYS_SBRK, uintptr(n))
	if r < 0 {
		return 0
	}
	return uintptr(r)
}

func Sleep(u *proc.Uctx_t, ticks int) int {
	return u.Syscall(defs.SYS_SLEEP, uintptr(ticks))
}

func Uptime(u *proc.Uctx_t) int {
	return u.Syscall(defs.SYS_UPTIME)
}

// Kthread_create starts the program's function fn on the stack
// [stack, stack+size).
func Kthread_create(u *proc.Uctx_t, fn string, stack uintptr, size int) defs.Tid_t {
	return defs.Tid_t(u.Syscall(defs.SYS_KTHREAD_CREATE, u.Sym(fn), stack, uintptr(size)))
}

func Kthread_id(u *proc.Uctx_t) defs.Tid_t {
	return defs.Tid_t(u.Syscall(defs.SYS_KTHREAD_ID))
}

func Kthread_kill(u *proc.Uctx_t, tid defs.Tid_t) int {
	return u.Syscall(defs.SYS_KTHREAD_KILL, uintptr(tid))
}

func Kthread_exit(u *proc.Uctx_t, status int) {
	u.Syscall(defs.SYS_KTHREAD_EXIT, uintptr(status))
	panic("kthread_exit returned")
}

func Kthread_join(u *proc.Uctx_t, tid defs.Tid_t, status uintptr) int {
	return u.Syscall(defs.SYS_KTHREAD_JOIN, uintptr(tid), status)
}

// Readint reads the 32-bit signed value at uva.
func Readint(u *proc.Uctx_t, uva uintptr) int {
	return int(int32(util.Readn(u.Read(uva, 4), 4, 0)))
}
