package defs

/// System call numbers. Arguments are passed in TF_RDI, TF_RSI, TF_RDX,
/// TF_R10, TF_R8 and TF_R9; the result is returned in TF_RAX.
const (
	SYS_EXIT           = 2
	SYS_KILL           = 6
	SYS_GETPID         = 11
	SYS_SBRK           = 12
	SYS_SLEEP          = 13
	SYS_UPTIME         = 14
	SYS_KTHREAD_CREATE = 22
	SYS_KTHREAD_ID     = 23
	SYS_KTHREAD_KILL   = 24
	SYS_KTHREAD_EXIT   = 25
	SYS_KTHREAD_JOIN   = 26
)

/// Sysargs lists the trap frame slots carrying system call arguments.
var Sysargs = [...]int{TF_RDI, TF_RSI, TF_RDX, TF_R10, TF_R8, TF_R9}
