package defs

/// Trap vectors delivered to usertrap.
const (
	DIVZERO = 0
	UD      = 6
	GPFAULT = 13
	PGFAULT = 14
	TIMER   = 32
	SYSCALL = 64
)

/// SIGNALED marks an exit status produced by a fatal trap rather than by an
/// explicit exit call.
const SIGNALED = 1 << 11

/// SIGSHIFT positions the trap number within a signaled exit status.
const SIGSHIFT = 27

/// Mkexitsig encodes trap number sig into an exit status.
func Mkexitsig(sig int) int {
	if sig < 0 || sig > 32 {
		panic("bad sig")
	}
	return sig << SIGSHIFT
}

/// Trapname returns a short name for a trap vector.
func Trapname(intno int) string {
	switch intno {
	case DIVZERO:
		return "divide error"
	case UD:
		return "invalid opcode"
	case GPFAULT:
		return "general protection fault"
	case PGFAULT:
		return "page fault"
	case TIMER:
		return "timer"
	case SYSCALL:
		return "syscall"
	}
	return "unknown trap"
}
