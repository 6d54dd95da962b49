// Package defs holds the types and constants shared by the kernel packages
// and the user-visible system call interface.
package defs

/// Tid_t is a thread identifier. Identifiers are scoped to their process.
type Tid_t int

/// NOTID marks a thread slot that holds no thread.
const NOTID Tid_t = -1

/// Pid_t is a process identifier.
type Pid_t int

/// Trap frame layout. The frame is an array of machine words; user
/// registers and the hardware-pushed words are addressed by these indices.
const (
	TFSIZE    = 24
	TFREGS    = 17
	TF_FSBASE = 1
	TF_R15    = 2
	TF_R14    = 3
	TF_R13    = 4
	TF_R12    = 5
	TF_R11    = 6
	TF_R10    = 7
	TF_R9     = 8
	TF_R8     = 9
	TF_RBP    = 10
	TF_RSI    = 11
	TF_RDI    = 12
	TF_RDX    = 13
	TF_RCX    = 14
	TF_RBX    = 15
	TF_RAX    = 16
	TF_TRAP   = TFREGS
	TF_ERROR  = TFREGS + 1
	TF_RIP    = TFREGS + 2
	TF_CS     = TFREGS + 3
	TF_RFLAGS = TFREGS + 4
	TF_RSP    = TFREGS + 5
	TF_SS     = TFREGS + 6
)

/// Tf_t is the user-mode register image saved on kernel entry.
type Tf_t [TFSIZE]uintptr
