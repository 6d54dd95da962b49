package mem

/// KERNBASE is the physical address of the first page of the arena.
const KERNBASE Pa_t = 0x80000000

/// MAXVA is one past the highest user virtual address.
const MAXVA uintptr = 1 << 47

/// TRAMPOLINE is the page mapped at the top of every address space.
const TRAMPOLINE uintptr = MAXVA - uintptr(PGSIZE)

/// KSTACK returns the kernel stack address of global thread slot i. Each
/// stack is followed by an unmapped guard page.
func KSTACK(i int) uintptr {
	return TRAMPOLINE - uintptr(i+1)*2*uintptr(PGSIZE)
}

/// KSTACKSIZE is the size of one kernel stack.
const KSTACKSIZE = PGSIZE

/// USERTEXT is where a process's user text is placed.
const USERTEXT uintptr = 0x1000

/// USERHEAP is the initial program break.
const USERHEAP uintptr = 0x400000

/// USTACKTOP is one past the top of the primary thread's user stack.
const USTACKTOP uintptr = 0x7fff0000
