package proc

import "unsafe"

import "kthreads/src/defs"
import "kthreads/src/mem"

const tfsize = int(unsafe.Sizeof(defs.Tf_t{}))

/// Trapframe_for returns slot's entry in p's trap frame region.
func (p *Proc_t) Trapframe_for(slot int) *defs.Tf_t {
	if slot < 0 || slot >= len(p.Kthreads) {
		panic("bad slot")
	}
	b := mem.Pg2bytes(p.ptable.Phys.Dmap(p.p_tfs))
	return (*defs.Tf_t)(unsafe.Pointer(&b[slot*tfsize]))
}

/// Kstacktop returns the top of the slot's kernel stack.
func (kt *Kthread_t) Kstacktop() uintptr {
	return kt.Kstack + uintptr(mem.KSTACKSIZE)
}

// bind gives kt a zeroed trap frame and an extended state page.
func (kt *Kthread_t) bind() defs.Err_t {
	phys := kt.proc.ptable.Phys
	_, p_pg, ok := phys.Refpg_new()
	if !ok {
		return -defs.ENOMEM
	}
	phys.Refup(p_pg)
	kt.fxpg = p_pg
	kt.Trapframe = kt.proc.Trapframe_for(kt.idx)
	*kt.Trapframe = defs.Tf_t{}
	return 0
}

func (kt *Kthread_t) unbind() {
	if kt.fxpg != 0 {
		kt.proc.ptable.Phys.Refdown(kt.fxpg)
		kt.fxpg = 0
	}
	kt.Trapframe = nil
}
