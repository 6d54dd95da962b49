package vm

import "sync"

import "kthreads/src/defs"
import "kthreads/src/mem"
import "kthreads/src/util"

// / Vm_t represents a process address space: a four level page map over
// / pages from the physical allocator. The mutex protects Pmap, P_pmap and
// / every page table page reachable from them.
type Vm_t struct {
	// lock for pmap and p_pmap
	sync.Mutex

	// pmap pages
	Pmap   *mem.Pmap_t
	P_pmap mem.Pa_t

	phys mem.Page_i

	pgfltaken bool
}

// / Vm_init allocates the top level page map. It returns -ENOMEM when the
// / allocator is exhausted.
func (as *Vm_t) Vm_init(phys mem.Page_i) defs.Err_t {
	if as.Pmap != nil {
		panic("vm already initialized")
	}
	pg, p_pg, ok := phys.Refpg_new()
	if !ok {
		return -defs.ENOMEM
	}
	phys.Refup(p_pg)
	as.phys = phys
	as.Pmap = mem.Pg2pmap(pg)
	as.P_pmap = p_pg
	return 0
}

// / Lock_pmap acquires the address space mutex.
func (as *Vm_t) Lock_pmap() {
	// useful for finding deadlock bugs with one cpu
	//if p.pgfltaken {
	//	panic("double lock")
	//}
	as.Lock()
	as.pgfltaken = true
}

// / Unlock_pmap releases the address space mutex after page table
// / manipulation is complete.
func (as *Vm_t) Unlock_pmap() {
	as.pgfltaken = false
	as.Unlock()
}

// / Lockassert_pmap panics if the address space mutex is not held.
func (as *Vm_t) Lockassert_pmap() {
	if !as.pgfltaken {
		panic("pgfl lock must be held")
	}
}

func shl(c uint) uint {
	return 12 + 9*c
}

func pgbits(v uint) (uint, uint, uint, uint) {
	lb := func(c uint) uint {
		return (v >> shl(c)) & 0x1ff
	}
	return lb(3), lb(2), lb(1), lb(0)
}

// returns a pointer to the last level pte for va, allocating intermediate
// page table pages when create is set.
func (as *Vm_t) pmap_walk(va uintptr, create bool) (*mem.Pa_t, defs.Err_t) {
	as.Lockassert_pmap()
	if as.Pmap == nil || va >= mem.MAXVA {
		return nil, -defs.EFAULT
	}
	l4, l3, l2, l1 := pgbits(uint(va))
	pm := as.Pmap
	for _, idx := range [...]uint{l4, l3, l2} {
		pte := &pm[idx]
		if *pte&mem.PTE_P == 0 {
			if !create {
				return nil, -defs.EFAULT
			}
			_, p_pg, ok := as.phys.Refpg_new()
			if !ok {
				return nil, -defs.ENOMEM
			}
			as.phys.Refup(p_pg)
			*pte = p_pg | mem.PTE_P | mem.PTE_W | mem.PTE_U
		}
		pm = mem.Pg2pmap(as.phys.Dmap(*pte & mem.PTE_ADDR))
	}
	return &pm[l1], 0
}

// / Mmap maps fresh zeroed pages over [va, va+len). Pages already mapped
// / are left alone. On failure every page mapped by this call is unmapped
// / again.
func (as *Vm_t) Mmap(va, len int, perms mem.Pa_t) defs.Err_t {
	if va < 0 || len <= 0 {
		return -defs.EINVAL
	}
	as.Lock_pmap()
	defer as.Unlock_pmap()

	start := util.Rounddown(va, mem.PGSIZE)
	end := util.Roundup(va+len, mem.PGSIZE)
	var added []int
	for a := start; a < end; a += mem.PGSIZE {
		pte, err := as.pmap_walk(uintptr(a), true)
		if err == 0 && *pte&mem.PTE_P != 0 {
			continue
		}
		var p_pg mem.Pa_t
		ok := false
		if err == 0 {
			_, p_pg, ok = as.phys.Refpg_new()
		}
		if !ok {
			for _, u := range added {
				as._page_remove(uintptr(u))
			}
			if err == 0 {
				err = -defs.ENOMEM
			}
			return err
		}
		as.phys.Refup(p_pg)
		*pte = p_pg | perms | mem.PTE_P | mem.PTE_U
		added = append(added, a)
	}
	return 0
}

// / Mmap_load maps pages over [va, va+len(src)) with perms and fills them
// / with src, the way a loader places a segment. Read-only segments are
// / filled too.
func (as *Vm_t) Mmap_load(va int, src []uint8, perms mem.Pa_t) defs.Err_t {
	if err := as.Mmap(va, len(src), perms); err != 0 {
		return err
	}
	as.Lock_pmap()
	defer as.Unlock_pmap()
	for cnt := 0; cnt < len(src); {
		pte, err := as.pmap_walk(uintptr(va+cnt), false)
		if err != 0 {
			panic("segment vanished")
		}
		voff := (va + cnt) & int(mem.PGOFFSET)
		dst := mem.Pg2bytes(as.phys.Dmap(*pte & mem.PTE_ADDR))[voff:]
		cnt += copy(dst, src[cnt:])
	}
	return 0
}

// / Munmap removes the mappings in [va, va+len).
func (as *Vm_t) Munmap(va, len int) {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	start := util.Rounddown(va, mem.PGSIZE)
	end := util.Roundup(va+len, mem.PGSIZE)
	for a := start; a < end; a += mem.PGSIZE {
		as._page_remove(uintptr(a))
	}
}

func (as *Vm_t) _page_remove(va uintptr) bool {
	pte, err := as.pmap_walk(va, false)
	if err != 0 || *pte&mem.PTE_P == 0 {
		return false
	}
	as.phys.Refdown(*pte & mem.PTE_ADDR)
	*pte = 0
	return true
}

// / Userdmap8_inner returns a slice mapping of the user address at va, up
// / to the end of its page. When k2u is true the page must be writable.
func (as *Vm_t) Userdmap8_inner(va int, k2u bool) ([]uint8, defs.Err_t) {
	as.Lockassert_pmap()

	if va < 0 {
		return nil, -defs.EFAULT
	}
	voff := va & int(mem.PGOFFSET)
	pte, err := as.pmap_walk(uintptr(va), false)
	if err != 0 {
		return nil, err
	}
	if *pte&mem.PTE_P == 0 || *pte&mem.PTE_U == 0 {
		return nil, -defs.EFAULT
	}
	if k2u && *pte&mem.PTE_W == 0 {
		return nil, -defs.EFAULT
	}
	pg := as.phys.Dmap(*pte & mem.PTE_ADDR)
	bpg := mem.Pg2bytes(pg)
	return bpg[voff:], 0
}

// / K2user copies src into the user virtual address space starting at
// / uva. Nothing is written unless the whole destination is mapped
// / writable.
func (as *Vm_t) K2user(src []uint8, uva int) defs.Err_t {
	as.Lock_pmap()
	ret := as.K2user_inner(src, uva)
	as.Unlock_pmap()
	return ret
}

func (as *Vm_t) K2user_inner(src []uint8, uva int) defs.Err_t {
	as.Lockassert_pmap()
	for cnt := 0; cnt < len(src); {
		dst, err := as.Userdmap8_inner(uva+cnt, true)
		if err != 0 {
			return err
		}
		cnt += len(dst)
	}
	cnt := 0
	for len(src) != 0 {
		dst, _ := as.Userdmap8_inner(uva+cnt, true)
		did := copy(dst, src)
		src = src[did:]
		cnt += did
	}
	return 0
}

// / User2k copies len(dst) bytes from the user virtual address uva
// / into dst. It returns an error code if the read fails.
func (as *Vm_t) User2k(dst []uint8, uva int) defs.Err_t {
	as.Lock_pmap()
	ret := as.User2k_inner(dst, uva)
	as.Unlock_pmap()
	return ret
}

func (as *Vm_t) User2k_inner(dst []uint8, uva int) defs.Err_t {
	as.Lockassert_pmap()
	cnt := 0
	for len(dst) != 0 {
		src, err := as.Userdmap8_inner(uva+cnt, false)
		if err != 0 {
			return err
		}
		did := copy(dst, src)
		dst = dst[did:]
		cnt += did
	}
	return 0
}

// / Uvmfree releases all user mappings and page tables associated
// / with this address space.
func (as *Vm_t) Uvmfree() {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	if as.Pmap == nil {
		return
	}
	as._uvmfree(as.Pmap, 3)
	as.phys.Refdown(as.P_pmap)
	as.Pmap = nil
	as.P_pmap = 0
}

func (as *Vm_t) _uvmfree(pm *mem.Pmap_t, lev int) {
	for i, pte := range pm {
		if pte&mem.PTE_P == 0 {
			continue
		}
		p_pg := pte & mem.PTE_ADDR
		if lev > 0 {
			as._uvmfree(mem.Pg2pmap(as.phys.Dmap(p_pg)), lev-1)
		}
		as.phys.Refdown(p_pg)
		pm[i] = 0
	}
}

// / Mkuserbuf allocates and initializes a Userbuf_t referencing user
// / memory starting at userva.
func (as *Vm_t) Mkuserbuf(userva, len int) *Userbuf_t {
	ret := &Userbuf_t{}
	ret.ub_init(as, userva, len)
	return ret
}
