package mem

import "sync"
import "sync/atomic"
import "unsafe"

import "kthreads/src/util"

/// PGSHIFT is the base-2 exponent for the page size.
const PGSHIFT uint = 12

/// PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

/// PGOFFSET masks offsets within a page.
const PGOFFSET Pa_t = 0xfff

/// PGMASK masks the page number of an address.
const PGMASK Pa_t = ^(PGOFFSET)

/// PTE_P marks a page as present.
const PTE_P Pa_t = 1 << 0

/// PTE_W marks a page writable.
const PTE_W Pa_t = 1 << 1

/// PTE_U marks a page user-accessible.
const PTE_U Pa_t = 1 << 2

/// PTE_ADDR extracts the address bits of a PTE.
const PTE_ADDR Pa_t = PGMASK

/// Pa_t represents a physical address. Zero is never a valid page.
type Pa_t uintptr

/// Bytepg_t is a byte addressed page.
type Bytepg_t [PGSIZE]uint8

/// Pg_t is a generic page of ints.
type Pg_t [512]int

/// Pmap_t is a page table page.
type Pmap_t [512]Pa_t

/// Page_i abstracts physical page allocation.
type Page_i interface {
	Refpg_new() (*Pg_t, Pa_t, bool)
	Refpg_new_nozero() (*Pg_t, Pa_t, bool)
	Refcnt(Pa_t) int
	Dmap(Pa_t) *Pg_t
	Refup(Pa_t)
	Refdown(Pa_t) bool
}

/// Pg2bytes converts a page of ints to a page of bytes.
func Pg2bytes(pg *Pg_t) *Bytepg_t {
	return (*Bytepg_t)(unsafe.Pointer(pg))
}

/// Pg2pmap views a page as a page table page.
func Pg2pmap(pg *Pg_t) *Pmap_t {
	return (*Pmap_t)(unsafe.Pointer(pg))
}

func _pg2pgn(p_pg Pa_t) uint32 {
	return uint32(p_pg >> PGSHIFT)
}

/// Physpg_t describes a single physical page.
type Physpg_t struct {
	Refcnt int32
	// index into pgs of next page on free list
	nexti uint32
}

/// Physmem_t manages the machine's physical memory: a fixed arena of pages
/// starting at KERNBASE, each with a reference count, and a free list
/// threaded through the page descriptors.
type Physmem_t struct {
	Pgs    []Physpg_t
	arena  []Pg_t
	startn uint32
	// index into pgs of first free pg
	freei   uint32
	freelen int32
	sync.Mutex
}

/// Phys_init returns an allocator over npages fresh pages.
func Phys_init(npages int) *Physmem_t {
	if npages <= 0 {
		panic("no physical memory")
	}
	phys := &Physmem_t{}
	phys.Pgs = make([]Physpg_t, npages)
	phys.arena = make([]Pg_t, npages)
	phys.startn = _pg2pgn(KERNBASE)
	phys.freei = ^uint32(0)
	for i := npages - 1; i >= 0; i-- {
		phys.Pgs[i].nexti = phys.freei
		phys.freei = uint32(i)
	}
	phys.freelen = int32(npages)
	return phys
}

func (phys *Physmem_t) _pgidx(p_pg Pa_t) uint32 {
	pgn := _pg2pgn(p_pg)
	if pgn < phys.startn || pgn-phys.startn >= uint32(len(phys.Pgs)) {
		panic("not a physical page")
	}
	return pgn - phys.startn
}

/// Refaddr returns the refcount pointer and index for the given page.
func (phys *Physmem_t) Refaddr(p_pg Pa_t) (*int32, uint32) {
	idx := phys._pgidx(p_pg)
	return &phys.Pgs[idx].Refcnt, idx
}

/// Refcnt returns the current reference count of a page.
func (phys *Physmem_t) Refcnt(p_pg Pa_t) int {
	ref, _ := phys.Refaddr(p_pg)
	return int(atomic.LoadInt32(ref))
}

/// Refup increments the reference count of a page.
func (phys *Physmem_t) Refup(p_pg Pa_t) {
	ref, _ := phys.Refaddr(p_pg)
	c := atomic.AddInt32(ref, 1)
	// XXXPANIC
	if c <= 0 {
		panic("wut")
	}
}

// returns true if p_pg should be added to the free list and the index of the
// page in the pgs array
func (phys *Physmem_t) _refdec(p_pg Pa_t) (bool, uint32) {
	ref, idx := phys.Refaddr(p_pg)
	c := atomic.AddInt32(ref, -1)
	// XXXPANIC
	if c < 0 {
		panic("wut")
	}
	return c == 0, idx
}

/// Refdown decrements the reference count of a page.
/// It returns true when the page is freed.
func (phys *Physmem_t) Refdown(p_pg Pa_t) bool {
	if add, idx := phys._refdec(p_pg); add {
		phys._phys_insert(idx)
		return true
	}
	return false
}

/// Refpg_new allocates a zeroed page and returns its mapping and address.
/// The returned page's refcount is not incremented.
func (phys *Physmem_t) Refpg_new() (*Pg_t, Pa_t, bool) {
	pg, p_pg, ok := phys._phys_new()
	if !ok {
		return nil, 0, false
	}
	*pg = Pg_t{}
	return pg, p_pg, true
}

/// Refpg_new_nozero allocates an uninitialised page.
func (phys *Physmem_t) Refpg_new_nozero() (*Pg_t, Pa_t, bool) {
	return phys._phys_new()
}

func (phys *Physmem_t) _phys_new() (*Pg_t, Pa_t, bool) {
	var p_pg Pa_t
	var ok bool
	phys.Lock()
	ff := phys.freei
	if ff != ^uint32(0) {
		p_pg = Pa_t(ff+phys.startn) << PGSHIFT
		phys.freei = phys.Pgs[ff].nexti
		ok = true
		if phys.Pgs[ff].Refcnt != 0 {
			panic("free page referenced")
		}
		phys.freelen--
		if phys.freelen < 0 {
			panic("no")
		}
	}
	phys.Unlock()
	if ok {
		return phys.Dmap(p_pg), p_pg, true
	}
	return nil, 0, false
}

func (phys *Physmem_t) _phys_insert(idx uint32) {
	phys.Lock()
	phys.Pgs[idx].nexti = phys.freei
	phys.freei = idx
	phys.freelen++
	phys.Unlock()
}

/// Dmap returns the kernel mapping of the page containing p.
func (phys *Physmem_t) Dmap(p Pa_t) *Pg_t {
	idx := phys._pgidx(util.Rounddown(p, Pa_t(PGSIZE)))
	return &phys.arena[idx]
}

/// Dmap8 returns a byte slice mapped to the given physical address, up to
/// the end of its page.
func (phys *Physmem_t) Dmap8(p Pa_t) []uint8 {
	pg := phys.Dmap(p)
	off := p & PGOFFSET
	bpg := Pg2bytes(pg)
	return bpg[off:]
}

/// Pgcount returns the number of free pages and the total page count.
func (phys *Physmem_t) Pgcount() (int, int) {
	phys.Lock()
	defer phys.Unlock()
	return int(phys.freelen), len(phys.Pgs)
}
