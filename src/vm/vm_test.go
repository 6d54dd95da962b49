package vm

import "bytes"
import "testing"

import "kthreads/src/defs"
import "kthreads/src/mem"

func mkvm(t *testing.T, npages int) (*Vm_t, *mem.Physmem_t) {
	phys := mem.Phys_init(npages)
	as := &Vm_t{}
	if err := as.Vm_init(phys); err != 0 {
		t.Fatalf("vm_init: %v", err)
	}
	return as, phys
}

func TestCopy(t *testing.T) {
	as, _ := mkvm(t, 32)
	va := 0x10000
	if err := as.Mmap(va, 2*mem.PGSIZE, mem.PTE_W); err != 0 {
		t.Fatalf("mmap: %v", err)
	}
	src := bytes.Repeat([]uint8("kthread"), 1000)
	// straddles the page boundary
	uva := va + mem.PGSIZE - 100
	if err := as.K2user(src[:200], uva); err != 0 {
		t.Fatalf("k2user: %v", err)
	}
	dst := make([]uint8, 200)
	if err := as.User2k(dst, uva); err != 0 {
		t.Fatalf("user2k: %v", err)
	}
	if !bytes.Equal(dst, src[:200]) {
		t.Fatalf("copy mismatch")
	}
	if err := as.K2user(src, uva); err != -defs.EFAULT {
		t.Fatalf("copy past mapping: %v", err)
	}
}

func TestReadonly(t *testing.T) {
	as, _ := mkvm(t, 16)
	if err := as.Mmap(0x1000, 10, 0); err != 0 {
		t.Fatalf("mmap: %v", err)
	}
	if err := as.K2user([]uint8{1}, 0x1000); err != -defs.EFAULT {
		t.Fatalf("write to read-only page: %v", err)
	}
	b := make([]uint8, 1)
	if err := as.User2k(b, 0x1000); err != 0 {
		t.Fatalf("read of read-only page: %v", err)
	}
	if err := as.User2k(b, 0); err != -defs.EFAULT {
		t.Fatalf("read of unmapped page: %v", err)
	}
}

func TestMmapRollback(t *testing.T) {
	as, phys := mkvm(t, 8)
	before, _ := phys.Pgcount()
	if err := as.Mmap(0x100000, 64*mem.PGSIZE, mem.PTE_W); err != -defs.ENOMEM {
		t.Fatalf("oversized mmap: %v", err)
	}
	as.Uvmfree()
	after, tot := phys.Pgcount()
	if after != tot || before >= after {
		t.Fatalf("leaked pages: %d free of %d", after, tot)
	}
}

func TestUserbuf(t *testing.T) {
	as, _ := mkvm(t, 16)
	as.Mmap(0x2000, mem.PGSIZE, mem.PTE_W)
	as.Mmap(0x3000, mem.PGSIZE, 0)
	ub := as.Mkuserbuf(0x2000, 5)
	n, err := ub.Uiowrite([]uint8("hello world"))
	if err != 0 || n != 5 || ub.Remain() != 0 {
		t.Fatalf("uiowrite %d %v", n, err)
	}
	var fb Fakeubuf_t
	out := make([]uint8, 5)
	fb.Fake_init(out)
	ub = as.Mkuserbuf(0x2000, 5)
	buf := make([]uint8, 5)
	ub.Uioread(buf)
	fb.Uiowrite(buf)
	if string(out) != "hello" {
		t.Fatalf("got %q", out)
	}
	// straddles into the read-only page
	ub = as.Mkuserbuf(0x3000-2, 4)
	if n, err := ub.Uiowrite([]uint8{1, 2, 3, 4}); n != 2 || err != -defs.EFAULT {
		t.Fatalf("write into read-only page: %d %v", n, err)
	}
	ub = as.Mkuserbuf(0x3000-2, 4)
	if n, err := ub.Uioread(buf[:4]); n != 4 || err != 0 || buf[0] != 1 || buf[2] != 0 {
		t.Fatalf("read across pages: %d %v %v", n, err, buf[:4])
	}
	ub = as.Mkuserbuf(0x4000, 1)
	if _, err := ub.Uioread(buf[:1]); err != -defs.EFAULT {
		t.Fatalf("read of unmapped page: %v", err)
	}
}

func TestMmapLoad(t *testing.T) {
	as, _ := mkvm(t, 16)
	text := bytes.Repeat([]uint8{0x90}, mem.PGSIZE+8)
	text[0] = 0xc3
	if err := as.Mmap_load(0x1000, text, 0); err != 0 {
		t.Fatalf("load: %v", err)
	}
	got := make([]uint8, len(text))
	if err := as.User2k(got, 0x1000); err != 0 || !bytes.Equal(got, text) {
		t.Fatalf("segment mismatch: %v", err)
	}
	if err := as.K2user([]uint8{1}, 0x1000); err != -defs.EFAULT {
		t.Fatalf("text writable: %v", err)
	}
}
