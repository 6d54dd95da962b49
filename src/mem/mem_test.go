package mem

import "testing"

func TestAlloc(t *testing.T) {
	phys := Phys_init(4)
	var got []Pa_t
	for {
		pg, p_pg, ok := phys.Refpg_new()
		if !ok {
			break
		}
		if p_pg == 0 || p_pg&PGOFFSET != 0 {
			t.Fatalf("bad page address %#x", p_pg)
		}
		for _, v := range pg {
			if v != 0 {
				t.Fatalf("page not zeroed")
			}
		}
		pg[0] = 1
		phys.Refup(p_pg)
		got = append(got, p_pg)
	}
	if len(got) != 4 {
		t.Fatalf("allocated %d pages, want 4", len(got))
	}
	if f, tot := phys.Pgcount(); f != 0 || tot != 4 {
		t.Fatalf("pgcount %d/%d", f, tot)
	}
	phys.Refup(got[0])
	if phys.Refdown(got[0]) {
		t.Fatalf("freed page with a reference left")
	}
	if !phys.Refdown(got[0]) {
		t.Fatalf("page not freed at zero references")
	}
	pg, p_pg, ok := phys.Refpg_new()
	if !ok || p_pg != got[0] || pg[0] != 0 {
		t.Fatalf("freed page not reused zeroed")
	}
}

func TestDmap8(t *testing.T) {
	phys := Phys_init(2)
	_, p_pg, _ := phys.Refpg_new()
	b := phys.Dmap8(p_pg + 10)
	if len(b) != PGSIZE-10 {
		t.Fatalf("dmap8 len %d", len(b))
	}
	b[0] = 0xab
	if Pg2bytes(phys.Dmap(p_pg))[10] != 0xab {
		t.Fatalf("dmap8 does not alias the page")
	}
}

func TestKstack(t *testing.T) {
	seen := make(map[uintptr]bool)
	for i := 0; i < 64; i++ {
		k := KSTACK(i)
		if k%uintptr(PGSIZE) != 0 || k >= TRAMPOLINE || seen[k] {
			t.Fatalf("bad kstack %d: %#x", i, k)
		}
		if i > 0 && KSTACK(i-1)-k != 2*uintptr(PGSIZE) {
			t.Fatalf("no guard page below kstack %d", i)
		}
		seen[k] = true
	}
}
