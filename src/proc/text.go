package proc

import "sync"

import "kthreads/src/mem"

/// Ufunc_t is a user function. It runs in user mode on its thread and
/// reaches the kernel only through its Uctx_t.
type Ufunc_t func(*Uctx_t)

/// TEXTALIGN is the distance between user function entries.
const TEXTALIGN = 16

// endbr64, nop padding, ret
var stub = [TEXTALIGN]uint8{0xf3, 0x0f, 0x1e, 0xfa,
	0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0xc3}

type textent_t struct {
	name string
	fn   Ufunc_t
}

/// Text_t is a program image: user functions placed at user addresses
/// starting at USERTEXT. Processes created from a Text_t map a copy of its
/// image.
type Text_t struct {
	sync.Mutex
	ents []textent_t
}

/// Mktext returns an empty program image.
func Mktext() *Text_t {
	return &Text_t{}
}

/// Add places fn in the image and returns its user address.
func (t *Text_t) Add(name string, fn Ufunc_t) uintptr {
	t.Lock()
	defer t.Unlock()
	for _, e := range t.ents {
		if e.name == name {
			panic("duplicate text symbol " + name)
		}
	}
	t.ents = append(t.ents, textent_t{name: name, fn: fn})
	return mem.USERTEXT + uintptr(len(t.ents)-1)*TEXTALIGN
}

func (t *Text_t) index(pc uintptr) (int, bool) {
	if pc < mem.USERTEXT || (pc-mem.USERTEXT)%TEXTALIGN != 0 {
		return 0, false
	}
	i := int((pc - mem.USERTEXT) / TEXTALIGN)
	return i, i < len(t.ents)
}

/// Lookup returns the function whose entry is pc.
func (t *Text_t) Lookup(pc uintptr) (Ufunc_t, bool) {
	t.Lock()
	defer t.Unlock()
	i, ok := t.index(pc)
	if !ok {
		return nil, false
	}
	return t.ents[i].fn, true
}

/// Sym returns the entry of the function called name.
func (t *Text_t) Sym(name string) (uintptr, bool) {
	t.Lock()
	defer t.Unlock()
	for i, e := range t.ents {
		if e.name == name {
			return mem.USERTEXT + uintptr(i)*TEXTALIGN, true
		}
	}
	return 0, false
}

/// Name returns the name of the function whose entry is pc.
func (t *Text_t) Name(pc uintptr) string {
	t.Lock()
	defer t.Unlock()
	if i, ok := t.index(pc); ok {
		return t.ents[i].name
	}
	return "?"
}

// image returns the bytes mapped at USERTEXT.
func (t *Text_t) image() []uint8 {
	t.Lock()
	defer t.Unlock()
	n := len(t.ents)
	if n == 0 {
		n = 1
	}
	ret := make([]uint8, 0, n*TEXTALIGN)
	for i := 0; i < n; i++ {
		ret = append(ret, stub[:]...)
	}
	return ret
}
