package util

import "testing"

func TestRound(t *testing.T) {
	if Roundup(4097, 4096) != 8192 || Roundup(4096, 4096) != 4096 {
		t.Fatalf("roundup")
	}
	if Rounddown(uintptr(8191), 4096) != 4096 {
		t.Fatalf("rounddown")
	}
	if Min(3, -2) != -2 {
		t.Fatalf("min")
	}
}

func TestReadWriten(t *testing.T) {
	buf := make([]uint8, 12)
	Writen(buf, 4, 0, -7)
	if buf[0] != 0xf9 || buf[3] != 0xff {
		t.Fatalf("not little endian: % x", buf[:4])
	}
	if int32(Readn(buf, 4, 0)) != -7 {
		t.Fatalf("read back %d", int32(Readn(buf, 4, 0)))
	}
	Writen(buf, 8, 4, 1<<40|42)
	if Readn(buf, 8, 4) != 1<<40|42 {
		t.Fatalf("8 byte round trip")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("out of bounds write did not panic")
		}
	}()
	Writen(buf, 8, 8, 0)
}
