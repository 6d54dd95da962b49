package ustr

import "testing"

func TestMkName(t *testing.T) {
	n := MkName("a-very-long-process-name")
	if len(n) != NAMELEN || n.String() != "a-very-long-proc" {
		t.Fatalf("got %q", n)
	}
	if !MkName("sh\x00junk").Eq(Ustr("sh")) {
		t.Fatalf("nul not honored")
	}
}
