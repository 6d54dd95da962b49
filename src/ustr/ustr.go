package ustr

/// NAMELEN is the longest process name kept by the kernel.
const NAMELEN = 16

/// Ustr is an immutable kernel string, such as a process name.
type Ustr []uint8

/// Eq compares two Ustr values for equality.
///
/// \param s other Ustr to compare
/// \return true when both strings contain identical bytes.
func (us Ustr) Eq(s Ustr) bool {
	if len(us) != len(s) {
		return false
	}
	for i, v := range us {
		if v != s[i] {
			return false
		}
	}
	return true
}

/// MkUstrSlice converts a NUL-terminated byte slice to a Ustr.
///
/// \param buf source byte slice
/// \return slice truncated at the first NUL byte.
func MkUstrSlice(buf []uint8) Ustr {
	for i := 0; i < len(buf); i++ {
		if buf[i] == uint8(0) {
			return buf[:i]
		}
	}
	return buf
}

/// MkName copies s into a new Ustr of at most NAMELEN bytes, stopping at
/// the first NUL.
func MkName(s string) Ustr {
	n := MkUstrSlice([]uint8(s))
	if len(n) > NAMELEN {
		n = n[:NAMELEN]
	}
	ret := make(Ustr, len(n))
	copy(ret, n)
	return ret
}

/// String converts the Ustr to a Go string.
/// \return string representation of the Ustr.
func (us Ustr) String() string {
	return string(us)
}
