//go:build linux

package limits

import "runtime"

import "golang.org/x/sys/unix"

// the CPUs this process may run on, not every CPU in the host
func defncpu() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return runtime.NumCPU()
	}
	if n := set.Count(); n > 0 {
		return n
	}
	return 1
}
