//go:build !linux

package limits

import "runtime"

func defncpu() int {
	return runtime.NumCPU()
}
