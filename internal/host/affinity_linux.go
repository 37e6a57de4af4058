//go:build linux

package host

import "golang.org/x/sys/unix"

func pinToFirstCPU(pid int32) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(0)
	return unix.SchedSetaffinity(int(pid), &set)
}
