//go:build !linux

package host

func pinToFirstCPU(pid int32) error {
	return nil
}
