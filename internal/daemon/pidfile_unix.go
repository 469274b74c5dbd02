//go:build !windows

package daemon

import "syscall"

// alive sends signal 0, which checks for the process without touching it.
func alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func sendSignal(pid int, sig syscall.Signal) error {
	return syscall.Kill(pid, sig)
}
