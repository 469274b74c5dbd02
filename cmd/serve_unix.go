//go:build !windows

package cmd

import (
	"os"
	"os/exec"
	"syscall"
)

// detach starts the daemonized server in its own session so it outlives
// the launching terminal.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// stopSignals are the signals that trigger a graceful shutdown.
func stopSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

func termSignal() syscall.Signal { return syscall.SIGTERM }

func killSignal() syscall.Signal { return syscall.SIGKILL }
