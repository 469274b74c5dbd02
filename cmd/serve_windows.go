//go:build windows

package cmd

import (
	"os"
	"os/exec"
	"syscall"
)

// detach is a no-op on Windows (no Setsid equivalent).
func detach(_ *exec.Cmd) {}

// stopSignals are the signals that trigger a graceful shutdown.
func stopSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// termSignal falls back to a kill; Windows cannot deliver SIGTERM.
func termSignal() syscall.Signal { return syscall.SIGKILL }

func killSignal() syscall.Signal { return syscall.SIGKILL }
