//go:build windows

package sidecar

import (
	"os/exec"
	"syscall"
)

// detach starts the sidecar detached from the parent's console so it
// outlives the orchestrator process.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: 0x00000008} // DETACHED_PROCESS
}
