//go:build !windows

package sidecar

import (
	"os/exec"
	"syscall"
)

// detach starts the sidecar in its own session so it outlives the
// orchestrator process and isn't killed by a Ctrl-C sent to our
// foreground process group.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
