//go:build unix

package procutil

import (
	"os/exec"
	"syscall"
)

// Detach places cmd in its own process group so that signals aimed at the
// caller's group do not reach it.
func Detach(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}
