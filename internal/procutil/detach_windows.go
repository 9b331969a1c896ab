//go:build windows

package procutil

import (
	"os/exec"
	"syscall"
)

const detachedProcess = 0x00000008

// Detach configures cmd to start without a console window and outside the
// caller's process group so that it survives the caller's exit.
// Preserves any existing SysProcAttr fields that were set before this call.
func Detach(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.HideWindow = true
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess
}
