//go:build windows

package procexec

import (
	"os/exec"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// killProcessGroup terminates the child directly; Windows has no POSIX
// process-group signal equivalent, and sending CTRL_BREAK_EVENT to a
// process group started with its own console is unreliable across child
// tools, so the core falls back to a direct kill of the top-level process.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
