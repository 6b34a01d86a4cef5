//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// configureGroup puts the child in its own process group so signals reach the
// whole pipeline ("curl | sh" and everything it spawns). When killOnCancel is set,
// context cancellation kills the group instead of only the shell.
func configureGroup(cmd *exec.Cmd, killOnCancel bool) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if killOnCancel {
		cmd.Cancel = func() error {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
	}
}

func terminate(cmd *exec.Cmd) error {
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}

func kill(cmd *exec.Cmd) error {
	// ESRCH means the group is already gone.
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}
