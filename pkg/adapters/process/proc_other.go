//go:build !unix

package process

import (
	"os"
	"os/exec"
)

func configureGroup(cmd *exec.Cmd, killOnCancel bool) {}

func terminate(cmd *exec.Cmd) error {
	return cmd.Process.Signal(os.Interrupt)
}

func kill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
