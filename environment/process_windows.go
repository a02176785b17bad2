//go:build windows

package environment

import (
	"os"
	"os/exec"
)

func configureProcAttr(cmd *exec.Cmd) {}

// Windows has no process groups in the Unix sense; both operations kill the process itself.
func terminateProcessGroup(pid int) error {
	return killProcessGroup(pid)
}

func killProcessGroup(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
