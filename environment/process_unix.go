//go:build !windows

package environment

import (
	"fmt"
	"os/exec"
	"syscall"
)

// configureProcAttr puts the process in its own group so that any children it spawns (a build
// tool forking a server, for instance) are stopped along with it.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateProcessGroup(pid int) error {
	return signalProcessGroup(pid, syscall.SIGTERM)
}

func killProcessGroup(pid int) error {
	return signalProcessGroup(pid, syscall.SIGKILL)
}

func signalProcessGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil {
		if err2 := syscall.Kill(pid, sig); err2 != nil && err2 != syscall.ESRCH {
			return fmt.Errorf("failed to signal process group -%d: %v, also failed to signal process %d: %w",
				pid, err, pid, err2)
		}
	}
	return nil
}
