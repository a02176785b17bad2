package environment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/alessio/shellescape"
)

const (
	processStopGracePeriod = 10 * time.Second
	// processOutputDrain bounds how long output is read after the process exits. A child that
	// left the process group can keep the pipe open for as long as it runs.
	processOutputDrain = 2 * time.Second
	processKillWait    = processOutputDrain + 3*time.Second
)

// Starter is a startup procedure for a dependency.
type Starter interface {
	// Start launches the dependency. It returns once the launch has been initiated; readiness
	// is determined separately by health checks.
	Start(ctx context.Context) (Handle, error)

	// Describe returns a human-readable form of the startup command, for logs and errors.
	Describe() string
}

// Handle controls a dependency that a Starter has launched.
type Handle interface {
	Stop(ctx context.Context) error

	// LogTail returns up to n of the most recent lines of the dependency's output.
	LogTail(ctx context.Context, n int) []string
}

// exitWatcher is implemented by handles of dependencies that can exit by themselves. Exited is
// closed once the dependency has exited; ExitErr is only meaningful after that.
type exitWatcher interface {
	Exited() <-chan struct{}
	ExitErr() error
}

// ProcessStarter runs the dependency as a child process in its own process group.
type ProcessStarter struct {
	Command []string
	Dir     string
	Env     map[string]string
	// Echo, if set, also receives the process's stdout and stderr.
	Echo io.Writer
}

func (p ProcessStarter) Describe() string {
	return shellescape.QuoteCommand(p.Command)
}

func (p ProcessStarter) Start(ctx context.Context) (Handle, error) {
	if len(p.Command) == 0 {
		return nil, errors.New("no command specified")
	}
	// The process must outlive the context of the call that started it, so it is not created
	// with exec.CommandContext.
	cmd := exec.Command(p.Command[0], p.Command[1:]...) //nolint:gosec
	cmd.Dir = p.Dir
	cmd.Env = os.Environ()
	for k, v := range p.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	configureProcAttr(cmd)

	output := newLineBuffer(defaultLogTailLines * 5)
	var w io.Writer = output
	if p.Echo != nil {
		w = io.MultiWriter(output, p.Echo)
	}
	// With an *os.File for output, Wait returns when the process exits rather than when every
	// holder of the pipe has closed it.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("failed to start %s: %w", p.Describe(), err)
	}
	_ = pw.Close()

	drained := make(chan struct{})
	go func() {
		_, _ = io.Copy(w, pr)
		_ = pr.Close()
		close(drained)
	}()
	h := &processHandle{cmd: cmd, output: output, exited: make(chan struct{})}
	go func() {
		h.exitErr = cmd.Wait()
		drain := time.NewTimer(processOutputDrain)
		select {
		case <-drained:
		case <-drain.C:
		}
		drain.Stop()
		close(h.exited)
	}()
	return h, nil
}

type processHandle struct {
	cmd      *exec.Cmd
	output   *lineBuffer
	exited   chan struct{}
	exitErr  error
	stopping sync.Once
	stopErr  error
}

func (h *processHandle) Exited() <-chan struct{} { return h.exited }

func (h *processHandle) ExitErr() error {
	select {
	case <-h.exited:
		return h.exitErr
	default:
		return nil
	}
}

func (h *processHandle) LogTail(_ context.Context, n int) []string {
	return h.output.Tail(n)
}

// Stop sends SIGTERM to the process group and escalates to SIGKILL if the process has not
// exited after a grace period or when ctx is done. The wait after SIGKILL is bounded too.
func (h *processHandle) Stop(ctx context.Context) error {
	h.stopping.Do(func() {
		select {
		case <-h.exited:
			return
		default:
		}
		if err := terminateProcessGroup(h.cmd.Process.Pid); err != nil {
			h.stopErr = err
		}
		grace := time.NewTimer(processStopGracePeriod)
		defer grace.Stop()
		select {
		case <-h.exited:
			return
		case <-grace.C:
		case <-ctx.Done():
		}
		if err := killProcessGroup(h.cmd.Process.Pid); err != nil {
			h.stopErr = err
			return
		}
		killWait := time.NewTimer(processKillWait)
		defer killWait.Stop()
		select {
		case <-h.exited:
			h.stopErr = nil
		case <-killWait.C:
			h.stopErr = fmt.Errorf("process %d did not exit within %s of SIGKILL", h.cmd.Process.Pid, processKillWait)
		}
	})
	return h.stopErr
}
