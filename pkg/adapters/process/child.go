package process

import (
	"errors"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

// child is a long-lived process started by Runner.Start.
type child struct {
	cmd    *exec.Cmd
	logger *slog.Logger
	done   chan struct{}

	mu       sync.Mutex
	exitCode int
	waitErr  error
}

func newChild(cmd *exec.Cmd, logger *slog.Logger) *child {
	c := &child{
		cmd:    cmd,
		logger: logger,
		done:   make(chan struct{}),
	}
	go c.wait()
	return c
}

func (c *child) wait() {
	err := c.cmd.Wait()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
			err = nil
		} else {
			code = -1
		}
	}
	c.mu.Lock()
	c.exitCode = code
	c.waitErr = err
	c.mu.Unlock()
	close(c.done)
}

func (c *child) Pid() int { return c.cmd.Process.Pid }

func (c *child) Done() <-chan struct{} { return c.done }

// Wait blocks until the child exits and returns its exit code.
// A code of -1 means the child was killed by a signal.
func (c *child) Wait() (int, error) {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode, c.waitErr
}

// Terminate sends a termination request and escalates to a kill if the child
// has not exited after grace.
func (c *child) Terminate(grace time.Duration) error {
	select {
	case <-c.done:
		return nil
	default:
	}

	c.logger.Info("Terminating process", "pid", c.Pid(), "grace", grace)
	if err := terminate(c.cmd); err != nil {
		select {
		case <-c.done:
			return nil
		default:
		}
		return kill(c.cmd)
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(grace):
		c.logger.Warn("Process ignored termination request, killing", "pid", c.Pid())
		if err := kill(c.cmd); err != nil {
			return err
		}
		<-c.done
		return nil
	}
}
