package supervise

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// ChildProcess abstracts a running control-loop child for testing.
type ChildProcess interface {
	// Stdout is the child's log stream, relayed line by line.
	Stdout() io.Reader
	// Stderr is the child's side-channel stream.
	Stderr() io.Reader
	// Signal delivers a signal to the child.
	Signal(sig os.Signal) error
	// Wait blocks until the child exits and returns its exit code.
	// Safe to call from multiple goroutines.
	Wait() int
}

// ChildFactory spawns a child with the given extra arguments. Used for
// test injection; production uses ChildCommand.Factory.
type ChildFactory func(args []string) (ChildProcess, error)

// ChildCommand describes how to launch the production control-loop binary.
type ChildCommand struct {
	// Path to the binary.
	Path string
	// BaseArgs precede the per-start arguments (e.g. the peripheral
	// service address flag).
	BaseArgs []string
}

// Factory returns a ChildFactory launching the command.
func (c ChildCommand) Factory() ChildFactory {
	return func(args []string) (ChildProcess, error) {
		return startChild(c, args)
	}
}

// execChild wraps an exec.Cmd. Wait memoizes the exit code so the watchdog
// and a graceful stop can both observe it.
type execChild struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser

	waitOnce sync.Once
	done     chan struct{}
	exitCode int
}

func startChild(c ChildCommand, args []string) (*execChild, error) {
	argv := make([]string, 0, len(c.BaseArgs)+len(args))
	argv = append(argv, c.BaseArgs...)
	argv = append(argv, args...)

	cmd := exec.Command(c.Path, argv...)
	// Own session: a ctrl-c on the supervisor's terminal must not reach
	// the child; graceful stop is the supervisor's explicit SIGINT.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start child: %w", err)
	}

	return &execChild{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		done:   make(chan struct{}),
	}, nil
}

func (c *execChild) Stdout() io.Reader { return c.stdout }
func (c *execChild) Stderr() io.Reader { return c.stderr }

func (c *execChild) Signal(sig os.Signal) error {
	return c.cmd.Process.Signal(sig)
}

func (c *execChild) Wait() int {
	c.waitOnce.Do(func() {
		err := c.cmd.Wait()
		code := 0
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
					code = status.ExitStatus()
				} else {
					code = -1
				}
			} else {
				code = -1
			}
		}
		c.exitCode = code
		close(c.done)
	})
	<-c.done
	return c.exitCode
}
