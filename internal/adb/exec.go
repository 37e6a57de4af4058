package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrTimeout is returned by a Runner when the command overran its
// time limit and was killed.
var ErrTimeout = errors.New("command timed out")

// Runner executes host commands. ExecRunner is the production
// implementation; tests substitute a scripted fake.
type Runner interface {
	// Run executes argv and returns its stdout. The process is killed
	// if it has not exited within timeout.
	Run(argv []string, timeout time.Duration) ([]byte, error)
	// Start launches argv in the background.
	Start(argv []string) (Handle, error)
}

// Handle is a background process started by Runner.Start.
type Handle interface {
	Wait() error
	Kill() error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(argv []string, timeout time.Duration) ([]byte, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// The kill takes the whole process group where the platform has
	// one. Anything that escaped it and still holds the pipes open is
	// abandoned after WaitDelay.
	setProcessGroup(cmd)
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		return stdout.Bytes(), ErrTimeout
	}
	if err != nil {
		return stdout.Bytes(), fmt.Errorf("%s: %w: %s", argv[0], err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

// Start implements Runner.
func (ExecRunner) Start(argv []string) (Handle, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}
	return execHandle{cmd}, nil
}

type execHandle struct {
	cmd *exec.Cmd
}

func (h execHandle) Wait() error { return h.cmd.Wait() }
func (h execHandle) Kill() error { return h.cmd.Process.Kill() }
