package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Process is a running bot with a Conn over its stdin and stdout.
type Process struct {
	*Conn

	cmd   *exec.Cmd
	stdin io.WriteCloser

	closeOnce sync.Once
	closeErr  error
}

type startConfig struct {
	stderr io.Writer
	dir    string
}

type StartOption func(*startConfig)

// WithStderr forwards the bot's stderr. It goes to os.Stderr by default.
func WithStderr(w io.Writer) StartOption {
	return func(c *startConfig) { c.stderr = w }
}

func WithDir(dir string) StartOption {
	return func(c *startConfig) { c.dir = dir }
}

// Start spawns command. Cancelling ctx kills the process, which in turn
// unblocks a pending Receive with ErrTransportClosed.
func Start(ctx context.Context, command string, args []string, opts ...StartOption) (*Process, error) {
	cfg := startConfig{stderr: os.Stderr}
	for _, opt := range opts {
		opt(&cfg)
	}

	//nolint:gosec // the bot command is operator supplied
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = cfg.dir
	cmd.Stderr = cfg.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}

	return &Process{
		Conn:  NewConn(stdout, stdin),
		cmd:   cmd,
		stdin: stdin,
	}, nil
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Close ends the session: stdin is closed, the process killed and reaped.
// It is safe to call more than once.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		_ = p.stdin.Close()
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.closeErr = fmt.Errorf("kill: %w", err)
		}
		// Wait reports the kill signal; that is the expected outcome here.
		_ = p.cmd.Wait()
	})
	return p.closeErr
}
