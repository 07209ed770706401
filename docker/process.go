package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"rockerboo/lsp-docker-bridge/logger"
)

// processStream is the duplex byte stream of a spawned container process.
// Writes go to the process stdin, reads come from its stdout. The stream is
// owned by the session that created it and must not be shared.
type processStream struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (p *processStream) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p *processStream) Write(b []byte) (int, error) { return p.stdin.Write(b) }

// Close shuts the process down: stdin is closed first so a well-behaved
// server can exit on EOF, then the process is killed and reaped. A non-zero
// exit status is the expected outcome of the kill and is not reported; only
// failures to reap the process surface.
func (p *processStream) Close() error {
	p.stdin.Close()

	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}

	err := p.cmd.Wait()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}

	return err
}

// Start spawns the given command line and returns its stdio as a duplex
// stream. Spawn errors are returned unchanged; stderr passes through to the
// host process so container and server diagnostics stay visible.
func (l *Launcher) Start(ctx context.Context, argv []string) (io.ReadWriteCloser, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command line")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	logger.Debug(fmt.Sprintf("started %s (pid %d)", argv[0], cmd.Process.Pid))

	return &processStream{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}
